// Package cliui holds the terminal helpers shared by transcriber commands:
// colour styles, a spinner for long steps, and transcript rendering.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ANSI 256 palette.
const (
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	orange = lipgloss.Color("214")
	violet = lipgloss.Color("141")
	grey   = lipgloss.Color("245")
	dark   = lipgloss.Color("240")
	light  = lipgloss.Color("252")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	KeyStyle   = fg(grey).Bold(true)
	ValueStyle = fg(light)
	NameStyle  = fg(violet).Bold(true)
	DimStyle   = fg(dark)
	ToolStyle  = fg(orange)
	ErrorStyle = fg(red)

	SuccessMark = fg(green).Render("✓")
	FailMark    = ErrorStyle.Render("✗")
)

var (
	elapsedStyle = fg(grey)
	spinnerStyle = fg(green)
	frames       = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
)

const frameInterval = 80 * time.Millisecond

// Step shows a spinner next to msg while fn runs and replaces it with a
// result mark and the elapsed time once fn returns. fn's error is returned.
func Step(w io.Writer, msg string, fn func() error) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		tick := time.NewTicker(frameInterval)
		defer tick.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(frames[i%len(frames)]), msg)
			select {
			case <-stop:
				return
			case <-tick.C:
			}
		}
	}()

	start := time.Now()
	err := fn()
	took := time.Since(start)

	close(stop)
	wg.Wait()

	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg,
		elapsedStyle.Render("("+FormatDuration(took)+")"))
	return err
}

// Mark is SuccessMark for a nil error and FailMark otherwise.
func Mark(err error) string {
	if err == nil {
		return SuccessMark
	}
	return FailMark
}

// FormatDuration prints sub-second durations in milliseconds and longer ones
// in seconds with one decimal.
func FormatDuration(d time.Duration) string {
	if d >= time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// RenderMarkdown renders content with glamour, wrapped at 80 columns. On
// failure the input is returned unchanged along with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return content, err
	}
	out, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return out, nil
}
