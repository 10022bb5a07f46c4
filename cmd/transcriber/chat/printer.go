package chatcmder

import (
	"fmt"
	"io"

	"github.com/papercomputeco/transcriber/pkg/cliui"
	"github.com/papercomputeco/transcriber/pkg/event"
	"github.com/papercomputeco/transcriber/pkg/stream"
)

// printer renders stream updates incrementally. Message content only ever
// grows, so each update prints the suffix not yet on screen.
type printer struct {
	w io.Writer

	// messages before start were on screen before the turn began
	start int

	current    int
	written    int
	calls      int
	needPrompt bool
	dirty      bool
}

func newPrinter(w io.Writer, start int) *printer {
	return &printer{
		w:       w,
		start:   start,
		current: -1,
	}
}

func (p *printer) update(u stream.Update) {
	if u.Messages != nil {
		p.messages(u)
	}
	if u.ToolCall != nil && u.ToolCall.Name != "" {
		p.line(cliui.DimStyle.Render(fmt.Sprintf("⋯ running %s", u.ToolCall.Name)))
	}
	if u.Todos != nil {
		p.todos(u.Todos)
	}
}

func (p *printer) messages(u stream.Update) {
	from := max(p.start, p.current)
	for i := from; i < len(u.Messages); i++ {
		m := u.Messages[i]

		if i != p.current {
			if p.dirty {
				fmt.Fprintln(p.w)
			}
			p.current = i
			p.written = 0
			p.calls = 0
			p.needPrompt = true
		}

		if p.needPrompt {
			fmt.Fprint(p.w, cliui.Prompt(m.Role))
			if m.Name != "" {
				fmt.Fprintf(p.w, "%s ", cliui.NameStyle.Render(m.Name))
			}
			p.needPrompt = false
			p.dirty = true
		}

		if len(m.Content) > p.written {
			fmt.Fprint(p.w, m.Content[p.written:])
			p.written = len(m.Content)
		}

		for ; p.calls < len(m.ToolCalls); p.calls++ {
			p.line(cliui.ToolCallLine(m.ToolCalls[p.calls]))
		}
	}
}

func (p *printer) todos(todos []event.Todo) {
	if len(todos) == 0 {
		p.line(cliui.DimStyle.Render("todos cleared"))
		return
	}

	p.line(cliui.KeyStyle.Render("Todos:"))
	for _, t := range todos {
		p.line("  " + cliui.TodoLine(t))
	}
}

// line prints s on a line of its own. Content that follows resumes after a
// fresh prompt.
func (p *printer) line(s string) {
	if p.dirty {
		fmt.Fprintln(p.w)
	}
	fmt.Fprintf(p.w, "  %s", s)
	p.dirty = true
	if p.current >= 0 {
		p.needPrompt = true
	}
}

// finish terminates the last line, if any.
func (p *printer) finish() {
	if p.dirty {
		fmt.Fprintln(p.w)
		p.dirty = false
	}
}
