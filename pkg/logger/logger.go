// Package logger builds the *slog.Logger values used across transcriber.
// Library packages only ever accept a *slog.Logger; the commands decide how
// records are rendered: charmbracelet/log on a terminal, plain text or JSON
// otherwise.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

type format uint8

const (
	formatText format = iota
	formatPretty
	formatJSON
	formatAuto
)

type config struct {
	level     slog.Level
	format    format
	source    bool
	component string
	writers   []io.Writer
}

// New builds a logger. Without options it writes Info and above as plain
// text to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	w := c.output()

	f := c.format
	if f == formatAuto {
		f = formatText
		if isTerminal(w) {
			f = formatPretty
		}
	}

	l := slog.New(c.handler(f, w))
	if c.component != "" {
		l = l.With("component", c.component)
	}
	return l
}

func (c *config) output() io.Writer {
	switch len(c.writers) {
	case 0:
		return os.Stdout
	case 1:
		return c.writers[0]
	default:
		return io.MultiWriter(c.writers...)
	}
}

func (c *config) handler(f format, w io.Writer) slog.Handler {
	switch f {
	case formatPretty:
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
		})
	case formatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source})
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrNop returns l, or Nop() when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
