package logger

import (
	"io"
	"log/slog"
)

// Option configures New.
type Option func(*config)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithDebug is WithLevel(slog.LevelDebug) when debug is set, Info otherwise.
func WithDebug(debug bool) Option {
	if debug {
		return WithLevel(slog.LevelDebug)
	}
	return WithLevel(slog.LevelInfo)
}

// WithPretty selects the charmbracelet/log handler.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.format = formatText
		if pretty {
			c.format = formatPretty
		}
	}
}

// WithAutoPretty selects the charmbracelet/log handler when the output is a
// terminal and plain text otherwise.
func WithAutoPretty() Option {
	return func(c *config) {
		c.format = formatAuto
	}
}

// WithJSON selects slog's JSON handler.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.format = formatText
		if json {
			c.format = formatJSON
		}
	}
}

// WithWriter replaces the output with w. The default is os.Stdout.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters writes every record to all of ws.
func WithWriters(ws ...io.Writer) Option {
	return func(c *config) {
		c.writers = ws
	}
}

// WithSource adds the caller's file:line.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithComponent tags every record with component=name.
func WithComponent(name string) Option {
	return func(c *config) {
		c.component = name
	}
}
