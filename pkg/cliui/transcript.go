package cliui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/transcriber/pkg/event"
	"github.com/papercomputeco/transcriber/pkg/transcript"
)

var (
	HumanPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	AIPrompt    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
	ToolPrompt  = ToolStyle.Render("tool> ")
)

// Prompt returns the prompt prefix for a role.
func Prompt(role transcript.Role) string {
	switch role {
	case transcript.RoleHuman:
		return HumanPrompt
	case transcript.RoleTool:
		return ToolPrompt
	default:
		return AIPrompt
	}
}

// ToolCallLine renders a tool invocation, e.g. "→ search {"q":"go"}".
func ToolCallLine(tc transcript.ToolCall) string {
	return fmt.Sprintf("%s %s %s",
		ToolStyle.Render("→"),
		NameStyle.Render(tc.Name),
		DimStyle.Render(string(tc.Args)),
	)
}

// TodoLine renders one todo entry with a status box.
func TodoLine(t event.Todo) string {
	box := "[ ]"
	switch t.Status() {
	case "completed":
		box = SuccessMark
	case "in_progress":
		box = ToolStyle.Render("[~]")
	}
	return fmt.Sprintf("%s %s", box, t.Content())
}

// RenderOptions controls RenderTranscript.
type RenderOptions struct {
	// Markdown renders ai message content with glamour.
	Markdown bool
}

// RenderTranscript writes a readable rendition of t to w.
func RenderTranscript(w io.Writer, t transcript.Transcript, opts RenderOptions) error {
	for _, m := range t.Messages {
		content := m.Content
		if opts.Markdown && m.Role == transcript.RoleAI && content != "" {
			if rendered, err := RenderMarkdown(content); err == nil {
				content = strings.TrimSpace(rendered)
			}
		}

		if _, err := fmt.Fprintf(w, "%s%s\n", Prompt(m.Role), content); err != nil {
			return err
		}
		for _, tc := range m.ToolCalls {
			if _, err := fmt.Fprintf(w, "  %s\n", ToolCallLine(tc)); err != nil {
				return err
			}
		}
	}

	if len(t.Todos) > 0 {
		if _, err := fmt.Fprintf(w, "\n%s\n", KeyStyle.Render("Todos:")); err != nil {
			return err
		}
		for _, todo := range t.Todos {
			if _, err := fmt.Fprintf(w, "  %s\n", TodoLine(todo)); err != nil {
				return err
			}
		}
	}

	return nil
}
