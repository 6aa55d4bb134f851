package ux

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	bridgeerrors "github.com/felixgeelhaar/ghbridge/internal/errors"
	"github.com/felixgeelhaar/ghbridge/internal/security"
)

var (
	errorLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	faintStyle      = lipgloss.NewStyle().Faint(true)
)

// RenderError formats err for the terminal. Coded errors are split into
// message, suggestions and documentation link; the text is redacted.
func RenderError(err error, noColor bool) string {
	if err == nil {
		return ""
	}
	style := func(s lipgloss.Style, text string) string {
		if noColor {
			return text
		}
		return s.Render(text)
	}

	var be *bridgeerrors.BridgeError
	if !errors.As(err, &be) {
		return fmt.Sprintf("%s %s", style(errorLabelStyle, "Error:"), security.RedactString(err.Error()))
	}

	var b strings.Builder
	msg := be.Message
	if be.Cause != nil {
		msg += ": " + be.Cause.Error()
	}
	fmt.Fprintf(&b, "%s %s %s", style(errorLabelStyle, "Error:"), security.RedactString(msg), style(faintStyle, "("+string(be.Code)+")"))
	for _, s := range be.Suggestions {
		fmt.Fprintf(&b, "\n  %s %s", style(hintStyle, "→"), s)
	}
	if be.DocsURL != "" {
		fmt.Fprintf(&b, "\n  %s %s", style(faintStyle, "Docs:"), be.DocsURL)
	}
	return b.String()
}

// PrintError writes RenderError(err) and a newline to w.
func PrintError(w io.Writer, err error, noColor bool) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, RenderError(err, noColor))
}
