// Package terminal implements the host prompt and log output for a
// command-line session.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/ghbridge/internal/host"
)

// Styles
var (
	infoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(2)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// ciEnvVars disable prompting when any of them is set.
var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TRAVIS",
	"CIRCLECI",
	"BUILDKITE",
}

// ChooseFunc asks the user to pick one of options.
type ChooseFunc func(ctx context.Context, title, description string, options []string) (string, error)

// Prompter renders host messages on a terminal and collects answers with
// a select prompt.
type Prompter struct {
	out         io.Writer
	interactive func() bool
	choose      ChooseFunc
}

// PrompterOption configures a Prompter
type PrompterOption func(*Prompter)

// WithOutput sets where messages are printed. Defaults to stderr.
func WithOutput(w io.Writer) PrompterOption {
	return func(p *Prompter) {
		p.out = w
	}
}

// WithInteractive overrides terminal detection.
func WithInteractive(fn func() bool) PrompterOption {
	return func(p *Prompter) {
		p.interactive = fn
	}
}

// WithChooser replaces the select prompt.
func WithChooser(fn ChooseFunc) PrompterOption {
	return func(p *Prompter) {
		p.choose = fn
	}
}

// NewPrompter creates a Prompter
func NewPrompter(opts ...PrompterOption) *Prompter {
	p := &Prompter{
		out:         os.Stderr,
		interactive: ShouldPrompt,
		choose:      huhChoose,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Show implements host.Prompter. Without actions, or without a terminal to
// answer on, the message is printed and treated as dismissed.
func (p *Prompter) Show(ctx context.Context, msg host.Message) (string, error) {
	if len(msg.Actions) == 0 || !p.interactive() {
		_, err := fmt.Fprintln(p.out, render(msg))
		return "", err
	}

	choice, err := p.choose(ctx, styleFor(msg.Severity).Render(msg.Text), msg.Detail, msg.Actions)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return choice, nil
}

func render(msg host.Message) string {
	var b strings.Builder
	b.WriteString(styleFor(msg.Severity).Render(label(msg.Severity) + msg.Text))
	if msg.Detail != "" {
		b.WriteString("\n")
		b.WriteString(detailStyle.Render(msg.Detail))
	}
	if msg.Modal {
		return modalStyle.Render(b.String())
	}
	return b.String()
}

func label(s host.Severity) string {
	switch s {
	case host.SeverityWarning:
		return "Warning: "
	case host.SeverityError:
		return "Error: "
	default:
		return ""
	}
}

func styleFor(s host.Severity) lipgloss.Style {
	switch s {
	case host.SeverityWarning:
		return warningStyle
	case host.SeverityError:
		return errorStyle
	default:
		return infoStyle
	}
}

func huhChoose(ctx context.Context, title, description string, options []string) (string, error) {
	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt, opt)
	}

	var selected string
	selectField := huh.NewSelect[string]().
		Title(title).
		Description(description).
		Options(huhOptions...).
		Value(&selected)

	form := huh.NewForm(huh.NewGroup(selectField))
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return selected, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShouldPrompt returns true if prompts should be shown based on environment.
// Prompts are disabled in CI environments or when stdin is not a terminal.
func ShouldPrompt() bool {
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}
	return IsInteractive()
}
