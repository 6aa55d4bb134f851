// Package ux renders command results for the terminal.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Formatter writes a command result in one output format.
type Formatter interface {
	Format(data any) error
}

// TextRenderer is implemented by results with a dedicated text form.
// JSON and YAML output ignore it.
type TextRenderer interface {
	Text() any
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor disables styling in text output
	NoColor bool
	// Compact disables indentation for JSON and YAML
	Compact bool
}

// Formats lists the accepted --format values.
var Formats = []string{"text", "json", "yaml"}

// NewFormatter creates a formatter based on the format string
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch strings.ToLower(format) {
	case "json":
		return &JSONFormatter{opts: opts}, nil
	case "yaml", "yml":
		return &YAMLFormatter{opts: opts}, nil
	case "text", "":
		return &TextFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts *FormatterOptions
}

// Format writes data as JSON
func (f *JSONFormatter) Format(data any) error {
	enc := json.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as YAML
func (f *YAMLFormatter) Format(data any) error {
	enc := yaml.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		enc.SetIndent(2)
	}
	defer enc.Close()
	return enc.Encode(data)
}

// Table is tabular text output. Empty tables print Empty instead.
type Table struct {
	Headers []string
	Rows    [][]string
	Empty   string
}

// KeyValues is an ordered list of label/value pairs printed as aligned
// "label: value" lines.
type KeyValues [][2]string

var headerStyle = lipgloss.NewStyle().Bold(true)

// TextFormatter formats output as human-readable text
type TextFormatter struct {
	opts *FormatterOptions
}

// Format writes data as text. It accepts strings, fmt.Stringer, Table,
// KeyValues and TextRenderer values.
func (f *TextFormatter) Format(data any) error {
	if r, ok := data.(TextRenderer); ok {
		data = r.Text()
	}

	w := f.opts.Writer
	switch v := data.(type) {
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case Table:
		return f.table(v)
	case *Table:
		return f.table(*v)
	case KeyValues:
		return f.keyValues(v)
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, v.String())
		return err
	default:
		return fmt.Errorf("text output is not available for %T, use --format json or yaml", data)
	}
}

func (f *TextFormatter) table(t Table) error {
	if len(t.Rows) == 0 {
		if t.Empty == "" {
			return nil
		}
		_, err := fmt.Fprintln(f.opts.Writer, t.Empty)
		return err
	}

	tw := tabwriter.NewWriter(f.opts.Writer, 0, 4, 2, ' ', 0)
	if len(t.Headers) > 0 {
		// Plain: escape codes would skew tabwriter's column widths.
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func (f *TextFormatter) keyValues(kv KeyValues) error {
	width := 0
	for _, p := range kv {
		width = max(width, len(p[0]))
	}
	for _, p := range kv {
		label := fmt.Sprintf("%-*s", width+1, p[0]+":")
		if !f.opts.NoColor {
			label = headerStyle.Render(label)
		}
		if _, err := fmt.Fprintf(f.opts.Writer, "%s %s\n", label, p[1]); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
	_ Formatter = (*TextFormatter)(nil)
)
