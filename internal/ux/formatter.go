package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Formatter defines the interface for output formatters.
// This enables consistent output formatting across all commands.
type Formatter interface {
	// Format writes the given data to the output writer
	Format(data any) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor disables colored output for text formatters
	NoColor bool
	// Compact enables compact output (no indentation for JSON/YAML)
	Compact bool
}

// NewFormatter creates a formatter based on the format string
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{Writer: os.Stdout}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case "json":
		return &JSONFormatter{opts: opts}, nil
	case "yaml":
		return &YAMLFormatter{opts: opts}, nil
	case "text", "":
		return &TextFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

// Render writes data with f. Text output uses text when it is non-nil, so a
// command can print a table for humans and the raw payload for machines.
func Render(f Formatter, data, text any) error {
	if _, ok := f.(*TextFormatter); ok && text != nil {
		return f.Format(text)
	}
	return f.Format(data)
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts *FormatterOptions
}

// Format writes data as JSON
func (f *JSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as YAML
func (f *YAMLFormatter) Format(data any) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent(2)
	}
	defer encoder.Close()
	return encoder.Encode(data)
}

// Table is tabular text output
type Table struct {
	Headers []string
	Rows    [][]string
	// Empty is printed instead of a table without rows
	Empty string
}

// Detail is one labelled line of a detail view
type Detail struct {
	Label string
	Value string
}

// Details renders as aligned "Label: value" lines
type Details []Detail

// TextFormatter formats output as human-readable text
type TextFormatter struct {
	opts *FormatterOptions
}

// Format writes data as formatted text. Supported values are strings,
// fmt.Stringer, Table and Details.
func (f *TextFormatter) Format(data any) error {
	var out string
	switch v := data.(type) {
	case string:
		out = v
	case Table:
		out = f.renderTable(v)
	case *Table:
		out = f.renderTable(*v)
	case Details:
		out = f.renderDetails(v)
	case fmt.Stringer:
		out = v.String()
	default:
		return fmt.Errorf("text formatter cannot render %T; use --format json or yaml", data)
	}
	_, err := fmt.Fprintln(f.opts.Writer, out)
	return err
}

func (f *TextFormatter) renderTable(t Table) string {
	if len(t.Rows) == 0 {
		if t.Empty != "" {
			return t.Empty
		}
		return "No results."
	}

	headerStyle := lipgloss.NewStyle().Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	if !f.opts.NoColor {
		headerStyle = headerStyle.Bold(true).Foreground(lipgloss.Color("63"))
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return tbl.String()
}

func (f *TextFormatter) renderDetails(d Details) string {
	width := 0
	for _, line := range d {
		width = max(width, len(line.Label))
	}

	labelStyle := lipgloss.NewStyle()
	if !f.opts.NoColor {
		labelStyle = labelStyle.Foreground(lipgloss.Color("241"))
	}

	lines := make([]string, 0, len(d))
	for _, line := range d {
		label := fmt.Sprintf("%-*s", width+1, line.Label+":")
		lines = append(lines, labelStyle.Render(label)+" "+line.Value)
	}
	return strings.Join(lines, "\n")
}

// Compile-time verification that formatters implement Formatter
var _ Formatter = (*JSONFormatter)(nil)
var _ Formatter = (*YAMLFormatter)(nil)
var _ Formatter = (*TextFormatter)(nil)
