// Package output renders reports into their final textual formats. Each
// formatter is pure: rendering the same report with the same options twice
// yields byte-identical output.
package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dwinston/dbaudit/internal/report"
)

// Format names accepted by Lookup.
const (
	FormatText     = "text"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Options tune a formatter without changing the report content.
type Options struct {
	// Pretty enables indented JSON output.
	Pretty bool
	// URLPrefix, when set, turns first-column cells into links in formats
	// that support them (HTML, markdown), pointing at URLPrefix + cell.
	URLPrefix string
	// EmailMode adjusts HTML for mail clients: styles are inlined in the
	// document instead of referencing an external stylesheet.
	EmailMode bool
}

// Formatter renders a report to bytes in one concrete format.
type Formatter interface {
	// Name returns the canonical format name.
	Name() string
	// MIMEType returns the content type of the rendered bytes.
	MIMEType() string
	// Format renders the report.
	Format(r *report.Report, opts Options) ([]byte, error)
}

// UnknownFormatError is returned by Lookup for unrecognized format names.
type UnknownFormatError struct {
	Name  string
	Valid []string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format %q (valid: %s)", e.Name, strings.Join(e.Valid, ", "))
}

var formatters = map[string]Formatter{
	FormatText:     &TextFormatter{},
	FormatHTML:     &HTMLFormatter{},
	FormatJSON:     &JSONFormatter{},
	FormatMarkdown: &MarkdownFormatter{},
}

// Lookup returns the formatter for a (case-insensitive) format name.
func Lookup(name string) (Formatter, error) {
	if f, ok := formatters[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	valid := make([]string, 0, len(formatters))
	for n := range formatters {
		valid = append(valid, n)
	}
	sort.Strings(valid)
	return nil, &UnknownFormatError{Name: name, Valid: valid}
}

// ValidFormats returns the sorted canonical format names.
func ValidFormats() []string {
	valid := make([]string, 0, len(formatters))
	for n := range formatters {
		valid = append(valid, n)
	}
	sort.Strings(valid)
	return valid
}
