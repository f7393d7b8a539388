package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dwinston/dbaudit/internal/report"
)

// TextFormatter renders a report as plain text with underlined section
// titles and aligned columns.
type TextFormatter struct{}

func (f *TextFormatter) Name() string     { return FormatText }
func (f *TextFormatter) MIMEType() string { return "text/plain" }

func (f *TextFormatter) Format(r *report.Report, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	for _, field := range r.Header.Fields {
		fmt.Fprintf(&buf, "%s: %s\n", field.Label, field.Value)
	}
	if len(r.Header.Fields) > 0 {
		buf.WriteByte('\n')
	}

	for _, s := range r.Sections {
		f.writeSection(&buf, s, 0)
	}
	return buf.Bytes(), nil
}

func (f *TextFormatter) writeSection(buf *bytes.Buffer, s *report.Section, depth int) {
	underline := "="
	if depth > 0 {
		underline = "-"
	}
	indent := strings.Repeat("  ", depth)

	fmt.Fprintf(buf, "%s%s\n", indent, s.Title)
	fmt.Fprintf(buf, "%s%s\n", indent, strings.Repeat(underline, len(s.Title)))

	for _, a := range s.Annotations {
		fmt.Fprintf(buf, "%s%s: %s\n", indent, a.Key, a.Value)
	}

	if s.Table != nil && len(s.Table.Rows) > 0 {
		buf.WriteByte('\n')
		f.writeTable(buf, s.Table, indent)
	}
	buf.WriteByte('\n')

	for _, child := range s.Sections {
		f.writeSection(buf, child, depth+1)
	}
}

func (f *TextFormatter) writeTable(buf *bytes.Buffer, t *report.Table, indent string) {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	for _, row := range t.Rows {
		for i, v := range row {
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	writeRow := func(values []string) {
		buf.WriteString(indent)
		for i, v := range values {
			if i > 0 {
				buf.WriteString("  ")
			}
			fmt.Fprintf(buf, "%-*s", widths[i], v)
		}
		// Trim the padding on the last column.
		b := buf.Bytes()
		for len(b) > 0 && b[len(b)-1] == ' ' {
			b = b[:len(b)-1]
		}
		buf.Truncate(len(b))
		buf.WriteByte('\n')
	}

	writeRow(t.Columns)
	sep := make([]string, len(t.Columns))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)
	for _, row := range t.Rows {
		writeRow(row)
	}
}
