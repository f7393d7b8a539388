package output

import (
	"bytes"
	"fmt"

	"github.com/nao1215/markdown"

	"github.com/dwinston/dbaudit/internal/report"
)

// MarkdownFormatter renders a report as GitHub-flavored markdown, suitable
// for pasting into issues or docs. Only the diff path offers this format.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Name() string     { return FormatMarkdown }
func (f *MarkdownFormatter) MIMEType() string { return "text/markdown" }

func (f *MarkdownFormatter) Format(r *report.Report, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	if len(r.Header.Fields) > 0 {
		rows := make([][]string, 0, len(r.Header.Fields))
		for _, field := range r.Header.Fields {
			rows = append(rows, []string{field.Label, field.Value})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	for _, s := range r.Sections {
		f.writeSection(md, s, 1, opts.URLPrefix)
	}

	if err := md.Build(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *MarkdownFormatter) writeSection(md *markdown.Markdown, s *report.Section, level int, urlPrefix string) {
	switch level {
	case 1:
		md.H1(s.Title)
	case 2:
		md.H2(s.Title)
	default:
		md.H3(s.Title)
	}
	md.PlainText("")

	for _, a := range s.Annotations {
		md.PlainTextf("*%s: %s*", a.Key, a.Value)
		md.PlainText("")
	}

	if s.Table != nil && len(s.Table.Rows) > 0 {
		rows := make([][]string, 0, len(s.Table.Rows))
		for _, row := range s.Table.Rows {
			out := make([]string, len(row))
			copy(out, row)
			if urlPrefix != "" && len(out) > 0 {
				out[0] = fmt.Sprintf("[%s](%s%s)", out[0], urlPrefix, out[0])
			}
			rows = append(rows, out)
		}
		md.Table(markdown.TableSet{
			Header: s.Table.Columns,
			Rows:   rows,
		})
		md.PlainText("")
	}

	next := level + 1
	for _, child := range s.Sections {
		f.writeSection(md, child, next, urlPrefix)
	}
}
