package output

import (
	"bytes"
	"html/template"

	"github.com/dwinston/dbaudit/internal/report"
)

// HTMLFormatter renders a standalone HTML document. In email mode the
// stylesheet is inlined so mail clients render it without fetching
// anything.
type HTMLFormatter struct{}

func (f *HTMLFormatter) Name() string     { return FormatHTML }
func (f *HTMLFormatter) MIMEType() string { return "text/html" }

const htmlStylesheet = `body { font-family: sans-serif; margin: 1em 2em; }
h1 { font-size: 1.3em; border-bottom: 2px solid #444; }
h2 { font-size: 1.1em; border-bottom: 1px solid #999; }
table { border-collapse: collapse; margin: 0.5em 0 1.5em; }
th, td { border: 1px solid #ccc; padding: 0.25em 0.75em; text-align: left; }
th { background: #eee; }
dl.hdr dt { font-weight: bold; float: left; clear: left; margin-right: 0.5em; }
p.note { color: #555; font-style: italic; }`

// The template walks a pre-flattened view model; sections arrive in
// document order with their heading level already computed.
var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
{{- if .Inline}}
<style>
{{.Style}}
</style>
{{- else}}
<link rel="stylesheet" href="dbaudit.css">
{{- end}}
</head>
<body>
{{- if .Header}}
<dl class="hdr">
{{- range .Header}}
<dt>{{.Label}}</dt><dd>{{.Value}}</dd>
{{- end}}
</dl>
{{- end}}
{{- range .Sections}}
<h{{.Level}}>{{.Title}}</h{{.Level}}>
{{- range .Annotations}}
<p class="note">{{.Key}}: {{.Value}}</p>
{{- end}}
{{- with .Table}}
<table>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{- range .Rows}}
<tr>{{range .}}<td>{{if .Href}}<a href="{{.Href}}">{{.Text}}</a>{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
{{- end}}
</table>
{{- end}}
{{- end}}
</body>
</html>
`))

type htmlDoc struct {
	Inline   bool
	Style    template.CSS
	Header   []report.HeaderField
	Sections []htmlSection
}

type htmlSection struct {
	Level       int
	Title       string
	Annotations []report.Annotation
	Table       *htmlTable
}

type htmlTable struct {
	Columns []string
	Rows    [][]htmlCell
}

type htmlCell struct {
	Text string
	Href string
}

func (f *HTMLFormatter) Format(r *report.Report, opts Options) ([]byte, error) {
	doc := htmlDoc{
		Inline: opts.EmailMode,
		Style:  htmlStylesheet,
		Header: r.Header.Fields,
	}
	for _, s := range r.Sections {
		doc.Sections = flattenSections(doc.Sections, s, 1, opts.URLPrefix)
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flattenSections(out []htmlSection, s *report.Section, level int, urlPrefix string) []htmlSection {
	hs := htmlSection{
		Level:       level,
		Title:       s.Title,
		Annotations: s.Annotations,
	}
	if s.Table != nil && len(s.Table.Rows) > 0 {
		t := &htmlTable{Columns: s.Table.Columns}
		for _, row := range s.Table.Rows {
			cells := make([]htmlCell, len(row))
			for i, v := range row {
				cells[i] = htmlCell{Text: v}
				if i == 0 && urlPrefix != "" {
					cells[i].Href = urlPrefix + v
				}
			}
			t.Rows = append(t.Rows, cells)
		}
		hs.Table = t
	}
	out = append(out, hs)

	next := level + 1
	if next > 4 {
		next = 4
	}
	for _, child := range s.Sections {
		out = flattenSections(out, child, next, urlPrefix)
	}
	return out
}
