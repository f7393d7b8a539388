// Package report holds the in-memory, format-independent representation of
// validation and diff results. A Report is built once by a runner, then
// rendered by any number of formatters; it is never mutated after that.
package report

import (
	"fmt"
	"sort"
)

// HeaderField is one (label, value) pair in a report header. Labels are not
// required to be unique; insertion order is preserved.
type HeaderField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Header is the ordered sequence of header fields.
type Header struct {
	Fields []HeaderField `json:"fields"`
}

// Add appends a header field.
func (h *Header) Add(label, value string) {
	h.Fields = append(h.Fields, HeaderField{Label: label, Value: value})
}

// Annotation is a key/value note attached to a section, e.g. "Condition".
type Annotation struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Section is one titled unit of a report. A section may carry annotations,
// at most one table, and nested child sections (used to group violation
// conditions under a collection).
type Section struct {
	Title       string       `json:"title"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Table       *Table       `json:"table,omitempty"`
	Sections    []*Section   `json:"sections,omitempty"`
}

// NewSection creates a section with the given title.
func NewSection(title string) *Section {
	return &Section{Title: title}
}

// Annotate appends a key/value annotation.
func (s *Section) Annotate(key, value string) {
	s.Annotations = append(s.Annotations, Annotation{Key: key, Value: value})
}

// AddSection appends a nested child section.
func (s *Section) AddSection(child *Section) {
	s.Sections = append(s.Sections, child)
}

// isEmpty reports whether the section has no table rows and no non-empty
// descendants.
func (s *Section) isEmpty() bool {
	if s.Table != nil && len(s.Table.Rows) > 0 {
		return false
	}
	for _, child := range s.Sections {
		if !child.isEmpty() {
			return false
		}
	}
	return true
}

// Table is a fixed-arity grid of values.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable creates a table with the given column names.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// AddRow appends a row. The number of values must match the column arity.
func (t *Table) AddRow(values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// SortBy stable-sorts rows ascending by the named column.
func (t *Table) SortBy(column string) error {
	idx := -1
	for i, c := range t.Columns {
		if c == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("unknown column %q", column)
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i][idx] < t.Rows[j][idx]
	})
	return nil
}

// Report is one header plus an ordered sequence of top-level sections.
type Report struct {
	Header   Header     `json:"header"`
	Sections []*Section `json:"sections"`
}

// New creates an empty report.
func New() *Report {
	return &Report{}
}

// AddSection appends a top-level section.
func (r *Report) AddSection(s *Section) {
	r.Sections = append(r.Sections, s)
}

// IsEmpty reports whether no section, recursively, contains table rows.
// Header fields alone do not make a report non-empty; the dispatcher uses
// this to decide whether output should be suppressed.
func (r *Report) IsEmpty() bool {
	for _, s := range r.Sections {
		if !s.isEmpty() {
			return false
		}
	}
	return true
}
