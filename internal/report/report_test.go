package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_IsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Report
		empty bool
	}{
		{
			name: "no sections",
			build: func() *Report {
				return New()
			},
			empty: true,
		},
		{
			name: "header fields only",
			build: func() *Report {
				r := New()
				r.Header.Add("Report time", "2026-01-01 00:00:00")
				r.Header.Add("Database", "tasks")
				return r
			},
			empty: true,
		},
		{
			name: "section without table",
			build: func() *Report {
				r := New()
				r.AddSection(NewSection("collection tasks"))
				return r
			},
			empty: true,
		},
		{
			name: "section with empty table",
			build: func() *Report {
				r := New()
				s := NewSection("collection tasks")
				s.Table = NewTable("Id", "Value")
				r.AddSection(s)
				return r
			},
			empty: true,
		},
		{
			name: "single one-row table",
			build: func() *Report {
				r := New()
				s := NewSection("collection tasks")
				s.Table = NewTable("Id", "Value")
				require.NoError(t, s.Table.AddRow("t-1", "42"))
				r.AddSection(s)
				return r
			},
			empty: false,
		},
		{
			name: "rows only in nested section",
			build: func() *Report {
				r := New()
				top := NewSection("collection tasks")
				child := NewSection("Group A")
				child.Table = NewTable("Id")
				require.NoError(t, child.Table.AddRow("t-1"))
				top.AddSection(child)
				r.AddSection(top)
				return r
			},
			empty: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.build().IsEmpty())
		})
	}
}

func TestHeader_PreservesOrderAndDuplicates(t *testing.T) {
	var h Header
	h.Add("Report time", "a")
	h.Add("Database", "tasks")
	h.Add("Report time", "b")

	require.Len(t, h.Fields, 3)
	assert.Equal(t, "Report time", h.Fields[0].Label)
	assert.Equal(t, "Database", h.Fields[1].Label)
	assert.Equal(t, "Report time", h.Fields[2].Label)
	assert.Equal(t, "b", h.Fields[2].Value)
}

func TestTable_AddRow_ArityMismatch(t *testing.T) {
	tbl := NewTable("Id", "Field", "Value")
	err := tbl.AddRow("t-1", "energy")
	assert.Error(t, err)
	assert.Empty(t, tbl.Rows)
}

func TestTable_SortBy_Stable(t *testing.T) {
	tbl := NewTable("Id", "Field")
	require.NoError(t, tbl.AddRow("t-3", "x"))
	require.NoError(t, tbl.AddRow("t-1", "x"))
	require.NoError(t, tbl.AddRow("t-2", "x"))
	require.NoError(t, tbl.AddRow("t-1", "y"))

	require.NoError(t, tbl.SortBy("Id"))

	assert.Equal(t, [][]string{
		{"t-1", "x"},
		{"t-1", "y"},
		{"t-2", "x"},
		{"t-3", "x"},
	}, tbl.Rows)
}

func TestTable_SortBy_UnknownColumn(t *testing.T) {
	tbl := NewTable("Id")
	assert.Error(t, tbl.SortBy("Nope"))
}
