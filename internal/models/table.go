package models

import "strings"

// Table is a rectangular sheet of text cells with a header row.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable trims header names and pads or cuts every row to the header width.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{Columns: make([]string, len(columns))}
	for i, c := range columns {
		t.Columns[i] = strings.TrimSpace(c)
	}
	t.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		t.Rows = append(t.Rows, fitRow(r, len(columns)))
	}
	return t
}

// FromRows splits the first row off as the header. Empty input yields an empty table.
func FromRows(rows [][]string) *Table {
	if len(rows) == 0 {
		return &Table{}
	}
	return NewTable(rows[0], rows[1:])
}

func fitRow(r []string, width int) []string {
	out := make([]string, width)
	copy(out, r)
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether the table carries a column.
func (t *Table) Has(col string) bool {
	_, ok := t.Index()[col]
	return ok
}

// Index maps column names to positions. The first occurrence of a repeated name wins.
func (t *Table) Index() Header {
	if t == nil {
		return Header{}
	}
	return NewHeader(t.Columns)
}

// Header resolves column names to positions in a record.
type Header map[string]int

func NewHeader(columns []string) Header {
	h := make(Header, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if _, seen := h[c]; !seen {
			h[c] = i
		}
	}
	return h
}

// Get returns the trimmed cell for col, or "" when the column or cell is absent.
func (h Header) Get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
