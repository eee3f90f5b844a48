package models

import (
	"errors"
	"fmt"
)

// RawTable is a raw tabular export from a data source: a header row plus data
// rows of unparsed string cells. It carries no typing guarantees; the
// normalizer is responsible for coercion.
type RawTable struct {
	Header []string
	Rows   [][]string
	Source string // Which loader strategy produced the table
}

// ColumnIndex returns the index of the named column, or -1 if absent.
func (t *RawTable) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Tail returns a copy of the table keeping only the last n rows.
func (t *RawTable) Tail(n int) *RawTable {
	rows := t.Rows
	if n >= 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	out := &RawTable{Header: t.Header, Source: t.Source}
	out.Rows = make([][]string, len(rows))
	copy(out.Rows, rows)
	return out
}

// Validate checks that the table has a header and rectangular rows.
func (t *RawTable) Validate() error {
	if len(t.Header) == 0 {
		return errors.New("table has no header")
	}
	if len(t.Rows) == 0 {
		return errors.New("table has no rows")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(t.Header))
		}
	}
	return nil
}
