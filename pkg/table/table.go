// Package table holds the in-memory representation of a loaded survey export:
// ordered, named columns of nullable scalars that all share one row count.
//
// Tables are treated as immutable once built. Transformations construct new
// tables and may share column value slices with their input.
package table

import (
	"errors"
	"fmt"
)

// ErrRaggedColumns is returned when columns of one table disagree on row count.
var ErrRaggedColumns = errors.New("columns have different row counts")

// Column is a named sequence of values.
type Column struct {
	Name   string
	Values []Value
}

func (c Column) Len() int { return len(c.Values) }

// NullCount returns the number of null cells.
func (c Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// AllNull reports whether every cell is null. A zero-length column is all null.
func (c Column) AllNull() bool {
	return c.NullCount() == len(c.Values)
}

// Table is an ordered set of columns with a shared row count.
type Table struct {
	cols []Column
	rows int
}

// New builds a table whose row count is taken from the first column.
func New(cols ...Column) (*Table, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return NewWithRows(rows, cols...)
}

// NewWithRows builds a table with an explicit row count, which is kept even
// when no columns remain.
func NewWithRows(rows int, cols ...Column) (*Table, error) {
	if rows < 0 {
		return nil, fmt.Errorf("negative row count %d", rows)
	}
	for _, c := range cols {
		if c.Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", c.Name, c.Len(), rows, ErrRaggedColumns)
		}
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return &Table{cols: out, rows: rows}, nil
}

// MustNew is New for literals in tests and examples; it panics on error.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Derive returns a table with the same row count and the given columns.
func (t *Table) Derive(cols []Column) (*Table, error) {
	return NewWithRows(t.rows, cols...)
}

func (t *Table) Rows() int  { return t.rows }
func (t *Table) Width() int { return len(t.cols) }

func (t *Table) Column(i int) Column { return t.cols[i] }

// Columns returns a copy of the column list.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Lookup returns the first column named name.
func (t *Table) Lookup(name string) (Column, bool) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasUniqueNames reports whether no two columns share a name.
func (t *Table) HasUniqueNames() bool {
	seen := make(map[string]struct{}, len(t.cols))
	for _, c := range t.cols {
		if _, ok := seen[c.Name]; ok {
			return false
		}
		seen[c.Name] = struct{}{}
	}
	return true
}
