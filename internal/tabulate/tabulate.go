// Package tabulate counts, per column, how often each distinct value occurs
// and serializes the result.
package tabulate

import "github.com/palantir/survey-tabulator/pkg/table"

// ValueCount is one distinct value label and its number of occurrences.
type ValueCount struct {
	Value string
	Count int
}

// ColumnCounts holds the counts for one column in first-encounter order.
type ColumnCounts struct {
	Name   string
	Counts []ValueCount
}

// Total is the sum of all counts, which equals the table's row count.
func (c ColumnCounts) Total() int {
	n := 0
	for _, vc := range c.Counts {
		n += vc.Count
	}
	return n
}

// Get returns the count recorded for label.
func (c ColumnCounts) Get(label string) (int, bool) {
	for _, vc := range c.Counts {
		if vc.Value == label {
			return vc.Count, true
		}
	}
	return 0, false
}

// Report is the frequency report of a table. Columns keep table order.
type Report struct {
	columns []ColumnCounts
}

// Tabulate builds the report for t. Values are labelled with
// table.Value.String, so null cells are counted under table.NullLabel.
func Tabulate(t *table.Table) Report {
	cols := t.Columns()
	out := make([]ColumnCounts, 0, len(cols))
	for _, c := range cols {
		out = append(out, countColumn(c))
	}
	return Report{columns: out}
}

func countColumn(c table.Column) ColumnCounts {
	index := make(map[string]int)
	var counts []ValueCount
	for _, v := range c.Values {
		label := v.String()
		i, ok := index[label]
		if !ok {
			i = len(counts)
			index[label] = i
			counts = append(counts, ValueCount{Value: label})
		}
		counts[i].Count++
	}
	return ColumnCounts{Name: c.Name, Counts: counts}
}

// NewReport assembles a report from already computed column counts.
func NewReport(cols ...ColumnCounts) Report {
	out := make([]ColumnCounts, len(cols))
	copy(out, cols)
	return Report{columns: out}
}

func (r Report) Len() int { return len(r.columns) }

// Columns returns a copy of the per-column counts.
func (r Report) Columns() []ColumnCounts {
	out := make([]ColumnCounts, len(r.columns))
	copy(out, r.columns)
	return out
}

func (r Report) Lookup(name string) (ColumnCounts, bool) {
	for _, c := range r.columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnCounts{}, false
}

// DistinctValues is the number of labels across all columns.
func (r Report) DistinctValues() int {
	n := 0
	for _, c := range r.columns {
		n += len(c.Counts)
	}
	return n
}
