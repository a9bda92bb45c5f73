// Package clean normalizes a raw survey table: it drops columns that hold no
// data, merges columns whose names only differ by whitespace or case, and
// turns 0/1-coded columns into booleans.
//
// Nothing in this package fails. Values that cannot be interpreted degrade to
// null and the number of such values is reported back to the caller.
package clean

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/palantir/survey-tabulator/internal/logging"
	"github.com/palantir/survey-tabulator/pkg/table"
)

// Options toggles the optional steps. Dropping empty columns always runs.
type Options struct {
	MergeDuplicates bool
	CoerceBooleans  bool
}

func DefaultOptions() Options {
	return Options{MergeDuplicates: true, CoerceBooleans: true}
}

// MergeEvent describes one collision group folded into a single column.
type MergeEvent struct {
	Key     string
	Sources []string
	Name    string
}

// Coercion describes one column converted to booleans. Nulled counts the
// non-null cells that had no boolean reading and became null.
type Coercion struct {
	Column string
	Nulled int
}

// Summary is what Normalize did to the table.
type Summary struct {
	ColumnsIn  int
	ColumnsOut int
	Dropped    []string
	Merges     []MergeEvent
	Coercions  []Coercion
}

// Removed is the total number of columns that disappeared.
func (s Summary) Removed() int { return s.ColumnsIn - s.ColumnsOut }

// Normalize runs every enabled step in order and logs each decision.
func Normalize(t *table.Table, opts Options, log logging.Logger) (*table.Table, Summary) {
	if log == nil {
		log = logging.Nop()
	}
	sum := Summary{ColumnsIn: t.Width()}

	out, dropped := DropEmpty(t)
	sum.Dropped = dropped
	if len(dropped) > 0 {
		log.Info("dropping empty columns", "count", len(dropped), "columns", dropped)
	}

	if opts.MergeDuplicates {
		var merges []MergeEvent
		out, merges = Merge(out, GroupColumns(out))
		sum.Merges = merges
		for _, m := range merges {
			log.Info("combining columns", "columns", m.Sources, "name", m.Name)
		}
	}

	if opts.CoerceBooleans {
		var coerced []Coercion
		out, coerced = CoerceBooleans(out)
		sum.Coercions = coerced
		for _, c := range coerced {
			log.Info("converting column to boolean", "column", c.Column, "nulled", c.Nulled)
			if c.Nulled > 0 {
				log.Warn("values without a boolean reading set to null", "column", c.Column, "count", c.Nulled)
			}
		}
	}

	sum.ColumnsOut = out.Width()
	return out, sum
}

// NormalizedKey is the grouping key for a column name: all whitespace
// removed, then lower-cased.
func NormalizedKey(name string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	return cases.Lower(language.Und).String(stripped)
}

// DropEmpty removes every column whose cells are all null and returns the
// names it removed.
func DropEmpty(t *table.Table) (*table.Table, []string) {
	cols := t.Columns()
	kept := make([]table.Column, 0, len(cols))
	var dropped []string
	for _, c := range cols {
		if c.AllNull() {
			dropped = append(dropped, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	return derive(t, kept), dropped
}

func derive(t *table.Table, cols []table.Column) *table.Table {
	out, err := t.Derive(cols)
	if err != nil {
		// Every column handed in here has t.Rows() cells.
		panic(err)
	}
	return out
}
