package clean

import "github.com/palantir/survey-tabulator/pkg/table"

// Group is a set of columns sharing a NormalizedKey. Members are column
// indexes in table order.
type Group struct {
	Key     string
	Members []int
}

func (g Group) IsCollision() bool { return len(g.Members) > 1 }

// GroupColumns groups columns by NormalizedKey. Groups are ordered by the
// first column that produced each key.
func GroupColumns(t *table.Table) []Group {
	index := make(map[string]int)
	var groups []Group
	for i, name := range t.Names() {
		key := NormalizedKey(name)
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{Key: key})
		}
		groups[gi].Members = append(groups[gi].Members, i)
	}
	return groups
}

// Merge folds each collision group into one column holding, per row, the
// first non-null value across the group's columns. The merged column keeps
// the name of the group's first column. Singleton groups pass through.
func Merge(t *table.Table, groups []Group) (*table.Table, []MergeEvent) {
	cols := t.Columns()
	out := make([]table.Column, 0, len(groups))
	var events []MergeEvent
	for _, g := range groups {
		if len(g.Members) == 0 {
			continue
		}
		if !g.IsCollision() {
			out = append(out, cols[g.Members[0]])
			continue
		}

		sources := make([]string, len(g.Members))
		for i, idx := range g.Members {
			sources[i] = cols[idx].Name
		}
		merged := table.Column{Name: sources[0], Values: coalesce(t.Rows(), cols, g.Members)}
		out = append(out, merged)
		events = append(events, MergeEvent{Key: g.Key, Sources: sources, Name: merged.Name})
	}
	return derive(t, out), events
}

func coalesce(rows int, cols []table.Column, members []int) []table.Value {
	vals := make([]table.Value, rows)
	for r := range vals {
		for _, idx := range members {
			if v := cols[idx].Values[r]; !v.IsNull() {
				vals[r] = v
				break
			}
		}
	}
	return vals
}
