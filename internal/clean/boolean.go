package clean

import "github.com/palantir/survey-tabulator/pkg/table"

// CoerceBooleans converts every eligible column to booleans.
//
// A column is eligible when its distinct numeric readings are a subset of
// {0, 1} and either both 0 and 1 occur, or exactly one of them occurs next
// to at most one distinct non-numeric value. In an eligible column the text
// "1", the number 1 and true become true; the text "0", the number 0 and
// false become false; every other value becomes null.
//
// Columns that already hold only booleans are left alone and not reported.
func CoerceBooleans(t *table.Table) (*table.Table, []Coercion) {
	cols := t.Columns()
	var events []Coercion
	for i, c := range cols {
		if alreadyBoolean(c) || !Eligible(c) {
			continue
		}
		vals, nulled := toBooleans(c.Values)
		cols[i] = table.Column{Name: c.Name, Values: vals}
		events = append(events, Coercion{Column: c.Name, Nulled: nulled})
	}
	return derive(t, cols), events
}

// Eligible reports whether c qualifies for boolean conversion.
func Eligible(c table.Column) bool {
	numeric := make(map[float64]struct{})
	other := make(map[table.Value]struct{})
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		if f, ok := v.AsNumber(); ok {
			if f != 0 && f != 1 {
				return false
			}
			numeric[f] = struct{}{}
			continue
		}
		other[v] = struct{}{}
	}
	switch len(numeric) {
	case 2:
		return true
	case 1:
		return len(other) <= 1
	default:
		return false
	}
}

func alreadyBoolean(c table.Column) bool {
	seen := false
	for _, v := range c.Values {
		switch v.Kind() {
		case table.KindNull:
		case table.KindBool:
			seen = true
		default:
			return false
		}
	}
	return seen
}

func toBooleans(in []table.Value) ([]table.Value, int) {
	out := make([]table.Value, len(in))
	nulled := 0
	for i, v := range in {
		b, ok := booleanReading(v)
		switch {
		case ok:
			out[i] = table.Bool(b)
		case !v.IsNull():
			nulled++
		}
	}
	return out, nulled
}

func booleanReading(v table.Value) (bool, bool) {
	switch v.Kind() {
	case table.KindBool:
		return v.Truth()
	case table.KindNumber:
		f, _ := v.Float()
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case table.KindText:
		s, _ := v.Str()
		switch s {
		case "1":
			return true, true
		case "0":
			return false, true
		}
	}
	return false, false
}
