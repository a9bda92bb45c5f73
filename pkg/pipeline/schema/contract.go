// Package schema describes the column types a cleaned table ended up with.
package schema

import "github.com/palantir/survey-tabulator/pkg/table"

// FieldType is the logical type observed in a column.
type FieldType string

const (
	TypeNull    FieldType = "null"
	TypeBoolean FieldType = "boolean"
	TypeDouble  FieldType = "double"
	TypeString  FieldType = "string"
	TypeMixed   FieldType = "mixed"
)

// Field captures the minimal behavior-relevant schema fields.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// Contract is the logical schema of a table in column order.
type Contract struct {
	Fields []Field
}

// ContractFromTable derives the contract from the values actually present.
func ContractFromTable(t *table.Table) Contract {
	cols := t.Columns()
	fields := make([]Field, 0, len(cols))
	for _, c := range cols {
		fields = append(fields, Field{
			Name:     c.Name,
			Type:     observedType(c),
			Nullable: c.NullCount() > 0,
		})
	}
	return Contract{Fields: fields}
}

func observedType(c table.Column) FieldType {
	typ := TypeNull
	for _, v := range c.Values {
		var cur FieldType
		switch v.Kind() {
		case table.KindNull:
			continue
		case table.KindBool:
			cur = TypeBoolean
		case table.KindNumber:
			cur = TypeDouble
		default:
			cur = TypeString
		}
		if typ == TypeNull {
			typ = cur
			continue
		}
		if typ != cur {
			return TypeMixed
		}
	}
	return typ
}

// CountByType tallies fields per type.
func (c Contract) CountByType() map[FieldType]int {
	out := make(map[FieldType]int)
	for _, f := range c.Fields {
		out[f.Type]++
	}
	return out
}
