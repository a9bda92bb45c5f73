package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind discriminates the scalar held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// NullLabel is the stringified form of a null cell.
const NullLabel = "null"

// Value is a nullable scalar cell. The zero Value is null.
//
// For numbers, str holds the literal the value was parsed from, if any.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

func Null() Value { return Value{} }

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// ParseNumber parses s as a float and keeps s as the value's label, so
// literals that round to the same float64 ("12345678901234567" and
// "12345678901234568", or "1" and "1.0") stay distinct.
func ParseNumber(s string) (Value, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, false
	}
	return Value{kind: KindNumber, num: f, str: s}, true
}

func Text(s string) Value { return Value{kind: KindText, str: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload; ok is false unless the value is a Number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Str returns the text payload; ok is false unless the value is Text.
func (v Value) Str() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.str, true
}

// Truth returns the boolean payload; ok is false unless the value is a Bool.
func (v Value) Truth() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsNumber interprets the value numerically. Numbers are returned as is,
// booleans as 0/1 and text when it parses as a float once surrounding
// whitespace is trimmed.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equal reports whether both values have the same kind and payload.
// Numbers are equal when their labels are.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.String() == o.String()
	case KindText:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// String renders the value the way frequency reports label it. Parsed
// numbers are labelled with their literal.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		if v.str != "" {
			return v.str
		}
		return formatNumber(v.num)
	case KindText:
		return v.str
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	default:
		return NullLabel
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return decimal.NewFromFloat(f).String()
}
