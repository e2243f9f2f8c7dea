package validation

import (
	"encoding/json"
	"strconv"

	"cloud.google.com/go/civil"

	"github.com/goliatone/go-jobform/pkg/schema"
)

// Value is a coerced field value. Exactly one of the typed members is
// meaningful, selected by Type; Present is false for an optional field left
// empty.
type Value struct {
	Type    schema.FieldType
	Present bool
	Text    string
	Int     int64
	Dec     float64
	Date    civil.Date
}

// Absent returns the explicit "no value" marker for a field of type t.
func Absent(t schema.FieldType) Value {
	return Value{Type: t}
}

// TextValue wraps a text or enum value.
func TextValue(t schema.FieldType, s string) Value {
	return Value{Type: t, Present: true, Text: s}
}

// IntValue wraps an integer value.
func IntValue(v int64) Value {
	return Value{Type: schema.FieldTypeInteger, Present: true, Int: v}
}

// DecimalValue wraps a decimal value.
func DecimalValue(v float64) Value {
	return Value{Type: schema.FieldTypeDecimal, Present: true, Dec: v}
}

// DateValue wraps a calendar date.
func DateValue(d civil.Date) Value {
	return Value{Type: schema.FieldTypeDate, Present: true, Date: d}
}

// String renders the value in its wire form: ISO calendar dates, numbers in
// their shortest decimal representation, text and enum values verbatim. An
// absent value renders as the empty string.
func (v Value) String() string {
	if !v.Present {
		return ""
	}
	switch v.Type {
	case schema.FieldTypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case schema.FieldTypeDecimal:
		return schema.FormatNumber(v.Dec)
	case schema.FieldTypeDate:
		return v.Date.String()
	default:
		return v.Text
	}
}

// Interface returns the value as a plain Go value (string, int64, float64,
// civil.Date), or nil when absent.
func (v Value) Interface() any {
	if !v.Present {
		return nil
	}
	switch v.Type {
	case schema.FieldTypeInteger:
		return v.Int
	case schema.FieldTypeDecimal:
		return v.Dec
	case schema.FieldTypeDate:
		return v.Date
	default:
		return v.Text
	}
}

// MarshalJSON encodes absent values as null, numbers as JSON numbers and
// everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Present {
		return []byte("null"), nil
	}
	switch v.Type {
	case schema.FieldTypeInteger:
		return json.Marshal(v.Int)
	case schema.FieldTypeDecimal:
		return json.Marshal(v.Dec)
	default:
		return json.Marshal(v.String())
	}
}
