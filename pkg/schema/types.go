package schema

import (
	"cloud.google.com/go/civil"
)

// FieldType enumerates the parameter kinds a schema can declare.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeInteger FieldType = "integer"
	FieldTypeDecimal FieldType = "decimal"
	FieldTypeDate    FieldType = "date"
	FieldTypeEnum    FieldType = "enum"
)

// Rule keys accepted under a field's `validation` mapping.
const (
	RuleMaxLength = "max_length"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinDate   = "min_date"
	RuleMaxDate   = "max_date"
)

// FieldTypes lists the recognised field kinds in declaration order.
func FieldTypes() []FieldType {
	return []FieldType{FieldTypeText, FieldTypeInteger, FieldTypeDecimal, FieldTypeDate, FieldTypeEnum}
}

// Valid reports whether t is one of the recognised kinds.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeInteger, FieldTypeDecimal, FieldTypeDate, FieldTypeEnum:
		return true
	default:
		return false
	}
}

// AllowedRules returns the rule keys legal for the field type.
func (t FieldType) AllowedRules() []string {
	switch t {
	case FieldTypeText:
		return []string{RuleMaxLength}
	case FieldTypeInteger, FieldTypeDecimal:
		return []string{RuleMin, RuleMax}
	case FieldTypeDate:
		return []string{RuleMinDate, RuleMaxDate}
	default:
		return nil
	}
}

// Rule holds the constraints attached to a field. Only the members that are
// legal for the field's type can be set; nil means "no bound".
type Rule struct {
	MaxLength *int        `json:"max_length,omitempty"`
	Min       *float64    `json:"min,omitempty"`
	Max       *float64    `json:"max,omitempty"`
	MinDate   *civil.Date `json:"min_date,omitempty"`
	MaxDate   *civil.Date `json:"max_date,omitempty"`
}

// Empty reports whether no constraint is set.
func (r Rule) Empty() bool {
	return r.MaxLength == nil && r.Min == nil && r.Max == nil && r.MinDate == nil && r.MaxDate == nil
}

// Field is one named, typed parameter within a schema.
type Field struct {
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
	Label      string    `json:"label"`
	Required   bool      `json:"required"`
	Validation Rule      `json:"validation,omitempty"`
	Options    []string  `json:"options,omitempty"`
}

// HasOption reports whether value is one of the enum options (exact match).
func (f Field) HasOption(value string) bool {
	for _, option := range f.Options {
		if option == value {
			return true
		}
	}
	return false
}

// ParameterSchema describes the submittable parameters of a single job.
type ParameterSchema struct {
	JobName     string  `json:"job_name"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description,omitempty"`
	Parameters  []Field `json:"parameters"`
	// Source is the location of the document the schema was parsed from.
	Source string `json:"-"`
}

// Field returns the parameter with the given name.
func (s ParameterSchema) Field(name string) (Field, bool) {
	for _, field := range s.Parameters {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// FieldNames returns the parameter names in declaration order.
func (s ParameterSchema) FieldNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for _, field := range s.Parameters {
		names = append(names, field.Name)
	}
	return names
}
