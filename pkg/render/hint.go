package render

import (
	"fmt"

	"github.com/goliatone/go-jobform/pkg/schema"
)

// Hint describes a field's bounds in words. Renderers show it next to the
// control or prompt; it is empty for unbounded text and enum fields.
func Hint(field schema.Field) string {
	rule := field.Validation
	switch {
	case rule.MaxLength != nil:
		return fmt.Sprintf("At most %d characters", *rule.MaxLength)
	case rule.Min != nil && rule.Max != nil:
		return fmt.Sprintf("Between %s and %s", schema.FormatNumber(*rule.Min), schema.FormatNumber(*rule.Max))
	case rule.Min != nil:
		return "At least " + schema.FormatNumber(*rule.Min)
	case rule.Max != nil:
		return "At most " + schema.FormatNumber(*rule.Max)
	case rule.MinDate != nil && rule.MaxDate != nil:
		return fmt.Sprintf("From %s to %s", rule.MinDate, rule.MaxDate)
	case rule.MinDate != nil:
		return "On or after " + rule.MinDate.String()
	case rule.MaxDate != nil:
		return "On or before " + rule.MaxDate.String()
	case field.Type == schema.FieldTypeDate:
		return "YYYY-MM-DD"
	default:
		return ""
	}
}
