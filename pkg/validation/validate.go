package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/civil"

	"github.com/goliatone/go-jobform/pkg/schema"
)

// Fixed rejection reasons. Bound violations are built with the helpers below
// because they embed the limit.
const (
	ReasonRequired      = "required"
	ReasonNotANumber    = "not a number"
	ReasonNotADate      = "not a date"
	ReasonInvalidOption = "not a valid option"
)

// decimalPattern accepts plain decimal notation with an optional exponent.
// strconv.ParseFloat alone would also take hex floats and digit separators.
var decimalPattern = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// Result is the verdict for a single raw value. A Result with an empty Reason
// is valid and carries the coerced Value.
type Result struct {
	Value  Value
	Reason string
}

// Valid reports whether the raw value was accepted.
func (r Result) Valid() bool {
	return r.Reason == ""
}

func accept(v Value) Result {
	return Result{Value: v}
}

func reject(t schema.FieldType, reason string) Result {
	return Result{Value: Absent(t), Reason: reason}
}

// MaxLengthExceeded formats the reason for a text longer than limit.
func MaxLengthExceeded(limit int) string {
	return fmt.Sprintf("max_length exceeded (%d)", limit)
}

// MinNotMet formats the reason for a number below min.
func MinNotMet(min float64) string {
	return fmt.Sprintf("min not met (%s)", schema.FormatNumber(min))
}

// MaxExceeded formats the reason for a number above max.
func MaxExceeded(max float64) string {
	return fmt.Sprintf("max exceeded (%s)", schema.FormatNumber(max))
}

// MinDateNotMet formats the reason for a date before min_date.
func MinDateNotMet(d civil.Date) string {
	return fmt.Sprintf("min_date not met (%s)", d)
}

// MaxDateExceeded formats the reason for a date after max_date.
func MaxDateExceeded(d civil.Date) string {
	return fmt.Sprintf("max_date exceeded (%s)", d)
}

// IsEmpty reports whether raw counts as "no value" (absent or whitespace
// only).
func IsEmpty(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

// Validate checks raw against field. Precedence: required, optional-empty
// short circuit, type coercion, then the field's bounds. It is pure: the same
// inputs always produce the same Result.
func Validate(field schema.Field, raw string) Result {
	if IsEmpty(raw) {
		if field.Required {
			return reject(field.Type, ReasonRequired)
		}
		return accept(Absent(field.Type))
	}

	switch field.Type {
	case schema.FieldTypeText:
		return validateText(field, raw)
	case schema.FieldTypeInteger:
		return validateInteger(field, raw)
	case schema.FieldTypeDecimal:
		return validateDecimal(field, raw)
	case schema.FieldTypeDate:
		return validateDate(field, raw)
	case schema.FieldTypeEnum:
		if !field.HasOption(raw) {
			return reject(field.Type, ReasonInvalidOption)
		}
		return accept(TextValue(field.Type, raw))
	default:
		return reject(field.Type, fmt.Sprintf("unsupported type %q", field.Type))
	}
}

func validateText(field schema.Field, raw string) Result {
	if limit := field.Validation.MaxLength; limit != nil && utf8.RuneCountInString(raw) > *limit {
		return reject(field.Type, MaxLengthExceeded(*limit))
	}
	return accept(TextValue(field.Type, raw))
}

func validateInteger(field schema.Field, raw string) Result {
	parsed, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return reject(field.Type, ReasonNotANumber)
	}
	if reason := checkIntegerRange(field.Validation, parsed); reason != "" {
		return reject(field.Type, reason)
	}
	return accept(IntValue(parsed))
}

func validateDecimal(field schema.Field, raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if !decimalPattern.MatchString(trimmed) {
		return reject(field.Type, ReasonNotANumber)
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return reject(field.Type, ReasonNotANumber)
	}
	if reason := checkRange(field.Validation, parsed); reason != "" {
		return reject(field.Type, reason)
	}
	return accept(DecimalValue(parsed))
}

// checkIntegerRange compares in int64 so values beyond 2^53 are not rounded
// onto a bound. Integer bounds are limited to schema.MaxExactInteger at load.
func checkIntegerRange(rule schema.Rule, value int64) string {
	if rule.Min != nil && value < int64(math.Ceil(*rule.Min)) {
		return MinNotMet(*rule.Min)
	}
	if rule.Max != nil && value > int64(math.Floor(*rule.Max)) {
		return MaxExceeded(*rule.Max)
	}
	return ""
}

func checkRange(rule schema.Rule, value float64) string {
	if rule.Min != nil && value < *rule.Min {
		return MinNotMet(*rule.Min)
	}
	if rule.Max != nil && value > *rule.Max {
		return MaxExceeded(*rule.Max)
	}
	return ""
}

func validateDate(field schema.Field, raw string) Result {
	parsed, err := civil.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return reject(field.Type, ReasonNotADate)
	}
	rule := field.Validation
	if rule.MinDate != nil && parsed.Before(*rule.MinDate) {
		return reject(field.Type, MinDateNotMet(*rule.MinDate))
	}
	if rule.MaxDate != nil && parsed.After(*rule.MaxDate) {
		return reject(field.Type, MaxDateExceeded(*rule.MaxDate))
	}
	return accept(DateValue(parsed))
}
