package schema

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MaxExactInteger is the largest magnitude an integer field bound may have;
// beyond it a float64 bound no longer names a single integer.
const MaxExactInteger = 1 << 53

type documentFile struct {
	JobName     string      `yaml:"job_name"`
	DisplayName string      `yaml:"display_name"`
	Description string      `yaml:"description"`
	Parameters  []fieldFile `yaml:"parameters"`
}

type fieldFile struct {
	Name       string               `yaml:"name"`
	Type       string               `yaml:"type"`
	Label      string               `yaml:"label"`
	Required   bool                 `yaml:"required"`
	Validation map[string]yaml.Node `yaml:"validation"`
	Options    []string             `yaml:"options"`
}

// Parse decodes a YAML or JSON schema document and normalises it into a
// ParameterSchema. Every failure is returned as a *ParseError carrying the
// document location; no partially built schema is ever returned alongside an
// error.
func Parse(doc Document) (ParameterSchema, error) {
	source := doc.Location()
	if doc.Empty() {
		return ParameterSchema{}, parseErrorf(source, "", "document is empty")
	}

	raw := doc.Raw()
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return ParameterSchema{}, &ParseError{Source: source, Message: "invalid " + strings.ToUpper(string(doc.Format())), Cause: err}
	}
	if _, ok := generic.(map[string]any); !ok {
		return ParameterSchema{}, parseErrorf(source, "", "document must be a mapping")
	}
	if err := checkStructure(source, generic); err != nil {
		return ParameterSchema{}, err
	}

	var file documentFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return ParameterSchema{}, &ParseError{Source: source, Message: "decode document", Cause: err}
	}

	return normaliseDocument(file, source)
}

// ParseBytes is a convenience wrapper around Parse for in-memory payloads.
func ParseBytes(location string, raw []byte) (ParameterSchema, error) {
	doc, err := NewDocument(SourceFromFS(location), raw)
	if err != nil {
		return ParameterSchema{}, err
	}
	return Parse(doc)
}

func normaliseDocument(file documentFile, source string) (ParameterSchema, error) {
	jobName := strings.TrimSpace(file.JobName)
	if jobName == "" {
		return ParameterSchema{}, parseErrorf(source, "", "job_name is required")
	}

	out := ParameterSchema{
		JobName:     jobName,
		DisplayName: strings.TrimSpace(file.DisplayName),
		Description: strings.TrimSpace(file.Description),
		Parameters:  make([]Field, 0, len(file.Parameters)),
		Source:      source,
	}
	if out.DisplayName == "" {
		out.DisplayName = jobName
	}

	seen := make(map[string]struct{}, len(file.Parameters))
	for idx, raw := range file.Parameters {
		field, err := normaliseField(raw, idx, source)
		if err != nil {
			return ParameterSchema{}, err
		}
		if _, exists := seen[field.Name]; exists {
			return ParameterSchema{}, parseErrorf(source, field.Name, "duplicate parameter name")
		}
		seen[field.Name] = struct{}{}
		out.Parameters = append(out.Parameters, field)
	}

	return out, nil
}

func normaliseField(raw fieldFile, idx int, source string) (Field, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Field{}, parseErrorf(source, "", "parameters[%d]: name is required", idx)
	}
	if !identifierPattern.MatchString(name) {
		return Field{}, parseErrorf(source, name, "name must be a valid identifier")
	}

	fieldType := FieldType(strings.ToLower(strings.TrimSpace(raw.Type)))
	if !fieldType.Valid() {
		return Field{}, parseErrorf(source, name, "unknown type %q (expected one of %s)", raw.Type, joinTypes(FieldTypes()))
	}

	field := Field{
		Name:     name,
		Type:     fieldType,
		Label:    strings.TrimSpace(raw.Label),
		Required: raw.Required,
	}
	if field.Label == "" {
		field.Label = name
	}

	options, err := normaliseOptions(fieldType, raw.Options, name, source)
	if err != nil {
		return Field{}, err
	}
	field.Options = options

	rule, err := normaliseRule(fieldType, raw.Validation, name, source)
	if err != nil {
		return Field{}, err
	}
	field.Validation = rule

	return field, nil
}

func normaliseOptions(fieldType FieldType, raw []string, name, source string) ([]string, error) {
	if fieldType != FieldTypeEnum {
		if len(raw) > 0 {
			return nil, parseErrorf(source, name, "options are only allowed on enum fields")
		}
		return nil, nil
	}
	if len(raw) == 0 {
		return nil, parseErrorf(source, name, "enum fields require a non-empty options list")
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, option := range raw {
		if strings.TrimSpace(option) == "" {
			return nil, parseErrorf(source, name, "options must not contain empty values")
		}
		if _, exists := seen[option]; exists {
			return nil, parseErrorf(source, name, "duplicate option %q", option)
		}
		seen[option] = struct{}{}
		out = append(out, option)
	}
	return out, nil
}

func normaliseRule(fieldType FieldType, raw map[string]yaml.Node, name, source string) (Rule, error) {
	var rule Rule
	if len(raw) == 0 {
		return rule, nil
	}

	allowed := make(map[string]struct{})
	for _, key := range fieldType.AllowedRules() {
		allowed[key] = struct{}{}
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, ok := allowed[key]; !ok {
			return Rule{}, parseErrorf(source, name, "validation rule %q is not valid for %s fields", key, fieldType)
		}
		node := raw[key]
		switch key {
		case RuleMaxLength:
			var limit int
			if err := node.Decode(&limit); err != nil || limit <= 0 {
				return Rule{}, parseErrorf(source, name, "%s must be a positive integer", key)
			}
			rule.MaxLength = &limit
		case RuleMin, RuleMax:
			var bound float64
			if err := node.Decode(&bound); err != nil {
				return Rule{}, parseErrorf(source, name, "%s must be numeric", key)
			}
			if fieldType == FieldTypeInteger && math.Abs(bound) > MaxExactInteger {
				return Rule{}, parseErrorf(source, name, "%s must be between -%d and %d for integer fields", key, MaxExactInteger, MaxExactInteger)
			}
			if key == RuleMin {
				rule.Min = &bound
			} else {
				rule.Max = &bound
			}
		case RuleMinDate, RuleMaxDate:
			date, err := civil.ParseDate(strings.TrimSpace(node.Value))
			if err != nil || node.Kind != yaml.ScalarNode {
				return Rule{}, parseErrorf(source, name, "%s must be a calendar date (YYYY-MM-DD)", key)
			}
			if key == RuleMinDate {
				rule.MinDate = &date
			} else {
				rule.MaxDate = &date
			}
		}
	}

	if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
		return Rule{}, parseErrorf(source, name, "min (%s) is greater than max (%s)", FormatNumber(*rule.Min), FormatNumber(*rule.Max))
	}
	if rule.MinDate != nil && rule.MaxDate != nil && rule.MinDate.After(*rule.MaxDate) {
		return Rule{}, parseErrorf(source, name, "min_date (%s) is after max_date (%s)", rule.MinDate, rule.MaxDate)
	}
	return rule, nil
}

func joinTypes(types []FieldType) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ", ")
}

// FormatNumber renders a bound or value in its shortest decimal form (1000,
// 2.5) without exponent notation.
func FormatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
