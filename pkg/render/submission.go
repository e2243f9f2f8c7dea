package render

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-jobform/pkg/schema"
)

// TargetFieldName is the hidden input carrying the deployment target of a
// rendered form.
const TargetFieldName = "_target"

// HiddenField represents a hidden form input emitted alongside the schema's
// parameters.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken constructs a hidden field carrying the provided token. Callers
// supply the input name their middleware expects ("_csrf", "csrf_token").
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// TargetField carries the deployment target through a form round-trip.
func TargetField(target string) HiddenField {
	return Hidden(TargetFieldName, target)
}

// MergeHiddenFields returns a copy of base with the provided fields applied.
// Empty names are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	if len(base) == 0 && len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		out[name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields normalises and sorts hidden fields for deterministic
// rendering. Empty names are dropped.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{Name: strings.TrimSpace(name), Value: fields[name]})
	}
	return result
}

// FormValues extracts the raw parameter strings declared by s from a posted
// form. Parameters missing from the post map to "" so the validator sees them
// as empty. The second result is the posted deployment target, if any.
func FormValues(s schema.ParameterSchema, posted url.Values) (map[string]string, string) {
	raw := make(map[string]string, len(s.Parameters))
	for _, field := range s.Parameters {
		raw[field.Name] = posted.Get(field.Name)
	}
	return raw, strings.TrimSpace(posted.Get(TargetFieldName))
}
