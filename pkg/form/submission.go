package form

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-jobform/pkg/schema"
	"github.com/goliatone/go-jobform/pkg/validation"
)

// Entry is one coerced field value within a Submission.
type Entry struct {
	Name  string
	Value validation.Value
}

// Submission is the typed parameter set produced by a successful submit. It
// lists every schema field in declaration order; optional fields left empty
// are present with an absent Value.
type Submission struct {
	JobName string
	Entries []Entry
}

// Get returns the value for name.
func (s Submission) Get(name string) (validation.Value, bool) {
	for _, entry := range s.Entries {
		if entry.Name == name {
			return entry.Value, true
		}
	}
	return validation.Value{}, false
}

// Len returns the number of entries, absent ones included.
func (s Submission) Len() int {
	return len(s.Entries)
}

// Map returns the entries keyed by name.
func (s Submission) Map() map[string]validation.Value {
	out := make(map[string]validation.Value, len(s.Entries))
	for _, entry := range s.Entries {
		out[entry.Name] = entry.Value
	}
	return out
}

// MarshalJSON encodes the submission as an object of field values.
func (s Submission) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// FieldErrors maps a field name to its rejection reason.
type FieldErrors map[string]string

// Names returns the rejected field names sorted alphabetically.
func (e FieldErrors) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError reports every field rejected during a submit.
type ValidationError struct {
	JobName string
	Fields  FieldErrors
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "form: validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, name := range e.Fields.Names() {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("form: %s: %d invalid field(s): %s", e.JobName, len(e.Fields), strings.Join(parts, "; "))
}

// Submit validates raw against every field in s. It returns the Submission
// when all fields are accepted, or a *ValidationError carrying one reason per
// rejected field. Keys in raw that the schema does not declare are ignored;
// see Unknown.
func Submit(s schema.ParameterSchema, raw map[string]string) (Submission, error) {
	submission := Submission{JobName: s.JobName, Entries: make([]Entry, 0, len(s.Parameters))}
	errs := FieldErrors{}

	for _, field := range s.Parameters {
		result := validation.Validate(field, raw[field.Name])
		if !result.Valid() {
			errs[field.Name] = result.Reason
			continue
		}
		submission.Entries = append(submission.Entries, Entry{Name: field.Name, Value: result.Value})
	}

	if len(errs) > 0 {
		return Submission{}, &ValidationError{JobName: s.JobName, Fields: errs}
	}
	return submission, nil
}

// Unknown lists the keys of raw that s does not declare, sorted.
func Unknown(s schema.ParameterSchema, raw map[string]string) []string {
	var unknown []string
	for key := range raw {
		if _, ok := s.Field(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}
