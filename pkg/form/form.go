package form

import (
	"github.com/goliatone/go-jobform/pkg/schema"
	"github.com/goliatone/go-jobform/pkg/validation"
)

// Form holds the raw answers and the latest per-field errors for one schema
// while they are being collected. A Form belongs to a single session and is
// not safe for concurrent use; Submit turns the final answers into typed
// parameters.
type Form struct {
	schema schema.ParameterSchema
	values map[string]string
	errors FieldErrors
}

// New returns an empty form for s.
func New(s schema.ParameterSchema) *Form {
	return &Form{
		schema: s,
		values: make(map[string]string, len(s.Parameters)),
	}
}

// Set stores the raw value for name. Names the schema does not declare are
// ignored and reported as false.
func (f *Form) Set(name, raw string) bool {
	if _, ok := f.schema.Field(name); !ok {
		return false
	}
	f.values[name] = raw
	return true
}

// Value returns the raw value currently held for name.
func (f *Form) Value(name string) string {
	return f.values[name]
}

// Values returns a copy of the raw values.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Error returns the reason the current value of name was rejected, if any.
func (f *Form) Error(name string) string {
	return f.errors[name]
}

// CheckField validates the single field name against its current value and
// records or clears its error.
func (f *Form) CheckField(name string) validation.Result {
	field, ok := f.schema.Field(name)
	if !ok {
		return validation.Result{Reason: "unknown field"}
	}
	result := validation.Validate(field, f.values[name])
	if f.errors == nil {
		f.errors = FieldErrors{}
	}
	if result.Valid() {
		delete(f.errors, name)
	} else {
		f.errors[name] = result.Reason
	}
	return result
}
