package tui

import (
	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/schema"
	"github.com/goliatone/go-jobform/pkg/validation"
)

// State tracks the answers collected so far for one schema and the errors
// carried over from an earlier submit. Declared answers live in a form.Form;
// prefilled keys the schema does not declare pass through untouched so the
// submit step can report them.
type State struct {
	form   *form.Form
	extra  map[string]string
	errors map[string][]string
}

// NewState seeds the state for s with prefilled values and errors.
func NewState(s schema.ParameterSchema, prefill map[string]string, errs map[string][]string) *State {
	state := &State{
		form:   form.New(s),
		extra:  make(map[string]string),
		errors: cloneErrors(errs),
	}
	for name, value := range prefill {
		if !state.form.Set(name, value) {
			state.extra[name] = value
		}
	}
	return state
}

// Values returns a copy of the collected answers.
func (s *State) Values() map[string]string {
	if s == nil {
		return nil
	}
	out := cloneValues(s.extra)
	for name, value := range s.form.Values() {
		out[name] = value
	}
	return out
}

// Value returns the answer for name.
func (s *State) Value(name string) string {
	if s == nil {
		return ""
	}
	return s.form.Value(name)
}

// Answer records value for name and checks it. Errors carried over for the
// field are dropped once it has a new answer.
func (s *State) Answer(name, value string) validation.Result {
	s.form.Set(name, value)
	delete(s.errors, name)
	return s.form.CheckField(name)
}

// ErrorsFor returns the errors attached to name: the carried-over ones, or
// the reason the latest answer was rejected.
func (s *State) ErrorsFor(name string) []string {
	if s == nil {
		return nil
	}
	if carried := s.errors[name]; len(carried) > 0 {
		return carried
	}
	if reason := s.form.Error(name); reason != "" {
		return []string{reason}
	}
	return nil
}

func cloneValues(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func cloneErrors(src map[string][]string) map[string][]string {
	out := make(map[string][]string, len(src))
	for k, v := range src {
		out[k] = append([]string(nil), v...)
	}
	return out
}
