package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/schema"
)

// ErrorMapping splits a pipeline error into field-level and form-level
// messages keyed by parameter name.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// Empty reports whether the mapping carries no message.
func (m ErrorMapping) Empty() bool {
	return len(m.Fields) == 0 && len(m.Form) == 0
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// FieldErrorPayload converts per-field reasons into the multi-message shape
// RenderOptions.Errors expects.
func FieldErrorPayload(errs form.FieldErrors) map[string][]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string][]string, len(errs))
	for name, reason := range errs {
		if msgs := normalizeMessages([]string{reason}); len(msgs) > 0 {
			out[name] = msgs
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MapErrors maps an error returned by the submit pipeline onto s. Validation
// reasons for declared parameters become field errors; everything else is a
// form-level message.
func MapErrors(s schema.ParameterSchema, err error) ErrorMapping {
	var mapping ErrorMapping
	if err == nil {
		return mapping
	}

	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		mapping.Form = normalizeMessages([]string{Describe(err)})
		return mapping
	}

	for _, name := range verr.Fields.Names() {
		reason := verr.Fields[name]
		if _, ok := s.Field(name); !ok {
			mapping.Form = append(mapping.Form, name+": "+reason)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[name] = append(mapping.Fields[name], reason)
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// Describe turns a pipeline error into a sentence suitable for end users.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var (
		notFound   *jobs.NotFoundError
		ambiguous  *jobs.AmbiguousError
		lookup     *jobs.LookupError
		submission *jobs.SubmissionError
		duplicate  *catalog.DuplicateError
		verr       *form.ValidationError
	)
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("%d parameter(s) need attention", len(verr.Fields))
	case errors.As(err, &notFound):
		if notFound.Target != "" {
			return fmt.Sprintf("No job named %q is deployed for target %q", notFound.QualifiedName, notFound.Target)
		}
		return fmt.Sprintf("No job named %q was found", notFound.JobName)
	case errors.As(err, &ambiguous):
		return fmt.Sprintf("%d jobs are named %q; remove the duplicates before submitting", len(ambiguous.Candidates), ambiguous.QualifiedName)
	case errors.As(err, &lookup):
		if lookup.Timeout {
			return fmt.Sprintf("Looking up job %q timed out", lookup.JobName)
		}
		return fmt.Sprintf("Could not look up job %q: %v", lookup.JobName, lookup.Err)
	case errors.As(err, &submission):
		if submission.Timeout {
			return "The run request timed out; check the workspace before submitting again"
		}
		return fmt.Sprintf("The run could not be started: %v", submission.Err)
	case errors.As(err, &duplicate):
		return fmt.Sprintf("Job %q is defined more than once (%s)", duplicate.JobName, strings.Join(duplicate.Sources, ", "))
	case errors.Is(err, catalog.ErrNotFound):
		return "Unknown job"
	default:
		return err.Error()
	}
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
