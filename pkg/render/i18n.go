package render

import (
	"errors"
	"strings"

	"github.com/goliatone/go-jobform/pkg/schema"
)

// Translator resolves message keys for a locale. It matches the shape of
// common i18n bundles so callers can adapt theirs with a one-line wrapper.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler decides what to show when a key cannot be
// translated. params carries the call arguments; the last element is a map
// holding the "default" fallback when one exists.
type MissingTranslationHandler func(locale, key string, params []any, err error) string

// ErrMissingTranslator is passed to MissingTranslationHandler when no
// Translator was configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translation keys derived from a schema:
//
//	jobs.<job_name>.title
//	jobs.<job_name>.description
//	jobs.<job_name>.fields.<name>.label
//	validation.<reason words joined by "_">   (bound passed as first arg)
const (
	jobKeyPrefix        = "jobs."
	validationKeyPrefix = "validation."
)

// LocalizeSchema returns a copy of s with display name, description and
// labels translated. Keys without a translation keep the schema's text.
func LocalizeSchema(s schema.ParameterSchema, opts RenderOptions) schema.ParameterSchema {
	if opts.Translator == nil && opts.OnMissing == nil {
		return s
	}
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}

	out := s
	base := jobKeyPrefix + s.JobName
	out.DisplayName = translate(opts.Locale, base+".title", s.DisplayName, opts.Translator, onMissing)
	if s.Description != "" {
		out.Description = translate(opts.Locale, base+".description", s.Description, opts.Translator, onMissing)
	}
	out.Parameters = make([]schema.Field, len(s.Parameters))
	for i, field := range s.Parameters {
		field.Label = translate(opts.Locale, base+".fields."+field.Name+".label", field.Label, opts.Translator, onMissing)
		out.Parameters[i] = field
	}
	return out
}

// LocalizeReasons translates validator reasons in place. A reason such as
// "max exceeded (1000)" is looked up as "validation.max_exceeded" with "1000"
// as its argument.
func LocalizeReasons(errs map[string][]string, opts RenderOptions) {
	if len(errs) == 0 || opts.Translator == nil {
		return
	}
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	for name, reasons := range errs {
		for i, reason := range reasons {
			key, args := ReasonKey(reason)
			msg, err := opts.Translator.Translate(opts.Locale, key, args...)
			if err != nil || strings.TrimSpace(msg) == "" {
				msg = onMissing(opts.Locale, key, append(args, map[string]any{"default": reason}), err)
			}
			errs[name][i] = msg
		}
	}
}

// ReasonKey derives the translation key and arguments for a validator reason.
func ReasonKey(reason string) (string, []any) {
	reason = strings.TrimSpace(reason)
	base, bound := reason, ""
	if idx := strings.Index(reason, " ("); idx >= 0 && strings.HasSuffix(reason, ")") {
		base = reason[:idx]
		bound = reason[idx+2 : len(reason)-1]
	}
	key := validationKeyPrefix + strings.ReplaceAll(strings.ToLower(base), " ", "_")
	if bound == "" {
		return key, nil
	}
	return key, []any{bound}
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	if t == nil {
		return onMissing(locale, key, []any{map[string]any{"default": fallback}}, ErrMissingTranslator)
	}

	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, []any{map[string]any{"default": fallback}}, err)
}

func missingTranslationDefault(_ string, key string, params []any, _ error) string {
	if len(params) > 0 {
		if m, ok := params[len(params)-1].(map[string]any); ok {
			if fallback, ok := m["default"].(string); ok && strings.TrimSpace(fallback) != "" {
				return fallback
			}
		}
	}
	return key
}
