// Package tui collects job parameters interactively in a terminal. Every
// answer is checked with the same validator the HTTP form uses and the field
// is asked again until it is accepted.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/schema"
)

// skipOption is the extra choice offered for optional enum fields.
const skipOption = "(none)"

// Renderer implements render.Renderer for terminal-driven sessions.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	maxAttempts  int
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{outputFormat: OutputFormatJSON}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	if r.driver == nil {
		driver, err := newSurveyDriver()
		if err != nil {
			return nil, err
		}
		r.driver = driver
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render prompts for every field of s and serializes the answers in the
// configured output format.
func (r *Renderer) Render(ctx context.Context, s schema.ParameterSchema, opts render.RenderOptions) ([]byte, error) {
	values, err := r.Collect(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	return r.serialize(s, values)
}

// Collect prompts for every field of s in declaration order and returns the
// raw answers keyed by field name, ready for form.Submit. opts.Values seed
// the defaults and opts.Errors are shown before the matching prompt.
func (r *Renderer) Collect(ctx context.Context, s schema.ParameterSchema, opts render.RenderOptions) (map[string]string, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s = render.LocalizeSchema(s, opts)
	errs := cloneErrors(opts.Errors)
	render.LocalizeReasons(errs, opts)
	state := NewState(s, opts.Values, errs)

	header := s.DisplayName
	if s.Description != "" {
		header += "\n" + s.Description
	}
	if err := r.info(ctx, r.theme.InfoPrefix, header); err != nil {
		return nil, err
	}
	for _, msg := range render.MergeFormErrors(opts.FormErrors) {
		if err := r.info(ctx, r.theme.ErrorPrefix, msg); err != nil {
			return nil, err
		}
	}

	for _, field := range s.Parameters {
		for _, reason := range state.ErrorsFor(field.Name) {
			if err := r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("%s: %s", field.Label, reason)); err != nil {
				return nil, err
			}
		}
		if err := r.promptField(ctx, field, state, opts); err != nil {
			return nil, err
		}
	}
	return state.Values(), nil
}

// ConfirmSubmit prints the collected answers and asks before anything is
// sent. It returns ErrDeclined when the user answers no.
func (r *Renderer) ConfirmSubmit(ctx context.Context, s schema.ParameterSchema, values map[string]string, target string) error {
	summary := prettyPrint(s, values)
	if err := r.info(ctx, r.theme.InfoPrefix, summary); err != nil {
		return err
	}
	message := fmt.Sprintf("Run %s", s.JobName)
	if target != "" {
		message += fmt.Sprintf(" on %s", target)
	}
	ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message + "?", Default: true})
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}

func (r *Renderer) promptField(ctx context.Context, field schema.Field, state *State, opts render.RenderOptions) error {
	ask := r.promptInput
	if field.Type == schema.FieldTypeEnum {
		ask = r.promptEnum
	}

	for attempt := 1; ; attempt++ {
		answer, err := ask(ctx, field, state.Value(field.Name))
		if err != nil {
			return err
		}

		result := state.Answer(field.Name, answer)
		if result.Valid() {
			return nil
		}

		reason := localizeReason(field.Name, result.Reason, opts)
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return &AttemptsError{Field: field.Name, Attempts: attempt, Reason: reason}
		}
		if err := r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("Invalid %s: %s", field.Label, reason)); err != nil {
			return err
		}
	}
}

func (r *Renderer) promptInput(ctx context.Context, field schema.Field, current string) (string, error) {
	return r.driver.Input(ctx, InputConfig{
		Message: r.message(field),
		Default: current,
		Help:    render.Hint(field),
	})
}

func (r *Renderer) promptEnum(ctx context.Context, field schema.Field, current string) (string, error) {
	options := append([]string(nil), field.Options...)
	if !field.Required {
		options = append([]string{skipOption}, options...)
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      r.message(field),
		Options:      options,
		DefaultIndex: indexOf(options, current),
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		// Out of range answers fall through to the validator as an
		// unknown option.
		return fmt.Sprintf("#%d", idx), nil
	}
	if options[idx] == skipOption && !field.Required {
		return "", nil
	}
	return options[idx], nil
}

func (r *Renderer) message(field schema.Field) string {
	label := field.Label
	if field.Required {
		label += " *"
	}
	return r.theme.PromptPrefix + label
}

func (r *Renderer) info(ctx context.Context, prefix, msg string) error {
	if strings.TrimSpace(msg) == "" {
		return nil
	}
	return r.driver.Info(ctx, prefix+msg)
}

func localizeReason(name, reason string, opts render.RenderOptions) string {
	errs := map[string][]string{name: {reason}}
	render.LocalizeReasons(errs, opts)
	return errs[name][0]
}

func (r *Renderer) serialize(s schema.ParameterSchema, values map[string]string) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(s, values)), nil
	default:
		return jsonBytes(values)
	}
}

func flattenForm(values map[string]string) string {
	encoded := url.Values{}
	for key, value := range values {
		if value == "" {
			continue
		}
		encoded.Set(key, value)
	}
	return encoded.Encode()
}

// prettyPrint lists answers in schema order, one "label: value" per line.
func prettyPrint(s schema.ParameterSchema, values map[string]string) string {
	var b strings.Builder
	for _, field := range s.Parameters {
		value := values[field.Name]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&b, "%s: %s\n", field.Label, value)
	}
	return b.String()
}

func jsonBytes(values map[string]string) ([]byte, error) {
	out := make(map[string]string, len(values))
	for key, value := range values {
		if value == "" {
			continue
		}
		out[key] = value
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("tui: encode values: %w", err)
	}
	return data, nil
}

var _ render.Renderer = (*Renderer)(nil)
