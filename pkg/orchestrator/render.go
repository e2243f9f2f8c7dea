package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-jobform/pkg/render"
)

// RenderRequest selects a job form and the renderer that draws it.
type RenderRequest struct {
	// JobName selects the schema from the catalog.
	JobName string
	// Renderer names the renderer to use. If empty, the orchestrator falls
	// back to the configured default renderer.
	Renderer string
	// RenderOptions carries per-request instructions such as prefilled
	// values, field errors or the run receipt.
	RenderOptions render.RenderOptions
}

// RenderForm draws the form for req.JobName.
func (o *Orchestrator) RenderForm(ctx context.Context, req RenderRequest) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	if o.catalog == nil {
		return nil, errors.New("orchestrator: catalog is nil")
	}

	s, err := o.catalog.Get(req.JobName)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	opts, err := o.withTheme(req.RenderOptions)
	if err != nil {
		return nil, err
	}
	if opts.Target == "" {
		opts.Target = o.target
	}
	if _, ok := opts.Hidden[render.TargetFieldName]; !ok {
		opts.Hidden = render.MergeHiddenFields(opts.Hidden, render.TargetField(opts.Target))
	}

	output, err := renderer.Render(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// RenderPicker draws the job listing. requested is the job name the caller
// asked for and could not be found, or empty. link builds each job's URL;
// nil uses render.QueryLink.
func (o *Orchestrator) RenderPicker(ctx context.Context, rendererName, requested string, link func(string) string, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	renderer, err := o.rendererFor(rendererName)
	if err != nil {
		return nil, err
	}
	picker, ok := renderer.(render.PickerRenderer)
	if !ok {
		return nil, fmt.Errorf("orchestrator: renderer %q cannot render the job picker", renderer.Name())
	}

	opts, err = o.withTheme(opts)
	if err != nil {
		return nil, err
	}

	output, err := picker.RenderPicker(ctx, render.NewPicker(o.catalog, requested, link), opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render picker: %w", err)
	}
	return output, nil
}

// ResultOptions prepares the options for re-rendering a form after Submit.
// A failed submission keeps the user's raw values and shows the mapped
// errors; a successful one clears the values and shows the run receipt.
func ResultOptions(req Request, outcome Outcome, err error, base render.RenderOptions) render.RenderOptions {
	opts := base
	opts.Target = outcome.Target
	if err == nil && outcome.Submitted() {
		run := outcome.Run
		opts.Run = &run
		opts.Values = nil
		opts.Errors = nil
		return opts
	}

	opts.Values = cloneValues(req.Raw)
	mapping := render.MapErrors(outcome.Schema, err)
	opts.Errors = mapping.Fields
	if len(mapping.Fields) > 0 {
		mapping.Form = append([]string{render.Describe(err)}, mapping.Form...)
	}
	opts.FormErrors = render.MergeFormErrors(opts.FormErrors, mapping.Form...)
	return opts
}

func (o *Orchestrator) withTheme(opts render.RenderOptions) (render.RenderOptions, error) {
	if opts.Theme != nil || o.themeSelector == nil {
		return opts, nil
	}
	cfg, err := render.ResolveTheme(o.themeSelector, o.themeName, o.themeVariant)
	if err != nil {
		return opts, fmt.Errorf("orchestrator: %w", err)
	}
	opts.Theme = cfg
	return opts, nil
}

func cloneValues(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
