// Package vanilla renders job forms and the job picker as server-side HTML
// without client scripts.
package vanilla

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-jobform/pkg/render"
	rendertemplate "github.com/goliatone/go-jobform/pkg/render/template"
	gotemplate "github.com/goliatone/go-jobform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-jobform/pkg/schema"
)

const (
	formTemplate   = "form.tmpl"
	pickerTemplate = "picker.tmpl"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templatesDir     string
	templateRenderer rendertemplate.TemplateRenderer
	templateFuncs    map[string]any
	stylesheetURL    string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk through the
// go-template engine. The directory must provide form.tmpl and picker.tmpl.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templatesDir = strings.TrimSpace(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithTemplateFuncs exposes extra helpers to the templates, for example
// render.TemplateI18nFuncs.
func WithTemplateFuncs(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFuncs == nil {
			cfg.templateFuncs = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFuncs[name] = fn
		}
	}
}

// WithStylesheetURL links an external stylesheet instead of inlining the
// default one. A theme stylesheet still takes precedence.
func WithStylesheetURL(url string) Option {
	return func(cfg *config) {
		cfg.stylesheetURL = strings.TrimSpace(url)
	}
}

// Renderer produces HTML pages for job forms and the picker.
type Renderer struct {
	templates     rendertemplate.TemplateRenderer
	policy        *bluemonday.Policy
	stylesheetURL string
}

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil && cfg.templatesDir != "" {
		engine, err := gotemplate.NewDirRenderer(cfg.templatesDir, ".tmpl", cfg.templateFuncs)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
			gotemplate.WithTemplateFunc(cfg.templateFuncs),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:     renderer,
		policy:        descriptionPolicy(),
		stylesheetURL: cfg.stylesheetURL,
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the form page for s. Values and errors from opts are
// shown inline; opts.Run switches the page to the submission receipt.
func (r *Renderer) Render(ctx context.Context, s schema.ParameterSchema, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s = render.LocalizeSchema(s, opts)
	errs := cloneErrors(opts.Errors)
	render.LocalizeReasons(errs, opts)
	opts.Errors = errs

	page := r.page(s.DisplayName, s.Description, opts)
	page.Form = buildFormView(s, opts)
	page.Run = buildRunView(opts.Run)
	return r.execute(formTemplate, page)
}

// RenderPicker produces the job listing page.
func (r *Renderer) RenderPicker(ctx context.Context, picker render.Picker, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if picker.Requested != "" {
		opts.FormErrors = render.MergeFormErrors(opts.FormErrors, fmt.Sprintf("Unknown job %q. Pick one of the jobs below.", picker.Requested))
	}
	page := r.page("Jobs", "", opts)
	view := &pickerView{Requested: picker.Requested, Problems: picker.Problems}
	for _, job := range picker.Jobs {
		entry := pickerJobView{
			JobName:     job.JobName,
			DisplayName: job.DisplayName,
			Description: r.sanitize(job.Description),
			Link:        job.Link,
		}
		for _, p := range job.Parameters {
			entry.Parameters = append(entry.Parameters, p.String())
		}
		view.Jobs = append(view.Jobs, entry)
	}
	page.Picker = view
	return r.execute(pickerTemplate, page)
}

func (r *Renderer) page(title, description string, opts render.RenderOptions) pageView {
	themed, themeStylesheet := buildThemeView(opts.Theme)
	page := pageView{
		Title:       title,
		Description: r.sanitize(description),
		Locale:      opts.Locale,
		Theme:       themed,
		FormErrors:  render.MergeFormErrors(opts.FormErrors),
		Hidden:      buildHidden(opts.Hidden),
	}
	switch {
	case themeStylesheet != "":
		page.Stylesheet = themeStylesheet
	case r.stylesheetURL != "":
		page.Stylesheet = r.stylesheetURL
	default:
		page.InlineCSS = defaultStylesheet()
	}
	return page
}

func (r *Renderer) execute(name string, page pageView) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	data, err := pageData(page)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: encode page: %w", err)
	}
	result, err := r.templates.RenderTemplate(name, map[string]any{"page": data})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

// pageData flattens page into maps keyed by the json tag names the templates
// use, so every engine sees the same shape.
func pageData(page pageView) (map[string]any, error) {
	payload, err := json.Marshal(page)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// sanitize keeps the inline formatting a job description may carry and
// drops everything else. The templates mark the result safe.
func (r *Renderer) sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(r.policy.Sanitize(trimmed))
}

func descriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AllowElements("b", "strong", "i", "em", "code", "br", "p", "ul", "ol", "li")
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowStandardURLs()
	policy.RequireNoFollowOnLinks(true)
	return policy
}

func cloneErrors(in map[string][]string) map[string][]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string][]string, len(in))
	for key, messages := range in {
		out[key] = append([]string(nil), messages...)
	}
	return out
}

var (
	_ render.Renderer       = (*Renderer)(nil)
	_ render.PickerRenderer = (*Renderer)(nil)
)
