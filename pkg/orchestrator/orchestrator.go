package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	theme "github.com/goliatone/go-theme"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/renderers/vanilla"
	"github.com/goliatone/go-jobform/pkg/schema"
)

const (
	defaultRendererName = "vanilla"
	// DefaultTarget is the deployment target used when neither the request
	// nor the configuration names one.
	DefaultTarget = "dev"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithCatalog supplies the loaded job schemas.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *Orchestrator) {
		o.catalog = c
	}
}

// WithBackend sets the remote job system. A resolver and client are built
// over it unless WithResolver or WithClient provide them.
func WithBackend(backend jobs.Backend) Option {
	return func(o *Orchestrator) {
		o.backend = backend
	}
}

// WithResolver injects a configured job resolver.
func WithResolver(r *jobs.Resolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithClient injects a configured submission client.
func WithClient(c *jobs.Client) Option {
	return func(o *Orchestrator) {
		o.client = c
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithTarget sets the deployment target used when a request has none. "-"
// disables qualification.
func WithTarget(target string) Option {
	return func(o *Orchestrator) {
		o.target = strings.TrimSpace(target)
	}
}

// WithLogger routes pipeline diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an observer notified after every pipeline stage.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// WithTheme resolves name and variant through selector for every rendered
// page that does not carry its own theme config.
func WithTheme(selector theme.ThemeSelector, name, variant string) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
		o.themeName = name
		o.themeVariant = variant
	}
}

// Orchestrator coordinates the submit pipeline and form rendering. It applies
// sensible defaults (vanilla renderer, "dev" target) while remaining open to
// dependency injection for advanced callers.
type Orchestrator struct {
	catalog         *catalog.Catalog
	backend         jobs.Backend
	resolver        *jobs.Resolver
	client          *jobs.Client
	registry        *render.Registry
	defaultRenderer string
	target          string
	logger          logrus.FieldLogger
	observers       observers
	themeSelector   theme.ThemeSelector
	themeName       string
	themeVariant    string
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations so callers
// can start with a single constructor call.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		target:          DefaultTarget,
		logger:          logrus.StandardLogger(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one submission attempt.
type Request struct {
	// JobName selects the schema from the catalog.
	JobName string
	// Raw holds the user's input keyed by parameter name. Keys the schema
	// does not declare are ignored and reported in Outcome.Unknown.
	Raw map[string]string
	// Target overrides the configured deployment target. Empty keeps the
	// default; "-" disables qualification.
	Target string
}

// Outcome carries whatever the pipeline produced before it stopped.
type Outcome struct {
	Schema      schema.ParameterSchema
	Target      string
	Submission  form.Submission
	FieldErrors form.FieldErrors
	Unknown     []string
	Job         jobs.ResolvedJob
	Run         jobs.RunHandle
}

// Submitted reports whether a run was triggered.
func (o Outcome) Submitted() bool {
	return o.Run.RunID != ""
}

// Catalog returns the configured catalog.
func (o *Orchestrator) Catalog() *catalog.Catalog {
	return o.catalog
}

// Registry returns the renderer registry.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

// Target returns the effective deployment target for requested.
func (o *Orchestrator) Target(requested string) string {
	if t := strings.TrimSpace(requested); t != "" {
		return t
	}
	return o.target
}

// Submit validates req.Raw against the job's schema, resolves the job on the
// backend and triggers exactly one run. Validation happens before any remote
// call; a rejected submission returns a *form.ValidationError with the
// reasons also copied to Outcome.FieldErrors. Resolution failures surface as
// *jobs.NotFoundError, *jobs.AmbiguousError or *jobs.LookupError and submit
// failures as *jobs.SubmissionError.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Outcome, error) {
	if ctx == nil {
		return Outcome{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if err := o.initialiseErr; err != nil {
		return Outcome{}, err
	}
	if o.catalog == nil {
		return Outcome{}, errors.New("orchestrator: catalog is nil")
	}

	s, err := o.catalog.Get(req.JobName)
	if err != nil {
		return Outcome{}, fmt.Errorf("orchestrator: %w", err)
	}

	outcome := Outcome{Schema: s, Target: o.Target(req.Target), Unknown: form.Unknown(s, req.Raw)}
	log := o.logger.WithFields(logrus.Fields{"job": s.JobName, "target": outcome.Target})
	if len(outcome.Unknown) > 0 {
		log.WithField("unknown", outcome.Unknown).Debug("ignoring undeclared parameters")
	}

	started := time.Now()
	submission, err := form.Submit(s, req.Raw)
	o.observe(StageValidate, outcome, err, started)
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			outcome.FieldErrors = verr.Fields
		}
		log.WithField("fields", outcome.FieldErrors.Names()).Debug("submission rejected")
		return outcome, err
	}
	outcome.Submission = submission

	if o.resolver == nil || o.client == nil {
		return outcome, errors.New("orchestrator: no job backend configured")
	}

	started = time.Now()
	resolved, err := o.resolver.Resolve(ctx, s.JobName, outcome.Target)
	o.observe(StageResolve, outcome, err, started)
	if err != nil {
		return outcome, err
	}
	outcome.Job = resolved

	started = time.Now()
	handle, err := o.client.SubmitRun(ctx, resolved.JobID, submission)
	o.observe(StageSubmit, outcome, err, started)
	if err != nil {
		return outcome, err
	}
	outcome.Run = handle

	log.WithFields(logrus.Fields{"job_id": handle.JobID, "run_id": handle.RunID}).Info("run submitted")
	return outcome, nil
}

func (o *Orchestrator) observe(stage Stage, outcome Outcome, err error, started time.Time) {
	if len(o.observers) == 0 {
		return
	}
	o.observers.Observe(Event{
		Stage:    stage,
		JobName:  outcome.Schema.JobName,
		Target:   outcome.Target,
		Err:      err,
		Duration: time.Since(started),
	})
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}
	renderer, err := o.registry.Lookup(name, o.defaultRenderer)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.resolver == nil && o.backend != nil {
		o.resolver = jobs.NewResolver(o.backend, jobs.WithResolverLogger(o.logger))
	}
	if o.client == nil && o.backend != nil {
		o.client = jobs.NewClient(o.backend, jobs.WithClientLogger(o.logger))
	}
	if o.registry == nil {
		renderer, err := vanilla.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
			return
		}
		o.registry, o.initialiseErr = render.NewRegistry(renderer)
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
	if o.target == "" {
		o.target = DefaultTarget
	}
}
