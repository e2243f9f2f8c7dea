package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/jobs/memory"
	"github.com/goliatone/go-jobform/pkg/orchestrator"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/testsupport"
)

const qualifiedRefresh = "[dev alice] inventory_refresh"

type recorder struct {
	mu     sync.Mutex
	events []orchestrator.Event
}

func (r *recorder) Observe(e orchestrator.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) stages() []orchestrator.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]orchestrator.Stage, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}

func newOrchestrator(t *testing.T, backend jobs.Backend, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	base := []orchestrator.Option{
		orchestrator.WithCatalog(testsupport.MustLoadCatalog(t, "testdata/job_configs")),
		orchestrator.WithBackend(backend),
		orchestrator.WithLogger(testsupport.QuietLogger()),
	}
	return orchestrator.New(append(base, opts...)...)
}

func TestSubmit_ValidRunIsTriggeredOnce(t *testing.T) {
	backend := memory.New("alice", jobs.Job{ID: "42", Name: qualifiedRefresh})
	rec := &recorder{}
	o := newOrchestrator(t, backend, orchestrator.WithObserver(rec))

	outcome, err := o.Submit(context.Background(), orchestrator.Request{
		JobName: "inventory_refresh",
		Raw:     map[string]string{"warehouse": "north", "batch_size": "250", "extra": "ignored"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !outcome.Submitted() || outcome.Run.JobID != "42" || outcome.Run.NumberInJob != 1 {
		t.Fatalf("unexpected run handle %#v", outcome.Run)
	}
	if outcome.Run.URL != "memory://jobs/42/runs/"+outcome.Run.RunID {
		t.Fatalf("unexpected run url %q", outcome.Run.URL)
	}
	if diff := cmp.Diff([]string{"extra"}, outcome.Unknown); diff != "" {
		t.Fatalf("unknown mismatch (-want +got):\n%s", diff)
	}

	runs := backend.Runs()
	if len(runs) != 1 {
		t.Fatalf("expected exactly one run, got %d", len(runs))
	}
	want := map[string]string{"warehouse": "north", "batch_size": "250"}
	if diff := cmp.Diff(want, runs[0].Parameters); diff != "" {
		t.Fatalf("parameters mismatch (-want +got):\n%s", diff)
	}

	wantStages := []orchestrator.Stage{orchestrator.StageValidate, orchestrator.StageResolve, orchestrator.StageSubmit}
	if diff := cmp.Diff(wantStages, rec.stages()); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_InvalidInputNeverReachesBackend(t *testing.T) {
	backend := memory.New("alice", jobs.Job{ID: "42", Name: qualifiedRefresh})
	o := newOrchestrator(t, backend)

	outcome, err := o.Submit(context.Background(), orchestrator.Request{
		JobName: "inventory_refresh",
		Raw:     map[string]string{"warehouse": "east", "batch_size": "0", "as_of": "yesterday"},
	})
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *form.ValidationError, got %v", err)
	}

	want := form.FieldErrors{
		"warehouse":  "not a valid option",
		"batch_size": "min not met (1)",
		"as_of":      "not a date",
	}
	if diff := cmp.Diff(want, outcome.FieldErrors); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if backend.ListCalls() != 0 || backend.IdentityCalls() != 0 || len(backend.Runs()) != 0 {
		t.Fatalf("backend was contacted for an invalid submission")
	}
}

func TestSubmit_ResolutionErrors(t *testing.T) {
	cases := []struct {
		name   string
		jobs   []jobs.Job
		target string
		check  func(t *testing.T, err error)
	}{
		{
			name:  "not found",
			jobs:  []jobs.Job{{ID: "1", Name: "inventory_refresh"}},
			check: func(t *testing.T, err error) { assertAs[*jobs.NotFoundError](t, err) },
		},
		{
			name:  "ambiguous",
			jobs:  []jobs.Job{{ID: "1", Name: qualifiedRefresh}, {ID: "2", Name: qualifiedRefresh}},
			check: func(t *testing.T, err error) { assertAs[*jobs.AmbiguousError](t, err) },
		},
		{
			name:   "qualification disabled",
			jobs:   []jobs.Job{{ID: "1", Name: qualifiedRefresh}},
			target: "-",
			check:  func(t *testing.T, err error) { assertAs[*jobs.NotFoundError](t, err) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := memory.New("alice", tc.jobs...)
			_, err := newOrchestrator(t, backend).Submit(context.Background(), orchestrator.Request{
				JobName: "inventory_refresh",
				Raw:     map[string]string{"warehouse": "south"},
				Target:  tc.target,
			})
			tc.check(t, err)
			if len(backend.Runs()) != 0 {
				t.Fatalf("no run expected")
			}
		})
	}
}

func TestSubmit_SubmissionFailure(t *testing.T) {
	backend := memory.New("alice", jobs.Job{ID: "42", Name: qualifiedRefresh})
	backend.RunErr = errors.New("quota exceeded")

	outcome, err := newOrchestrator(t, backend).Submit(context.Background(), orchestrator.Request{
		JobName: "inventory_refresh",
		Raw:     map[string]string{"warehouse": "south"},
	})
	subErr := assertAs[*jobs.SubmissionError](t, err)
	if subErr.JobID != "42" {
		t.Fatalf("unexpected job id %q", subErr.JobID)
	}
	if outcome.Job.JobID != "42" || outcome.Submitted() {
		t.Fatalf("unexpected outcome %#v", outcome)
	}
}

func TestSubmit_UnknownJob(t *testing.T) {
	o := newOrchestrator(t, memory.New("alice"))
	_, err := o.Submit(context.Background(), orchestrator.Request{JobName: "missing"})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}

func TestSubmit_WithoutBackend(t *testing.T) {
	o := orchestrator.New(
		orchestrator.WithCatalog(testsupport.MustLoadCatalog(t, "testdata/job_configs")),
		orchestrator.WithLogger(testsupport.QuietLogger()),
	)
	if _, err := o.Submit(context.Background(), orchestrator.Request{
		JobName: "inventory_refresh",
		Raw:     map[string]string{"warehouse": "south"},
	}); err == nil {
		t.Fatalf("expected error without backend")
	}
}

func TestResultOptions(t *testing.T) {
	backend := memory.New("alice", jobs.Job{ID: "42", Name: qualifiedRefresh})
	o := newOrchestrator(t, backend)
	ctx := context.Background()

	failed := orchestrator.Request{JobName: "inventory_refresh", Raw: map[string]string{"warehouse": "", "batch_size": "abc"}}
	outcome, err := o.Submit(ctx, failed)
	opts := orchestrator.ResultOptions(failed, outcome, err, render.RenderOptions{})
	if diff := cmp.Diff(failed.Raw, opts.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	wantErrors := map[string][]string{"warehouse": {"required"}, "batch_size": {"not a number"}}
	if diff := cmp.Diff(wantErrors, opts.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2 parameter(s) need attention"}, opts.FormErrors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}

	ok := orchestrator.Request{JobName: "inventory_refresh", Raw: map[string]string{"warehouse": "north"}}
	outcome, err = o.Submit(ctx, ok)
	opts = orchestrator.ResultOptions(ok, outcome, err, render.RenderOptions{})
	if opts.Run == nil || opts.Run.JobID != "42" || opts.Values != nil || opts.Target != "dev" {
		t.Fatalf("unexpected success options %#v", opts)
	}
}

func TestRenderForm_AppliesTheme(t *testing.T) {
	manifest := &theme.Manifest{Name: "acme", Tokens: map[string]string{"brand": "#123456"}}
	o := newOrchestrator(t, memory.New("alice"),
		orchestrator.WithTheme(render.ManifestSelector{Manifest: manifest}, "acme", ""),
	)

	out, err := o.RenderForm(context.Background(), orchestrator.RenderRequest{JobName: "inventory_refresh"})
	if err != nil {
		t.Fatalf("render form: %v", err)
	}
	testsupport.AssertContains(t, string(out),
		`data-theme="acme"`,
		"--brand: #123456;",
		`<input type="hidden" name="_target" value="dev">`,
	)

	if _, err := o.RenderForm(context.Background(), orchestrator.RenderRequest{JobName: "inventory_refresh", Renderer: "pdf"}); err == nil {
		t.Fatalf("expected unknown renderer error")
	}
}

func TestRenderPicker(t *testing.T) {
	o := newOrchestrator(t, memory.New("alice"))
	out, err := o.RenderPicker(context.Background(), "", "nope", func(name string) string { return "/jobs/" + name }, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render picker: %v", err)
	}
	testsupport.AssertContains(t, string(out),
		`href="/jobs/inventory_refresh"`,
		"Unknown job &quot;nope&quot;",
	)
}

func assertAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %v", target, err)
	}
	return target
}
