package vanilla_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/renderers/vanilla"
	"github.com/goliatone/go-jobform/pkg/testsupport"
)

func newRenderer(t *testing.T, opts ...vanilla.Option) *vanilla.Renderer {
	t.Helper()
	renderer, err := vanilla.New(opts...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return renderer
}

func TestRenderer_Form(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "refresh.yaml"))

	out, err := newRenderer(t).Render(context.Background(), s, render.RenderOptions{
		Action: "/jobs/inventory_refresh",
		Hidden: render.MergeHiddenFields(nil, render.TargetField("dev")),
		Target: "dev",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)

	testsupport.AssertContains(t, html,
		"<title>Inventory refresh</title>",
		`<form class="jf-form" method="POST" action="/jobs/inventory_refresh" data-job="inventory_refresh" novalidate>`,
		`<input type="hidden" name="_target" value="dev">`,
		`<select class="jf-control" id="jf-warehouse" name="warehouse" aria-required="true">`,
		`<option value="north">north</option>`,
		`name="batch_size" type="number" value="" step="1" min="1" max="1000"`,
		`<p class="jf-hint">Between 1 and 1000</p>`,
		`<label class="jf-label" for="jf-sample_rate">sample_rate</label>`,
		`name="sample_rate" type="number" value="" step="any" max="0.5"`,
		`name="as_of" type="date" value="" min="2020-01-01"`,
		`<p class="jf-hint">On or after 2020-01-01</p>`,
		`name="note" type="text" value="" maxlength="20"`,
		`<p class="jf-hint">At most 20 characters</p>`,
		"Rebuilds the <b>inventory</b> snapshot.",
		".jf-main",
	)
	testsupport.AssertNotContains(t, html, "<script>", "alert(1)", `class="jf-error"`, `role="alert"`)
}

func TestRenderer_RepopulatesAfterFailedSubmit(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "refresh.yaml"))

	out, err := newRenderer(t).Render(context.Background(), s, render.RenderOptions{
		Values: map[string]string{"warehouse": "south", "batch_size": "5000", "note": `<i>"x"</i>`},
		Errors: map[string][]string{"batch_size": {"max exceeded (1000)"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)

	testsupport.AssertContains(t, html,
		`<option value="south" selected>south</option>`,
		`name="batch_size" type="number" value="5000"`,
		`aria-invalid="true" aria-describedby="jf-batch_size-error"`,
		`<p class="jf-error" id="jf-batch_size-error">max exceeded (1000)</p>`,
		`jf-field--integer jf-field--invalid`,
		`value="&lt;i&gt;&quot;x&quot;&lt;/i&gt;"`,
	)
}

func TestRenderer_RunReceiptAndFormErrors(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "refresh.yaml"))

	out, err := newRenderer(t).Render(context.Background(), s, render.RenderOptions{
		Run:        &jobs.RunHandle{RunID: "1001", JobID: "42", NumberInJob: 3, URL: "memory://jobs/42/runs/1001"},
		FormErrors: []string{" previous warning ", "previous warning"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	testsupport.AssertContains(t, string(out),
		`data-run-id="1001"`,
		"Run <strong>1001</strong> started for job 42 (run #3).",
		`href="memory://jobs/42/runs/1001"`,
		"<li>previous warning</li>",
	)
}

func TestRenderer_Theme(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "refresh.yaml"))
	cfg := &theme.RendererConfig{
		Theme:   "acme",
		Variant: "dark",
		CSSVars: map[string]string{"--brand": "#654321"},
		AssetURL: func(key string) string {
			if key == "stylesheet" {
				return "/assets/themes/acme/theme.css"
			}
			return ""
		},
	}

	out, err := newRenderer(t).Render(context.Background(), s, render.RenderOptions{Theme: cfg})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	testsupport.AssertContains(t, html,
		`<link rel="stylesheet" href="/assets/themes/acme/theme.css">`,
		`data-theme="acme" data-theme-variant="dark" style="--brand: #654321;"`,
	)
	testsupport.AssertNotContains(t, html, ".jf-main {")
}

func TestRenderer_Picker(t *testing.T) {
	c := testsupport.MustLoadCatalog(t, "testdata")
	picker := render.NewPicker(c, "missing_job", nil)
	picker.Problems = append(picker.Problems, render.Problem{Source: "job_configs/broken.yaml", Message: "job_name is required"})

	out, err := newRenderer(t, vanilla.WithStylesheetURL("/assets/jobform.css")).RenderPicker(context.Background(), picker, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render picker: %v", err)
	}
	html := string(out)
	testsupport.AssertContains(t, html,
		`<link rel="stylesheet" href="/assets/jobform.css">`,
		`Unknown job &quot;missing_job&quot;. Pick one of the jobs below.`,
		`<a class="jf-job-link" href="?job=inventory_refresh">Inventory refresh</a>`,
		"<li>Warehouse (enum) *</li>",
		"<li>sample_rate (decimal)</li>",
		"<code>job_configs/broken.yaml</code>: job_name is required",
	)
	testsupport.AssertNotContains(t, html, "alert(1)")
}

func TestRenderer_HonoursCancelledContext(t *testing.T) {
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "refresh.yaml"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newRenderer(t).Render(ctx, s, render.RenderOptions{}); err == nil {
		t.Fatalf("expected cancelled context error")
	}
}

func TestRenderer_TemplatesDirOverride(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"form.tmpl":   `<h1 class="custom">{{ page.title }}</h1>{% for field in page.form.fields %}<i>{{ field.name }}</i>{% endfor %}`,
		"picker.tmpl": `<ul>{% for job in page.picker.jobs %}<li>{{ job.job_name }}</li>{% endfor %}</ul>`,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	renderer := newRenderer(t, vanilla.WithTemplatesDir(dir))
	s := testsupport.MustLoadSchema(t, filepath.Join("testdata", "refresh.yaml"))

	out, err := renderer.Render(context.Background(), s, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	testsupport.AssertContains(t, string(out), `<h1 class="custom">Inventory refresh</h1>`, "<i>warehouse</i>", "<i>batch_size</i>")
	testsupport.AssertNotContains(t, string(out), "jf-form")

	picker := render.NewPicker(testsupport.MustLoadCatalog(t, "testdata"), "", nil)
	out, err = renderer.RenderPicker(context.Background(), picker, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render picker: %v", err)
	}
	testsupport.AssertContains(t, string(out), "<li>inventory_refresh</li>")
}
