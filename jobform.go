// Package jobform turns YAML job parameter schemas into validated forms and
// triggers runs of the matching deployed jobs. The subpackages carry the
// pieces; this package re-exports the common entry points.
package jobform

import (
	"context"
	"io/fs"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-jobform/pkg/catalog"
	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/orchestrator"
	"github.com/goliatone/go-jobform/pkg/render"
	"github.com/goliatone/go-jobform/pkg/renderers/vanilla"
)

// RenderOptions describes per-request overrides that renderers use to
// prefill values or surface validation errors.
type RenderOptions = render.RenderOptions

// Request is one submission attempt.
type Request = orchestrator.Request

// Outcome is what a submission produced before it stopped.
type Outcome = orchestrator.Outcome

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// LoadCatalog loads every schema document under dir.
func LoadCatalog(dir string, options ...catalog.Option) (*catalog.Catalog, error) {
	return catalog.LoadDir(dir, options...)
}

// LoadCatalogFS loads every schema document in fsys, typically an embed.FS.
func LoadCatalogFS(fsys fs.FS, options ...catalog.Option) (*catalog.Catalog, error) {
	return catalog.LoadFS(fsys, options...)
}

// SubmitRun validates raw against the schema for jobName and triggers one run
// on backend under target. It is the shortest path for callers that do not
// render forms.
func SubmitRun(ctx context.Context, c *catalog.Catalog, backend jobs.Backend, jobName, target string, raw map[string]string) (Outcome, error) {
	orch := orchestrator.New(orchestrator.WithCatalog(c), orchestrator.WithBackend(backend))
	return orch.Submit(ctx, Request{JobName: jobName, Raw: raw, Target: target})
}

// WithThemeManifest applies an in-process go-theme manifest to every render.
func WithThemeManifest(manifest *theme.Manifest, variant string) orchestrator.Option {
	name := ""
	if manifest != nil {
		name = manifest.Name
	}
	return orchestrator.WithTheme(render.ManifestSelector{Manifest: manifest}, name, variant)
}

// EmbeddedTemplates exposes the built-in HTML templates so callers can reuse
// or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the default stylesheet.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(jobform.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
