package render

import (
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-jobform/pkg/jobs"
)

// RenderOptions describe per-request data that renderers use to customise
// their output without mutating the schema.
type RenderOptions struct {
	// Action is the URL the form posts to. Empty keeps the current page.
	Action string
	// Method overrides the submission verb (defaults to POST).
	Method string
	// Values pre-populates controls with the raw strings the user typed, keyed
	// by parameter name. Used to re-display a rejected submission.
	Values map[string]string
	// Errors surfaces validation reasons keyed by parameter name.
	Errors map[string][]string
	// FormErrors are messages that do not belong to a single field (job not
	// found, ambiguous job, submission failure).
	FormErrors []string
	// Hidden carries extra inputs such as a CSRF token or the deployment
	// target.
	Hidden map[string]string
	// Target is the deployment target shown next to the form.
	Target string
	// Run is set after a successful submission so the renderer can show the
	// run id and link.
	Run *jobs.RunHandle
	// Theme carries resolved theme tokens; nil renders the default look.
	Theme *theme.RendererConfig

	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}
