package jobs

import "strings"

// DefaultQualifierTemplate matches the names a development-mode bundle
// deployment gives its jobs. The exact form is a naming convention observed
// on the backend, not a protocol guarantee.
const DefaultQualifierTemplate = "[{target} {identity}] {job}"

// Qualifier builds the display name a job carries once deployed under a
// target by a given principal.
type Qualifier interface {
	Qualify(jobName, target, identity string) string
}

// QualifierFunc adapts a function to Qualifier.
type QualifierFunc func(jobName, target, identity string) string

// Qualify calls fn.
func (fn QualifierFunc) Qualify(jobName, target, identity string) string {
	return fn(jobName, target, identity)
}

// TemplateQualifier substitutes {job}, {target} and {identity} in Template.
type TemplateQualifier struct {
	Template string
}

// NewTemplateQualifier returns a TemplateQualifier, falling back to
// DefaultQualifierTemplate when template is blank.
func NewTemplateQualifier(template string) TemplateQualifier {
	if strings.TrimSpace(template) == "" {
		template = DefaultQualifierTemplate
	}
	return TemplateQualifier{Template: template}
}

// Qualify implements Qualifier.
func (q TemplateQualifier) Qualify(jobName, target, identity string) string {
	template := q.Template
	if template == "" {
		template = DefaultQualifierTemplate
	}
	return strings.NewReplacer(
		"{job}", jobName,
		"{target}", target,
		"{identity}", identity,
	).Replace(template)
}

// NormalizeTarget trims target and maps the "-" sentinel to "", which
// disables qualification.
func NormalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "-" {
		return ""
	}
	return target
}
