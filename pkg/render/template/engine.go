package template

import "io"

// TemplateRenderer executes named templates for the HTML renderer. The
// gotemplate Engine is the bundled implementation.
type TemplateRenderer interface {
	// RenderTemplate executes the template registered under name and also
	// writes the result to out when given.
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	// RenderString executes an inline template body.
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
}

// GlobalContextSetter is implemented by engines that merge data into every
// render, such as the job catalog or the deployment target.
type GlobalContextSetter interface {
	GlobalContext(data any) error
}
