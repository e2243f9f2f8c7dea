package render

import (
	"context"

	"github.com/goliatone/go-jobform/pkg/schema"
)

// Renderer converts a parameter schema into a presentation (an HTML form, a
// terminal prompt sequence, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, s schema.ParameterSchema, options RenderOptions) ([]byte, error)
}

// PickerRenderer is implemented by renderers that can also present the job
// picker listing every loaded schema.
type PickerRenderer interface {
	RenderPicker(ctx context.Context, picker Picker, options RenderOptions) ([]byte, error)
}
