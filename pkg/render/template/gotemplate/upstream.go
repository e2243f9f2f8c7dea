package gotemplate

import (
	"errors"
	"fmt"
	"strings"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-jobform/pkg/render/template"
)

// NewDirRenderer builds a go-template engine over a directory of templates
// on disk. Operators use it to replace the embedded templates wholesale;
// data handed to it should already be plain maps and slices.
func NewDirRenderer(dir, ext string, funcs map[string]any) (template.TemplateRenderer, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("gotemplate: template directory required")
	}
	if ext == "" {
		ext = defaultExtension
	}

	opts := []gotemplatepkg.Option{
		gotemplatepkg.WithBaseDir(dir),
		gotemplatepkg.WithExtension(ext),
	}
	if len(funcs) > 0 {
		opts = append(opts, gotemplatepkg.WithTemplateFunc(funcs))
	}

	engine, err := gotemplatepkg.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: create go-template engine for %q: %w", dir, err)
	}
	return engine, nil
}
