// Package template defines the rendering seam the code generator
// depends on, mirroring the github.com/goliatone/go-template engine
// contract so alternate engines can slot in.
package template

import "io"

// TemplateRenderer is the engine contract used to render generated
// artifacts. Render dispatches on its argument: template names load
// from the configured source, inline content renders directly.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
