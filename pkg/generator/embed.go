package generator

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the built-in artifact templates so callers can
// extend or replace individual files without forking the generator.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
