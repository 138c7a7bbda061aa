// Package generator turns compiled form configurations into deployable
// server endpoint artifacts: one self-contained main package per form
// plus shared hosting support files.
package generator

import (
	"fmt"
	"go/format"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-formpost/pkg/compiler"
	"github.com/goliatone/go-formpost/pkg/generator/template"
	"github.com/goliatone/go-formpost/pkg/generator/template/pongo"
)

// DefaultModulePath is the import root baked into generated handlers.
const DefaultModulePath = "github.com/goliatone/go-formpost"

// Artifact is one generated file, addressed relative to the output
// tree root.
type Artifact struct {
	Path    string
	Content []byte
}

// Option configures a Generator.
type Option func(*config)

type config struct {
	templateFS fs.FS
	renderer   template.TemplateRenderer
	modulePath string
}

// WithTemplatesFS supplies an alternate template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templateFS = files
		}
	}
}

// WithTemplateRenderer injects a custom rendering engine.
func WithTemplateRenderer(renderer template.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.renderer = renderer
		}
	}
}

// WithModulePath overrides the import root generated handlers use to
// reach the runtime packages.
func WithModulePath(modulePath string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(modulePath); trimmed != "" {
			cfg.modulePath = strings.TrimSuffix(trimmed, "/")
		}
	}
}

// Generator renders endpoint artifacts from compiled configurations.
// Output is deterministic: the same configuration and origin list
// always produce the same bytes.
type Generator struct {
	templates  template.TemplateRenderer
	modulePath string
}

// New constructs a Generator applying any provided options.
func New(options ...Option) (*Generator, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		modulePath: DefaultModulePath,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	renderer := cfg.renderer
	if renderer == nil {
		engine, err := pongo.New(
			pongo.WithFS(cfg.templateFS),
			pongo.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("generator: configure template engine: %w", err)
		}
		renderer = engine
	}

	return &Generator{templates: renderer, modulePath: cfg.modulePath}, nil
}

// Endpoint renders the standalone handler program for one compiled
// form. The configuration travels inside the artifact as a quoted JSON
// literal, parsed once at startup.
func (g *Generator) Endpoint(cfg compiler.CompiledConfig, allowedOrigins []string) (Artifact, error) {
	raw, err := compiler.MarshalConfig(cfg)
	if err != nil {
		return Artifact{}, fmt.Errorf("generator: marshal config for %q: %w", cfg.ID, err)
	}

	rendered, err := g.templates.RenderTemplate("templates/endpoint.go.tmpl", map[string]any{
		"form_id":        cfg.ID,
		"module_path":    g.modulePath,
		"config_literal": strconv.Quote(string(raw)),
		"origins":        cleanOrigins(allowedOrigins),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("generator: render endpoint for %q: %w", cfg.ID, err)
	}

	source, err := format.Source([]byte(rendered))
	if err != nil {
		return Artifact{}, fmt.Errorf("generator: format endpoint for %q: %w", cfg.ID, err)
	}

	return Artifact{Path: path.Join("api", cfg.ID, "index.go"), Content: source}, nil
}

// AccessPolicy renders the shared hosting policy file for the output
// tree. It guards rate-limit counter state and, when an allow-list is
// configured, emits matching CORS headers.
func (g *Generator) AccessPolicy(allowedOrigins []string) (Artifact, error) {
	escaped := make([]string, 0, len(allowedOrigins))
	for _, origin := range cleanOrigins(allowedOrigins) {
		escaped = append(escaped, escapePattern(origin))
	}

	rendered, err := g.templates.RenderTemplate("templates/htaccess.tmpl", map[string]any{
		"origins": escaped,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("generator: render access policy: %w", err)
	}

	return Artifact{Path: path.Join("api", ".htaccess"), Content: []byte(rendered)}, nil
}

// EmitTree writes artifacts under root, creating directories as
// needed. Existing files are overwritten; generation is the source of
// truth for everything it emits.
func EmitTree(root string, artifacts []Artifact) error {
	for _, artifact := range artifacts {
		target := filepath.Join(root, filepath.FromSlash(artifact.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("generator: create output dir: %w", err)
		}
		if err := os.WriteFile(target, artifact.Content, 0o644); err != nil {
			return fmt.Errorf("generator: write %s: %w", artifact.Path, err)
		}
	}
	return nil
}

func cleanOrigins(origins []string) []string {
	cleaned := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cleaned = append(cleaned, strings.ToLower(trimmed))
		}
	}
	return cleaned
}

// escapePattern makes a host safe for use inside an Apache regex.
func escapePattern(host string) string {
	replacer := strings.NewReplacer(".", `\.`, "-", `\-`)
	return replacer.Replace(host)
}
