// Package orchestrator coordinates the full pipeline from form
// definitions to deployable endpoint artifacts: load, normalize,
// compile, generate, emit.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formpost/internal/content"
	"github.com/goliatone/go-formpost/pkg/compiler"
	"github.com/goliatone/go-formpost/pkg/formdef"
	"github.com/goliatone/go-formpost/pkg/generator"
	"github.com/goliatone/go-formpost/pkg/openapi"
)

// Option customizes the orchestrator configuration.
type Option func(*Orchestrator)

// WithGenerator injects a custom artifact generator.
func WithGenerator(gen *generator.Generator) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.generator = gen
		}
	}
}

// WithImporter injects a custom OpenAPI importer.
func WithImporter(importer *openapi.Importer) Option {
	return func(o *Orchestrator) {
		if importer != nil {
			o.importer = importer
		}
	}
}

// WithLogger injects the pipeline log.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithContentFS overrides the filesystem content directories are
// resolved against, primarily for tests and embedded content.
func WithContentFS(fsys fs.FS) Option {
	return func(o *Orchestrator) {
		o.contentFS = fsys
	}
}

// WithLocale selects the locale used when compiling localized values.
func WithLocale(locale string) Option {
	return func(o *Orchestrator) {
		o.locale = locale
	}
}

// Orchestrator runs the definition-to-artifact pipeline. Missing
// dependencies are initialized with the built-in implementations so
// callers can start with a single constructor call.
type Orchestrator struct {
	generator *generator.Generator
	importer  *openapi.Importer
	log       zerolog.Logger
	contentFS fs.FS
	locale    string

	initErr error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{log: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	if o.generator == nil {
		gen, err := generator.New()
		if err != nil {
			o.initErr = fmt.Errorf("orchestrator: initialize generator: %w", err)
		}
		o.generator = gen
	}
	if o.importer == nil {
		o.importer = openapi.New()
	}
	return o
}

// Request describes one pipeline run. At least one definition source
// (ContentDir or OpenAPIDoc) is required.
type Request struct {
	// ContentDir holds one form definition document per file.
	ContentDir string

	// OpenAPIDoc is a raw OpenAPI document whose annotated operations
	// contribute additional definitions.
	OpenAPIDoc []byte

	// OutputDir receives the generated tree. When empty the artifacts
	// are only returned, not written.
	OutputDir string

	// AllowedOrigins is baked into every generated handler and the
	// shared access policy.
	AllowedOrigins []string
}

// CompiledForm summarizes one successfully generated form.
type CompiledForm struct {
	ID       string
	Endpoint string
	Artifact string
}

// Result reports what a pipeline run produced.
type Result struct {
	Forms     []CompiledForm
	Artifacts []generator.Artifact
}

// Run executes load, normalize, compile, and generate, then emits the
// artifact tree when an output directory is configured. Definition
// failures abort the run before anything is written.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if err := o.initErr; err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if req.ContentDir == "" && len(req.OpenAPIDoc) == 0 {
		return Result{}, errors.New("orchestrator: a content directory or an OpenAPI document is required")
	}

	entries, err := o.collectEntries(ctx, req)
	if err != nil {
		return Result{}, err
	}
	o.log.Debug().Int("definitions", len(entries)).Msg("definitions loaded")

	forms, err := formdef.NormalizeCollection(entries)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: normalize definitions: %w", err)
	}

	result := Result{}
	for _, form := range forms {
		compiled, err := compiler.Compile(form, compiler.Options{Locale: o.locale})
		if err != nil {
			return Result{}, fmt.Errorf("orchestrator: compile form %q: %w", form.ID, err)
		}

		artifact, err := o.generator.Endpoint(compiled, req.AllowedOrigins)
		if err != nil {
			return Result{}, err
		}

		o.log.Info().
			Str("form", compiled.ID).
			Str("endpoint", compiled.Endpoint).
			Str("artifact", artifact.Path).
			Msg("endpoint generated")

		result.Forms = append(result.Forms, CompiledForm{
			ID:       compiled.ID,
			Endpoint: compiled.Endpoint,
			Artifact: artifact.Path,
		})
		result.Artifacts = append(result.Artifacts, artifact)
	}

	policy, err := o.generator.AccessPolicy(req.AllowedOrigins)
	if err != nil {
		return Result{}, err
	}
	result.Artifacts = append(result.Artifacts, policy)

	if req.OutputDir != "" {
		if err := generator.EmitTree(req.OutputDir, result.Artifacts); err != nil {
			return Result{}, err
		}
		o.log.Info().
			Str("dir", req.OutputDir).
			Int("artifacts", len(result.Artifacts)).
			Msg("artifact tree written")
	}

	return result, nil
}

func (o *Orchestrator) collectEntries(ctx context.Context, req Request) ([]formdef.Entry, error) {
	var entries []formdef.Entry

	if req.ContentDir != "" {
		fsys := o.contentFS
		dir := req.ContentDir
		if fsys == nil {
			fsys = os.DirFS(req.ContentDir)
			dir = "."
		}
		loaded, err := content.Load(ctx, fsys, dir)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: load content: %w", err)
		}
		entries = append(entries, loaded...)
	}

	if len(req.OpenAPIDoc) > 0 {
		definitions, err := o.importer.Import(ctx, req.OpenAPIDoc)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: import openapi document: %w", err)
		}
		for _, definition := range definitions {
			entries = append(entries, formdef.Entry{
				FileID:     definition.ID,
				Definition: definition,
			})
		}
	}

	return entries, nil
}
