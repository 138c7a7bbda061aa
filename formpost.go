// Package formpost turns declarative form definitions into deployable
// server endpoints: each form compiles to a static configuration and a
// standalone handler program enforcing the shared runtime contract.
package formpost

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-formpost/pkg/generator"
	"github.com/goliatone/go-formpost/pkg/orchestrator"
)

// Request aliases the orchestrator request for root-level callers.
type Request = orchestrator.Request

// Result aliases the orchestrator result.
type Result = orchestrator.Result

// CompiledForm aliases the per-form generation summary.
type CompiledForm = orchestrator.CompiledForm

// NewOrchestrator exposes the pipeline constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Generate runs the whole pipeline with default dependencies. It is
// the simplest entry point for callers that want artifacts from a
// content directory in one call.
func Generate(ctx context.Context, req Request, options ...orchestrator.Option) (Result, error) {
	return orchestrator.New(options...).Run(ctx, req)
}

// EmbeddedTemplates exposes the built-in artifact templates so callers
// can reuse or extend them without importing the generator package
// directly.
func EmbeddedTemplates() fs.FS {
	return generator.TemplatesFS()
}
