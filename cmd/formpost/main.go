package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formpost/pkg/generator"
	"github.com/goliatone/go-formpost/pkg/orchestrator"
)

func main() {
	input := flag.String("input", "content/forms", "directory of form definition files")
	openapiPath := flag.String("openapi", "", "optional OpenAPI document with x-formpost operations")
	output := flag.String("output", "dist", "output directory for generated artifacts")
	origins := flag.String("origins", "", "comma-separated allowed origins baked into handlers")
	locale := flag.String("locale", "", "locale for localized labels and subjects")
	modulePath := flag.String("module", generator.DefaultModulePath, "module path generated handlers import the runtime from")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	var doc []byte
	if *openapiPath != "" {
		data, err := os.ReadFile(*openapiPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *openapiPath).Msg("read openapi document")
		}
		doc = data
	}

	gen, err := generator.New(generator.WithModulePath(*modulePath))
	if err != nil {
		log.Fatal().Err(err).Msg("configure generator")
	}

	o := orchestrator.New(
		orchestrator.WithGenerator(gen),
		orchestrator.WithLocale(*locale),
		orchestrator.WithLogger(log),
	)

	result, err := o.Run(context.Background(), orchestrator.Request{
		ContentDir:     contentDir(*input, doc),
		OpenAPIDoc:     doc,
		OutputDir:      *output,
		AllowedOrigins: splitOrigins(*origins),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("generation failed")
	}

	fmt.Printf("Generated %d endpoint(s) under %s\n", len(result.Forms), *output)
	for _, form := range result.Forms {
		fmt.Printf("  %s  %s -> %s\n", form.ID, form.Endpoint, form.Artifact)
	}
}

// contentDir keeps the default content directory optional: when it
// does not exist but an OpenAPI document was supplied, the run
// proceeds on the document alone.
func contentDir(dir string, doc []byte) string {
	if len(doc) == 0 {
		return dir
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
