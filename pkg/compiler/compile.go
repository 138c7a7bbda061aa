// Package compiler projects normalized form definitions onto the
// self-contained runtime configuration embedded into generated
// handlers. Compilation is pure: the same definition always produces
// byte-identical JSON.
package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-formpost/pkg/formdef"
)

// DefaultTelPattern constrains tel fields that declare no pattern of
// their own.
const DefaultTelPattern = `^[0-9+()\-\s]{6,20}$`

const (
	defaultAccept        = "image/*"
	defaultMaxFileSizeMb = 5.0
)

// Options tunes compilation.
type Options struct {
	// Locale selects which localized entry wins; the authoring-order
	// fallback applies when empty or missing.
	Locale string
}

// Compile flattens a normalized definition into its runtime
// configuration. The definition must come out of formdef.Normalize so
// defaults and the resolved security policy are in place.
func Compile(form formdef.FormDefinition, opts Options) (CompiledConfig, error) {
	if !form.Normalized() {
		return CompiledConfig{}, fmt.Errorf("compiler: form %q was not normalized", form.ID)
	}

	fields := make([]Field, 0, len(form.Fields))
	for _, field := range form.Fields {
		fields = append(fields, compileField(field, opts.Locale))
	}

	return CompiledConfig{
		ID:       form.ID,
		Endpoint: form.Endpoint,
		Fields:   fields,
		Email:    compileEmail(form, opts.Locale),
		Security: compileSecurity(form.Resolved),
	}, nil
}

// MarshalConfig encodes a compiled config as the canonical JSON the
// generator embeds.
func MarshalConfig(cfg CompiledConfig) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("compiler: encode config for form %q: %w", cfg.ID, err)
	}
	return data, nil
}

func compileField(field formdef.FieldSpec, locale string) Field {
	compiled := Field{
		Name:      field.Name,
		Label:     field.Label.ResolveOr(field.Name, locale),
		Type:      string(field.Type),
		Required:  field.Required,
		MaxLength: field.MaxLength,
		MinLength: field.MinLength,
		Sanitize:  string(field.Sanitize),
		Options:   []Option{},
	}

	if field.Pattern != "" {
		pattern := field.Pattern
		compiled.Pattern = &pattern
	} else if field.Type == formdef.FieldTypeTel {
		pattern := DefaultTelPattern
		compiled.Pattern = &pattern
	}

	if field.Type == formdef.FieldTypeSelect || field.Type == formdef.FieldTypeRadio {
		for _, option := range field.Options {
			compiled.Options = append(compiled.Options, Option{
				Value: option.Value,
				Label: option.Label.ResolveOr(option.Value, locale),
			})
		}
	}

	if field.IsUpload() {
		accept := field.Accept
		if accept == "" {
			accept = defaultAccept
		}
		compiled.Accept = &accept

		imagesOnly := field.ImagesOnly == nil || *field.ImagesOnly
		compiled.ImagesOnly = &imagesOnly

		compiled.Multiple = field.Multiple

		maxFiles := 1
		if field.Multiple {
			maxFiles = 5
		}
		if field.MaxFiles != nil {
			maxFiles = *field.MaxFiles
		}
		compiled.MaxFiles = &maxFiles

		maxSize := defaultMaxFileSizeMb
		if field.MaxFileSizeMb != nil {
			maxSize = *field.MaxFileSizeMb
		}
		compiled.MaxFileSizeMb = &maxSize
	}

	return compiled
}

func compileEmail(form formdef.FormDefinition, locale string) Email {
	to := make([]string, 0, len(form.Email.To))
	for _, addr := range form.Email.To {
		if addr != "" {
			to = append(to, addr)
		}
	}

	email := Email{
		To:      to,
		Subject: form.Email.Subject.ResolveOr("Form "+form.ID, locale),
	}
	if form.Email.From != "" {
		from := form.Email.From
		email.From = &from
	}
	if name := form.Email.ReplyToField; name != "" {
		if _, ok := form.FieldNamed(name); ok {
			replyTo := name
			email.ReplyToField = &replyTo
		}
	}
	if intro, ok := form.Email.Intro.Resolve(locale); ok && intro != "" {
		email.Intro = &intro
	}
	return email
}

func compileSecurity(resolved formdef.Security) Security {
	security := Security{
		RateLimit: RateLimit{
			Max:           resolved.RateLimit.Max,
			WindowSeconds: resolved.RateLimit.WindowSeconds,
		},
	}
	if resolved.Honeypot.Enabled && resolved.Honeypot.Name != "" {
		name := resolved.Honeypot.Name
		security.Honeypot = &name
	}
	return security
}
