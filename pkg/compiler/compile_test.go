package compiler_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formpost/pkg/compiler"
	"github.com/goliatone/go-formpost/pkg/formdef"
)

func normalized(t *testing.T, def formdef.FormDefinition) formdef.FormDefinition {
	t.Helper()
	form, err := formdef.Normalize(def, formdef.NormalizeOptions{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return form
}

func sampleDefinition() formdef.FormDefinition {
	return formdef.FormDefinition{
		ID:    "contact",
		Title: formdef.NewLocalized("Contact"),
		Fields: []formdef.FieldSpec{
			{Name: "name", Label: formdef.NewLocalizedMap(
				formdef.LocalizedEntry{Locale: "en", Value: "Your name"},
				formdef.LocalizedEntry{Locale: "de", Value: "Ihr Name"},
			), Type: formdef.FieldTypeText, Required: true},
			{Name: "phone", Label: formdef.NewLocalized("Phone"), Type: formdef.FieldTypeTel},
			{Name: "topic", Label: formdef.NewLocalized("Topic"), Type: formdef.FieldTypeSelect, Options: []formdef.FieldOption{
				{Value: "sales", Label: formdef.NewLocalized("Sales")},
				{Value: "support"},
			}},
			{Name: "photo", Label: formdef.NewLocalized("Photo"), Type: formdef.FieldTypeUpload, Multiple: true},
		},
		Email: formdef.EmailSpec{
			To:           formdef.StringList{"owner@example.com", "backup@example.com"},
			ReplyToField: "name",
			Subject:      formdef.NewLocalized("New message from ${name}"),
			Intro:        formdef.NewLocalized("Submitted via the contact form."),
		},
	}
}

func TestCompileRequiresNormalizedInput(t *testing.T) {
	if _, err := compiler.Compile(sampleDefinition(), compiler.Options{}); err == nil {
		t.Fatal("expected error for unnormalized definition")
	}
}

func TestCompileFields(t *testing.T) {
	cfg, err := compiler.Compile(normalized(t, sampleDefinition()), compiler.Options{Locale: "de"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if got, want := cfg.Fields[0].Label, "Ihr Name"; got != want {
		t.Fatalf("localized label = %q, want %q", got, want)
	}
	if cfg.Fields[1].Pattern == nil || *cfg.Fields[1].Pattern != compiler.DefaultTelPattern {
		t.Fatalf("tel pattern = %v, want default", cfg.Fields[1].Pattern)
	}

	wantOptions := []compiler.Option{
		{Value: "sales", Label: "Sales"},
		{Value: "support", Label: "support"},
	}
	if diff := cmp.Diff(wantOptions, cfg.Fields[2].Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	upload := cfg.Fields[3]
	if upload.Accept == nil || *upload.Accept != "image/*" {
		t.Fatalf("accept = %v, want image/*", upload.Accept)
	}
	if upload.ImagesOnly == nil || !*upload.ImagesOnly {
		t.Fatalf("imagesOnly = %v, want true", upload.ImagesOnly)
	}
	if upload.MaxFiles == nil || *upload.MaxFiles != 5 {
		t.Fatalf("maxFiles = %v, want 5 for multiple uploads", upload.MaxFiles)
	}
	if upload.MaxFileSizeMb == nil || *upload.MaxFileSizeMb != 5 {
		t.Fatalf("maxFileSizeMb = %v, want 5", upload.MaxFileSizeMb)
	}
}

func TestCompileEmailAndSecurity(t *testing.T) {
	cfg, err := compiler.Compile(normalized(t, sampleDefinition()), compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if diff := cmp.Diff([]string{"owner@example.com", "backup@example.com"}, cfg.Email.To); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
	if cfg.Email.ReplyToField == nil || *cfg.Email.ReplyToField != "name" {
		t.Fatalf("replyToField = %v, want name", cfg.Email.ReplyToField)
	}
	if cfg.Security.Honeypot == nil || *cfg.Security.Honeypot != "middle_name" {
		t.Fatalf("honeypot = %v, want middle_name", cfg.Security.Honeypot)
	}
	if cfg.Security.RateLimit.Max != 5 || cfg.Security.RateLimit.WindowSeconds != 60 {
		t.Fatalf("rate limit = %+v, want defaults", cfg.Security.RateLimit)
	}
}

func TestCompileDisabledHoneypot(t *testing.T) {
	disabled := false
	def := sampleDefinition()
	def.Security = &formdef.SecuritySpec{Honeypot: &formdef.HoneypotSpec{Enabled: &disabled}}

	cfg, err := compiler.Compile(normalized(t, def), compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if cfg.Security.Honeypot != nil {
		t.Fatalf("honeypot = %v, want nil when disabled", cfg.Security.Honeypot)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	form := normalized(t, sampleDefinition())

	first, err := compiler.Compile(form, compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := compiler.Compile(form, compiler.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	a, err := compiler.MarshalConfig(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := compiler.MarshalConfig(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("compiled JSON differs between runs:\n%s\n%s", a, b)
	}
}
