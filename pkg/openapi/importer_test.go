package openapi

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formpost/pkg/formdef"
)

const contactDoc = `
openapi: 3.0.3
info:
  title: Site forms
  version: 1.0.0
paths:
  /api/contact/:
    post:
      operationId: contact
      summary: Contact us
      x-formpost:
        email:
          to: owner@example.com
          subject: New message from ${name}
      requestBody:
        required: true
        content:
          multipart/form-data:
            schema:
              type: object
              required: [name, email]
              properties:
                name:
                  type: string
                  title: Name
                  maxLength: 120
                email:
                  type: string
                  format: email
                topic:
                  type: string
                  enum: [sales, support]
                message:
                  type: string
                  maxLength: 4000
                attachments:
                  type: array
                  maxItems: 3
                  items:
                    type: string
                    format: binary
      responses:
        "200":
          description: Accepted
  /api/health:
    get:
      responses:
        "200":
          description: OK
`

func TestImportBuildsDefinitionFromSchema(t *testing.T) {
	importer := New()

	definitions, err := importer.Import(context.Background(), []byte(contactDoc))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(definitions) != 1 {
		t.Fatalf("definitions = %d, want 1", len(definitions))
	}

	form := definitions[0]
	if form.ID != "contact" {
		t.Fatalf("id = %q", form.ID)
	}
	if got, _ := form.Title.Resolve(); got != "Contact us" {
		t.Fatalf("title = %q", got)
	}
	if got := form.Email.To; len(got) != 1 || got[0] != "owner@example.com" {
		t.Fatalf("email.to = %v", got)
	}

	byName := make(map[string]formdef.FieldSpec, len(form.Fields))
	for _, field := range form.Fields {
		byName[field.Name] = field
	}

	if f := byName["name"]; f.Type != formdef.FieldTypeText || !f.Required || f.MaxLength == nil || *f.MaxLength != 120 {
		t.Fatalf("name field = %+v", f)
	}
	if got, _ := byName["name"].Label.Resolve(); got != "Name" {
		t.Fatalf("name label = %q", got)
	}
	if f := byName["email"]; f.Type != formdef.FieldTypeEmail || !f.Required {
		t.Fatalf("email field = %+v", f)
	}
	if f := byName["message"]; f.Type != formdef.FieldTypeTextarea {
		t.Fatalf("message field = %+v", f)
	}
	// Untitled properties still get a label so the definition normalizes.
	if got, _ := byName["message"].Label.Resolve(); got != "Message" {
		t.Fatalf("message label = %q", got)
	}

	topic := byName["topic"]
	if topic.Type != formdef.FieldTypeSelect {
		t.Fatalf("topic field = %+v", topic)
	}
	values := make([]string, 0, len(topic.Options))
	for _, option := range topic.Options {
		values = append(values, option.Value)
	}
	if diff := cmp.Diff([]string{"sales", "support"}, values); diff != "" {
		t.Fatalf("topic options mismatch (-want +got):\n%s", diff)
	}

	files := byName["attachments"]
	if files.Type != formdef.FieldTypeUpload || !files.Multiple || files.MaxFiles == nil || *files.MaxFiles != 3 {
		t.Fatalf("attachments field = %+v", files)
	}
}

func TestImportExtensionFieldsWin(t *testing.T) {
	doc := `
openapi: 3.0.3
info:
  title: Site forms
  version: 1.0.0
paths:
  /api/signup/:
    post:
      x-formpost:
        id: newsletter
        endpoint: /api/newsletter/
        email:
          to: [owner@example.com]
          subject: Signup
        fields:
          - name: email
            type: email
            required: true
      responses:
        "200":
          description: Accepted
`
	definitions, err := New().Import(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	form := definitions[0]
	if form.ID != "newsletter" || form.Endpoint != "/api/newsletter/" {
		t.Fatalf("form = %+v", form)
	}
	if len(form.Fields) != 1 || form.Fields[0].Name != "email" || form.Fields[0].Type != formdef.FieldTypeEmail {
		t.Fatalf("fields = %+v", form.Fields)
	}
}

func TestImportNoAnnotatedOperations(t *testing.T) {
	doc := `
openapi: 3.0.3
info:
  title: Plain API
  version: 1.0.0
paths:
  /api/health:
    get:
      responses:
        "200":
          description: OK
`
	if _, err := New().Import(context.Background(), []byte(doc)); !errors.Is(err, ErrNoForms) {
		t.Fatalf("err = %v, want ErrNoForms", err)
	}
}

func TestImportAnnotatedOperationWithoutBody(t *testing.T) {
	doc := `
openapi: 3.0.3
info:
  title: Site forms
  version: 1.0.0
paths:
  /api/bad/:
    post:
      x-formpost:
        email:
          to: owner@example.com
          subject: Broken
      responses:
        "200":
          description: Accepted
`
	if _, err := New().Import(context.Background(), []byte(doc)); err == nil {
		t.Fatal("expected error for missing request body")
	}
}

func TestImportRejectsEmptyPayload(t *testing.T) {
	if _, err := New().Import(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
