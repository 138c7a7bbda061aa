// Package openapi imports form definitions from OpenAPI documents.
// POST operations annotated with the x-formpost extension become form
// definitions: the request body schema contributes the fields, the
// extension contributes identity, mail routing, and security policy.
package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formpost/pkg/formdef"
)

// ExtensionKey marks a POST operation as a form endpoint.
const ExtensionKey = "x-formpost"

// ErrNoForms reports a document with no annotated operations.
var ErrNoForms = errors.New("openapi: document declares no form operations")

// Option configures an Importer.
type Option func(*config)

type config struct {
	validate bool
}

// WithValidation runs full document validation before importing, which
// also resolves internal references.
func WithValidation() Option {
	return func(cfg *config) {
		cfg.validate = true
	}
}

// Importer extracts form definitions from OpenAPI documents.
type Importer struct {
	cfg config
}

// New constructs an Importer applying any provided options.
func New(options ...Option) *Importer {
	importer := &Importer{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&importer.cfg)
	}
	return importer
}

// extensionSpec is the x-formpost payload. Everything is optional;
// missing identity falls back to the operation, missing fields fall
// back to the request body schema.
type extensionSpec struct {
	ID       string                `json:"id"`
	Title    formdef.Localized     `json:"title"`
	Endpoint string                `json:"endpoint"`
	Fields   []formdef.FieldSpec   `json:"fields"`
	Email    formdef.EmailSpec     `json:"email"`
	Security *formdef.SecuritySpec `json:"security"`
}

// Import scans the document and returns one raw definition per
// annotated POST operation, ordered by path. Returned definitions
// still need to pass through formdef.Normalize.
func (i *Importer) Import(ctx context.Context, data []byte) ([]formdef.FormDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if i.cfg.validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate document: %w", err)
		}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, ErrNoForms
	}

	pathMap := spec.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for path := range pathMap {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var definitions []formdef.FormDefinition
	for _, path := range paths {
		item := pathMap[path]
		if item == nil || item.Post == nil {
			continue
		}
		raw, ok := item.Post.Extensions[ExtensionKey]
		if !ok {
			continue
		}

		definition, err := buildDefinition(path, item.Post, raw)
		if err != nil {
			return nil, fmt.Errorf("openapi: operation %s %s: %w", "POST", path, err)
		}
		definitions = append(definitions, definition)
	}

	if len(definitions) == 0 {
		return nil, ErrNoForms
	}
	return definitions, nil
}

func buildDefinition(path string, op *openapi3.Operation, raw any) (formdef.FormDefinition, error) {
	ext, err := decodeExtension(raw)
	if err != nil {
		return formdef.FormDefinition{}, err
	}

	id := ext.ID
	if id == "" {
		id = op.OperationID
	}
	if id == "" {
		id = idFromPath(path)
	}

	fields := ext.Fields
	if len(fields) == 0 {
		fields, err = fieldsFromRequestBody(op.RequestBody)
		if err != nil {
			return formdef.FormDefinition{}, err
		}
	}

	title := ext.Title
	if !title.IsSet() && op.Summary != "" {
		title = formdef.NewLocalized(op.Summary)
	}
	if !title.IsSet() {
		title = formdef.NewLocalized(titleFromID(id))
	}

	return formdef.FormDefinition{
		ID:       id,
		Title:    title,
		Endpoint: ext.Endpoint,
		Fields:   fields,
		Email:    ext.Email,
		Security: ext.Security,
	}, nil
}

// decodeExtension round-trips the extension payload through JSON so
// the formdef unmarshalers apply to localized values and string lists.
func decodeExtension(raw any) (extensionSpec, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return extensionSpec{}, fmt.Errorf("encode %s payload: %w", ExtensionKey, err)
	}
	var ext extensionSpec
	if err := json.Unmarshal(encoded, &ext); err != nil {
		return extensionSpec{}, fmt.Errorf("decode %s payload: %w", ExtensionKey, err)
	}
	return ext, nil
}

var formMediaTypes = []string{"multipart/form-data", "application/x-www-form-urlencoded", "application/json"}

func fieldsFromRequestBody(body *openapi3.RequestBodyRef) ([]formdef.FieldSpec, error) {
	if body == nil || body.Value == nil {
		return nil, errors.New("request body is required when the extension declares no fields")
	}

	var schemaRef *openapi3.SchemaRef
	for _, mediaType := range formMediaTypes {
		if mt, ok := body.Value.Content[mediaType]; ok && mt.Schema != nil {
			schemaRef = mt.Schema
			break
		}
	}
	if schemaRef == nil || schemaRef.Value == nil {
		return nil, errors.New("request body carries no usable schema")
	}

	schema := schemaRef.Value
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]formdef.FieldSpec, 0, len(names))
	for _, name := range names {
		property := schema.Properties[name]
		if property == nil || property.Value == nil {
			continue
		}
		fields = append(fields, fieldFromProperty(name, property.Value, required[name]))
	}
	if len(fields) == 0 {
		return nil, errors.New("request body schema declares no properties")
	}
	return fields, nil
}

func fieldFromProperty(name string, schema *openapi3.Schema, required bool) formdef.FieldSpec {
	field := formdef.FieldSpec{
		Name:     name,
		Required: required,
		Type:     fieldType(schema),
	}

	label := schema.Title
	if label == "" {
		label = titleFromID(strings.ReplaceAll(name, "_", "-"))
	}
	field.Label = formdef.NewLocalized(label)
	if schema.Pattern != "" {
		field.Pattern = schema.Pattern
	}
	if schema.MaxLength != nil {
		length := int(*schema.MaxLength)
		field.MaxLength = &length
	}
	if schema.MinLength > 0 {
		length := int(schema.MinLength)
		field.MinLength = &length
	}
	if field.Type == formdef.FieldTypeSelect {
		for _, value := range schema.Enum {
			text, ok := value.(string)
			if !ok {
				text = fmt.Sprint(value)
			}
			field.Options = append(field.Options, formdef.FieldOption{Value: text})
		}
	}
	if field.Type == formdef.FieldTypeUpload && isBinaryArray(schema) {
		field.Multiple = true
		if schema.MaxItems != nil {
			count := int(*schema.MaxItems)
			field.MaxFiles = &count
		}
	}
	return field
}

// fieldType maps a property schema onto the closest field kind. The
// schema "format" attribute decides everything the bare type cannot.
func fieldType(schema *openapi3.Schema) formdef.FieldType {
	if len(schema.Enum) > 0 {
		return formdef.FieldTypeSelect
	}
	if isBinaryArray(schema) || schema.Format == "binary" {
		return formdef.FieldTypeUpload
	}

	switch firstType(schema.Type) {
	case "integer", "number":
		return formdef.FieldTypeNumber
	case "boolean":
		return formdef.FieldTypeCheckbox
	case "string":
		switch schema.Format {
		case "email":
			return formdef.FieldTypeEmail
		case "date", "date-time":
			return formdef.FieldTypeDate
		case "tel":
			return formdef.FieldTypeTel
		}
		if schema.MaxLength != nil && *schema.MaxLength > 255 {
			return formdef.FieldTypeTextarea
		}
		return formdef.FieldTypeText
	}
	return formdef.FieldTypeText
}

func isBinaryArray(schema *openapi3.Schema) bool {
	if firstType(schema.Type) != "array" || schema.Items == nil || schema.Items.Value == nil {
		return false
	}
	return schema.Items.Value.Format == "binary"
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// titleFromID derives a presentable fallback title from a kebab-case
// form id.
func titleFromID(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "-", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func idFromPath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "form"
	}
	return strings.ReplaceAll(trimmed, "/", "-")
}
