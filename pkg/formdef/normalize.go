package formdef

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	formIDPattern    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	emailPattern     = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)+$`)
)

// DefaultSecurity is the fixed policy user overrides merge into.
var DefaultSecurity = Security{
	Honeypot:  Honeypot{Name: "middle_name", Enabled: true},
	RateLimit: RateLimit{WindowSeconds: 60, Max: 5},
}

// NormalizeOptions tunes a single-form normalization run.
type NormalizeOptions struct {
	// FileID is the storage identity of the definition. When set it must
	// match the declared id.
	FileID string
}

// DefaultEndpoint derives the canonical endpoint path for a form id.
func DefaultEndpoint(id string) string {
	return "/api/" + id + "/"
}

// InferSanitize resolves the sanitize mode a field type implies when no
// explicit mode is declared.
func InferSanitize(fieldType FieldType, explicit SanitizeMode) SanitizeMode {
	if explicit != "" {
		return explicit
	}
	switch fieldType {
	case FieldTypeEmail:
		return SanitizeEmail
	case FieldTypeTel:
		return SanitizeTel
	case FieldTypeNumber:
		return SanitizeNumber
	case FieldTypeUpload:
		return SanitizeNone
	default:
		return SanitizeText
	}
}

// Normalize validates a decoded definition against the grammar and
// fills defaults. Grammar violations are collected into a single
// *ValidationError instead of stopping at the first; the cross-field
// checks (duplicate field names, declared-vs-storage identity) fail
// fast with their dedicated sentinels.
func Normalize(def FormDefinition, opts NormalizeOptions) (FormDefinition, error) {
	var issues []Issue
	addIssue := func(path, field, message string) {
		issues = append(issues, Issue{Path: path, Field: field, Message: message})
	}

	if def.ID == "" {
		addIssue("id", "", "form id is required")
	} else if !formIDPattern.MatchString(def.ID) {
		addIssue("id", "", "form id must be kebab-case")
	}
	if !def.Title.IsSet() {
		addIssue("title", "", "title is required")
	}
	if len(def.Fields) == 0 {
		addIssue("fields", "", "at least one field is required")
	}

	for i, field := range def.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		validateField(path, field, addIssue)
	}

	validateEmail(def.Email, addIssue)
	validateSecurity(def.Security, addIssue)

	if len(issues) > 0 {
		return FormDefinition{}, &ValidationError{FormID: def.ID, Issues: issues}
	}

	if opts.FileID != "" && opts.FileID != def.ID {
		return FormDefinition{}, fmt.Errorf("formdef: form id %q must match file id %q: %w", def.ID, opts.FileID, ErrIDMismatch)
	}

	seen := make(map[string]struct{}, len(def.Fields))
	for _, field := range def.Fields {
		if _, dup := seen[field.Name]; dup {
			return FormDefinition{}, fmt.Errorf("formdef: field %q appears twice in form %q: %w", field.Name, def.ID, ErrDuplicateFieldName)
		}
		seen[field.Name] = struct{}{}
	}

	if def.Email.ReplyToField != "" {
		if _, ok := def.FieldNamed(def.Email.ReplyToField); !ok {
			return FormDefinition{}, &ValidationError{FormID: def.ID, Issues: []Issue{{
				Path:    "email.replyToField",
				Message: fmt.Sprintf("replyToField %q does not name a declared field", def.Email.ReplyToField),
			}}}
		}
	}

	normalized := def
	normalized.Fields = make([]FieldSpec, len(def.Fields))
	for i, field := range def.Fields {
		field.Sanitize = InferSanitize(field.Type, field.Sanitize)
		normalized.Fields[i] = field
	}
	if strings.TrimSpace(normalized.Endpoint) == "" {
		normalized.Endpoint = DefaultEndpoint(normalized.ID)
	}
	normalized.Resolved = mergeSecurity(DefaultSecurity, def.Security)
	normalized.normalized = true
	return normalized, nil
}

func validateField(path string, field FieldSpec, addIssue func(path, field, message string)) {
	if field.Name == "" {
		addIssue(path+".name", field.Name, "field name is required")
	} else if !fieldNamePattern.MatchString(field.Name) {
		addIssue(path+".name", field.Name, "field name must start with a letter and use letters, numbers, or underscores")
	}
	if !field.Label.IsSet() {
		addIssue(path+".label", field.Name, "label is required")
	}

	switch field.Type {
	case FieldTypeText, FieldTypeEmail, FieldTypeTextarea, FieldTypeTel, FieldTypeNumber,
		FieldTypeCheckbox, FieldTypeRadio, FieldTypeSelect, FieldTypeDate, FieldTypeHidden, FieldTypeUpload:
	case "":
		addIssue(path+".type", field.Name, "field type is required")
	default:
		addIssue(path+".type", field.Name, fmt.Sprintf("unknown field type %q", field.Type))
	}

	switch field.Sanitize {
	case "", SanitizeNone, SanitizeText, SanitizeEmail, SanitizeTel, SanitizeNumber:
	default:
		addIssue(path+".sanitize", field.Name, fmt.Sprintf("unknown sanitize mode %q", field.Sanitize))
	}

	if field.MaxLength != nil && *field.MaxLength <= 0 {
		addIssue(path+".maxLength", field.Name, "maxLength must be positive")
	}
	if field.MinLength != nil && *field.MinLength < 0 {
		addIssue(path+".minLength", field.Name, "minLength must not be negative")
	}
	if field.Pattern != "" {
		if _, err := regexp.Compile(field.Pattern); err != nil {
			addIssue(path+".pattern", field.Name, "pattern is not a valid regular expression")
		}
	}

	selectable := field.Type == FieldTypeSelect || field.Type == FieldTypeRadio
	if selectable && len(field.Options) == 0 {
		addIssue(path+".options", field.Name, fmt.Sprintf("options are required for %s fields", field.Type))
	}
	if !selectable && len(field.Options) > 0 {
		addIssue(path+".options", field.Name, "options are only allowed for select or radio fields")
	}
	for j, option := range field.Options {
		if option.Value == "" {
			addIssue(fmt.Sprintf("%s.options[%d].value", path, j), field.Name, "option value is required")
		}
	}

	if field.Type != FieldTypeUpload && field.hasUploadAttrs() {
		addIssue(path, field.Name, "upload attributes are only valid for upload fields")
	}
	if field.Type == FieldTypeUpload {
		if field.Sanitize != "" && field.Sanitize != SanitizeNone {
			addIssue(path+".sanitize", field.Name, `sanitize must be "none" for upload fields`)
		}
		if field.MaxFiles != nil {
			if *field.MaxFiles < 1 {
				addIssue(path+".maxFiles", field.Name, "maxFiles must be at least 1")
			} else if *field.MaxFiles > 1 && !field.Multiple {
				addIssue(path+".maxFiles", field.Name, "maxFiles > 1 requires multiple: true")
			}
		}
		if field.MaxFileSizeMb != nil && *field.MaxFileSizeMb <= 0 {
			addIssue(path+".maxFileSizeMb", field.Name, "maxFileSizeMb must be positive")
		}
	}
}

func validateEmail(email EmailSpec, addIssue func(path, field, message string)) {
	if len(email.To) == 0 {
		addIssue("email.to", "", "at least one recipient is required")
	}
	for i, addr := range email.To {
		if !emailPattern.MatchString(addr) {
			addIssue(fmt.Sprintf("email.to[%d]", i), "", fmt.Sprintf("%q is not a valid email address", addr))
		}
	}
	if email.From != "" && !emailPattern.MatchString(email.From) {
		addIssue("email.from", "", fmt.Sprintf("%q is not a valid email address", email.From))
	}
	if email.ReplyToField != "" && !fieldNamePattern.MatchString(email.ReplyToField) {
		addIssue("email.replyToField", "", "replyToField must match a field name")
	}
	if !email.Subject.IsSet() {
		addIssue("email.subject", "", "subject is required")
	}
}

func validateSecurity(security *SecuritySpec, addIssue func(path, field, message string)) {
	if security == nil {
		return
	}
	if security.Honeypot != nil && security.Honeypot.Name == "" && security.Honeypot.Enabled == nil {
		addIssue("security.honeypot", "", "honeypot override must set a name or toggle enabled")
	}
	if security.RateLimit != nil {
		if security.RateLimit.WindowSeconds != nil && *security.RateLimit.WindowSeconds <= 0 {
			addIssue("security.rateLimit.windowSeconds", "", "windowSeconds must be positive")
		}
		if security.RateLimit.Max != nil && *security.RateLimit.Max <= 0 {
			addIssue("security.rateLimit.max", "", "max must be positive")
		}
	}
}

// mergeSecurity deep-merges user overrides over the defaults, per key.
// A missing override never disturbs sibling defaults.
func mergeSecurity(defaults Security, override *SecuritySpec) Security {
	merged := defaults
	if override == nil {
		return merged
	}
	if override.Honeypot != nil {
		if override.Honeypot.Name != "" {
			merged.Honeypot.Name = override.Honeypot.Name
		}
		if override.Honeypot.Enabled != nil {
			merged.Honeypot.Enabled = *override.Honeypot.Enabled
		}
	}
	if override.RateLimit != nil {
		if override.RateLimit.WindowSeconds != nil {
			merged.RateLimit.WindowSeconds = *override.RateLimit.WindowSeconds
		}
		if override.RateLimit.Max != nil {
			merged.RateLimit.Max = *override.RateLimit.Max
		}
	}
	return merged
}
