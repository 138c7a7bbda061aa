package formdef

// FieldType enumerates the input kinds a form definition may declare.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeTel      FieldType = "tel"
	FieldTypeNumber   FieldType = "number"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeSelect   FieldType = "select"
	FieldTypeDate     FieldType = "date"
	FieldTypeHidden   FieldType = "hidden"
	FieldTypeUpload   FieldType = "upload"
)

// SanitizeMode enumerates the server-side sanitizers a field may request.
type SanitizeMode string

const (
	SanitizeNone   SanitizeMode = "none"
	SanitizeText   SanitizeMode = "text"
	SanitizeEmail  SanitizeMode = "email"
	SanitizeTel    SanitizeMode = "tel"
	SanitizeNumber SanitizeMode = "number"
)

// FieldOption is a single choice for select and radio fields.
type FieldOption struct {
	Value    string    `yaml:"value" json:"value"`
	Label    Localized `yaml:"label" json:"label"`
	Disabled bool      `yaml:"disabled" json:"disabled,omitempty"`
}

// FieldSpec describes one input of a form. Upload-only attributes are
// rejected on other field types during normalization.
type FieldSpec struct {
	Name         string        `yaml:"name" json:"name"`
	Label        Localized     `yaml:"label" json:"label"`
	Type         FieldType     `yaml:"type" json:"type"`
	Required     bool          `yaml:"required" json:"required"`
	Placeholder  Localized     `yaml:"placeholder" json:"placeholder,omitempty"`
	MaxLength    *int          `yaml:"maxLength" json:"maxLength,omitempty"`
	MinLength    *int          `yaml:"minLength" json:"minLength,omitempty"`
	Pattern      string        `yaml:"pattern" json:"pattern,omitempty"`
	DefaultValue string        `yaml:"defaultValue" json:"defaultValue,omitempty"`
	Sanitize     SanitizeMode  `yaml:"sanitize" json:"sanitize,omitempty"`
	Options      []FieldOption `yaml:"options" json:"options,omitempty"`

	// Upload attributes.
	Accept        string    `yaml:"accept" json:"accept,omitempty"`
	ImagesOnly    *bool     `yaml:"imagesOnly" json:"imagesOnly,omitempty"`
	Multiple      bool      `yaml:"multiple" json:"multiple,omitempty"`
	MaxFiles      *int      `yaml:"maxFiles" json:"maxFiles,omitempty"`
	MaxFileSizeMb *float64  `yaml:"maxFileSizeMb" json:"maxFileSizeMb,omitempty"`
	NoFileText    Localized `yaml:"noFileText" json:"noFileText,omitempty"`
	BrowseLabel   Localized `yaml:"browseLabel" json:"browseLabel,omitempty"`
	RemoveLabel   Localized `yaml:"removeLabel" json:"removeLabel,omitempty"`
}

// IsUpload reports whether the field carries file payloads.
func (f FieldSpec) IsUpload() bool {
	return f.Type == FieldTypeUpload
}

func (f FieldSpec) hasUploadAttrs() bool {
	return f.Accept != "" ||
		f.ImagesOnly != nil ||
		f.Multiple ||
		f.MaxFiles != nil ||
		f.MaxFileSizeMb != nil ||
		f.NoFileText.IsSet() ||
		f.BrowseLabel.IsSet() ||
		f.RemoveLabel.IsSet()
}

// EmailSpec routes a form's submissions over email.
type EmailSpec struct {
	To           StringList `yaml:"to" json:"to"`
	From         string     `yaml:"from" json:"from,omitempty"`
	ReplyToField string     `yaml:"replyToField" json:"replyToField,omitempty"`
	Subject      Localized  `yaml:"subject" json:"subject"`
	Intro        Localized  `yaml:"intro" json:"intro,omitempty"`
}

// HoneypotSpec configures the hidden spam-trap field.
type HoneypotSpec struct {
	Name    string    `yaml:"name" json:"name"`
	Label   Localized `yaml:"label" json:"label,omitempty"`
	Enabled *bool     `yaml:"enabled" json:"enabled,omitempty"`
}

// RateLimitSpec bounds submissions per client within a fixed window.
type RateLimitSpec struct {
	WindowSeconds *int `yaml:"windowSeconds" json:"windowSeconds,omitempty"`
	Max           *int `yaml:"max" json:"max,omitempty"`
}

// SecuritySpec carries anti-abuse overrides merged over the defaults.
type SecuritySpec struct {
	Honeypot  *HoneypotSpec  `yaml:"honeypot" json:"honeypot,omitempty"`
	RateLimit *RateLimitSpec `yaml:"rateLimit" json:"rateLimit,omitempty"`
}

// Security is the fully resolved anti-abuse policy after normalization.
type Security struct {
	Honeypot  Honeypot  `json:"honeypot"`
	RateLimit RateLimit `json:"rateLimit"`
}

// Honeypot is the resolved spam-trap configuration.
type Honeypot struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// RateLimit is the resolved submission throttle.
type RateLimit struct {
	WindowSeconds int `json:"windowSeconds"`
	Max           int `json:"max"`
}

// FormDefinition is the authoring-time description of a form. Decode
// produces the raw shape; Normalize validates it and fills defaults,
// after which Resolved is populated.
type FormDefinition struct {
	ID       string        `yaml:"id" json:"id"`
	Title    Localized     `yaml:"title" json:"title"`
	Endpoint string        `yaml:"endpoint" json:"endpoint,omitempty"`
	Fields   []FieldSpec   `yaml:"fields" json:"fields"`
	Email    EmailSpec     `yaml:"email" json:"email"`
	Security *SecuritySpec `yaml:"security" json:"security,omitempty"`

	// Resolved holds the deep-merged security policy. It is only set on
	// definitions returned by Normalize.
	Resolved Security `yaml:"-" json:"-"`

	normalized bool
}

// Normalized reports whether the definition passed through Normalize.
func (d FormDefinition) Normalized() bool {
	return d.normalized
}

// FieldNamed returns the field with the given name.
func (d FormDefinition) FieldNamed(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
