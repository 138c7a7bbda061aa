package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidConfig reports an embedded configuration the runtime cannot
// serve. Generated handlers surface it as a 500 without detail.
var ErrInvalidConfig = errors.New("endpoint: invalid form configuration")

// Config is the runtime view of a compiled form configuration. The wire
// shape matches what pkg/compiler emits; ParseConfig adds the compiled
// pattern matchers the validator needs.
type Config struct {
	ID       string         `json:"id"`
	Endpoint string         `json:"endpoint"`
	Fields   []Field        `json:"fields"`
	Email    EmailConfig    `json:"email"`
	Security SecurityConfig `json:"security"`
}

// Field carries the per-input validation metadata.
type Field struct {
	Name          string        `json:"name"`
	Label         string        `json:"label"`
	Type          string        `json:"type"`
	Required      bool          `json:"required"`
	MaxLength     *int          `json:"maxLength"`
	MinLength     *int          `json:"minLength"`
	Pattern       *string       `json:"pattern"`
	Sanitize      string        `json:"sanitize"`
	Options       []FieldOption `json:"options"`
	Accept        *string       `json:"accept"`
	ImagesOnly    *bool         `json:"imagesOnly"`
	Multiple      bool          `json:"multiple"`
	MaxFiles      *int          `json:"maxFiles"`
	MaxFileSizeMb *float64      `json:"maxFileSizeMb"`

	pattern *regexp.Regexp
}

// IsUpload reports whether the field carries file payloads.
func (f Field) IsUpload() bool {
	return f.Type == "upload"
}

// FieldOption is one acceptable select/radio value.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// EmailConfig routes accepted submissions.
type EmailConfig struct {
	To           []string `json:"to"`
	From         *string  `json:"from"`
	ReplyToField *string  `json:"replyToField"`
	Subject      string   `json:"subject"`
	Intro        *string  `json:"intro"`
}

// SecurityConfig is the resolved anti-abuse policy.
type SecurityConfig struct {
	Honeypot  *string         `json:"honeypot"`
	RateLimit RateLimitConfig `json:"rateLimit"`
}

// RateLimitConfig bounds submissions per client per fixed window.
type RateLimitConfig struct {
	Max           int `json:"max"`
	WindowSeconds int `json:"windowSeconds"`
}

// ParseConfig decodes an embedded configuration literal and prepares it
// for request handling. Field patterns are compiled here, once, so a
// bad pattern fails at startup instead of per request.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.ID == "" {
		return Config{}, fmt.Errorf("%w: missing form id", ErrInvalidConfig)
	}
	if len(cfg.Fields) == 0 {
		return Config{}, fmt.Errorf("%w: no fields declared", ErrInvalidConfig)
	}
	for i := range cfg.Fields {
		field := &cfg.Fields[i]
		if field.Name == "" {
			return Config{}, fmt.Errorf("%w: field %d has no name", ErrInvalidConfig, i)
		}
		if field.Pattern != nil && *field.Pattern != "" {
			compiled, err := regexp.Compile(*field.Pattern)
			if err != nil {
				return Config{}, fmt.Errorf("%w: field %q pattern: %v", ErrInvalidConfig, field.Name, err)
			}
			field.pattern = compiled
		}
	}
	return cfg, nil
}
