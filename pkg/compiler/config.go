package compiler

// CompiledConfig is the minimal runtime projection of a normalized form
// definition: every localized value resolved, every default filled, and
// nothing the request-time contract does not read. It is embedded
// verbatim into generated handlers, so field order here fixes the wire
// layout forever.
type CompiledConfig struct {
	ID       string   `json:"id"`
	Endpoint string   `json:"endpoint"`
	Fields   []Field  `json:"fields"`
	Email    Email    `json:"email"`
	Security Security `json:"security"`
}

// Field is the runtime metadata for one declared input. Numeric bounds
// stay nullable so the runtime can distinguish "unset" from zero.
type Field struct {
	Name          string   `json:"name"`
	Label         string   `json:"label"`
	Type          string   `json:"type"`
	Required      bool     `json:"required"`
	MaxLength     *int     `json:"maxLength"`
	MinLength     *int     `json:"minLength"`
	Pattern       *string  `json:"pattern"`
	Sanitize      string   `json:"sanitize"`
	Options       []Option `json:"options"`
	Accept        *string  `json:"accept"`
	ImagesOnly    *bool    `json:"imagesOnly"`
	Multiple      bool     `json:"multiple"`
	MaxFiles      *int     `json:"maxFiles"`
	MaxFileSizeMb *float64 `json:"maxFileSizeMb"`
}

// Option is one resolved select/radio choice.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Email is the resolved mail routing for a form.
type Email struct {
	To           []string `json:"to"`
	From         *string  `json:"from"`
	ReplyToField *string  `json:"replyToField"`
	Subject      string   `json:"subject"`
	Intro        *string  `json:"intro"`
}

// Security is the resolved anti-abuse policy. Honeypot is nil when the
// trap is disabled.
type Security struct {
	Honeypot  *string   `json:"honeypot"`
	RateLimit RateLimit `json:"rateLimit"`
}

// RateLimit bounds submissions per client per fixed window.
type RateLimit struct {
	Max           int `json:"max"`
	WindowSeconds int `json:"windowSeconds"`
}
