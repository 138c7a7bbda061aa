package endpoint

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Message is a fully built outgoing mail. Raw holds the complete
// RFC 822 payload, headers included; transports must not rewrite it.
type Message struct {
	From string
	To   []string
	Raw  []byte
}

// Sender dispatches a built message. Implementations report failure
// through the error; the handler never retries.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls the wrapped function.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// interpolate substitutes ${fieldName} placeholders with sanitized
// submission values. Unresolved placeholders render as empty strings.
func interpolate(template string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[2 : len(match)-1]
		return values[name]
	})
}

// buildBody renders the plain-text body: optional intro, then one
// "Label: value" line per declared field in declaration order.
func buildBody(cfg Config, values map[string]string) string {
	var lines []string
	if cfg.Email.Intro != nil && *cfg.Email.Intro != "" {
		lines = append(lines, *cfg.Email.Intro, "")
	}
	for _, field := range cfg.Fields {
		label := field.Label
		if label == "" {
			label = field.Name
		}
		value := values[field.Name]
		if value == "" {
			value = "(blank)"
		}
		lines = append(lines, label+": "+value)
	}
	return strings.Join(lines, "\n")
}

// newBoundary produces a fresh multipart boundary token per request.
func newBoundary() (string, error) {
	token := make([]byte, 12)
	if _, err := rand.Read(token); err != nil {
		return "", fmt.Errorf("endpoint: generate mail boundary: %w", err)
	}
	return "=_Part_" + hex.EncodeToString(token), nil
}

// buildMessage assembles the outgoing mail. With no attachments the
// body ships as flat text/plain; otherwise as multipart/mixed with one
// base64 part per attachment under a per-request random boundary.
func buildMessage(cfg Config, values map[string]string, subject, body string, attachments []Attachment) (Message, error) {
	const crlf = "\r\n"

	var headers []string
	from := ""
	if cfg.Email.From != nil && *cfg.Email.From != "" {
		from = *cfg.Email.From
		headers = append(headers, "From: "+from)
	}
	if cfg.Email.ReplyToField != nil {
		if replyTo := sanitizeValue(values[*cfg.Email.ReplyToField], "email"); replyTo != "" {
			headers = append(headers, "Reply-To: "+replyTo)
		}
	}
	headers = append(headers,
		"To: "+strings.Join(cfg.Email.To, ","),
		"Subject: "+sanitizeHeader(subject),
		"MIME-Version: 1.0",
	)

	var sb strings.Builder
	if len(attachments) == 0 {
		headers = append(headers, "Content-Type: text/plain; charset=UTF-8")
		sb.WriteString(strings.Join(headers, crlf))
		sb.WriteString(crlf + crlf)
		sb.WriteString(body)
	} else {
		boundary, err := newBoundary()
		if err != nil {
			return Message{}, err
		}
		headers = append(headers, `Content-Type: multipart/mixed; boundary="`+boundary+`"`)
		sb.WriteString(strings.Join(headers, crlf))
		sb.WriteString(crlf + crlf)

		sb.WriteString("--" + boundary + crlf)
		sb.WriteString("Content-Type: text/plain; charset=UTF-8" + crlf)
		sb.WriteString("Content-Transfer-Encoding: 8bit" + crlf + crlf)
		sb.WriteString(body + crlf + crlf)

		for _, attachment := range attachments {
			name := strings.ReplaceAll(attachment.Name, `"`, "")
			sb.WriteString("--" + boundary + crlf)
			sb.WriteString("Content-Type: " + attachment.Mime + `; name="` + name + `"` + crlf)
			sb.WriteString(`Content-Disposition: attachment; filename="` + name + `"` + crlf)
			sb.WriteString("Content-Transfer-Encoding: base64" + crlf + crlf)
			sb.WriteString(chunkBase64(attachment.Data) + crlf)
		}
		sb.WriteString("--" + boundary + "--")
	}

	return Message{From: from, To: append([]string(nil), cfg.Email.To...), Raw: []byte(sb.String())}, nil
}

// sanitizeHeader strips CR/LF so submission values cannot inject
// additional mail headers.
func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	return strings.ReplaceAll(value, "\n", " ")
}

// chunkBase64 encodes data in 76-column lines per RFC 2045.
func chunkBase64(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	const width = 76
	var sb strings.Builder
	for len(encoded) > width {
		sb.WriteString(encoded[:width])
		sb.WriteString("\r\n")
		encoded = encoded[width:]
	}
	sb.WriteString(encoded)
	sb.WriteString("\r\n")
	return sb.String()
}
