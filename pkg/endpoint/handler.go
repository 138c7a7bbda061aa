package endpoint

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formpost/pkg/endpoint/limitstore"
)

const defaultMaxMemory = 16 << 20 // buffered multipart bytes before spilling to disk

// Handler serves one form endpoint. It is stateless per request apart
// from the shared rate-limit counter store.
type Handler struct {
	cfg       Config
	origins   []string
	store     limitstore.Store
	sender    Sender
	log       zerolog.Logger
	maxMemory int64
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithAllowedOrigins installs the origin allow-list. An empty list
// disables origin checking entirely; that is an explicit opt-out, not
// a default-deny.
func WithAllowedOrigins(origins ...string) HandlerOption {
	return func(h *Handler) {
		for _, origin := range origins {
			if origin != "" {
				h.origins = append(h.origins, origin)
			}
		}
	}
}

// WithLimitStore injects the shared rate-limit counter store.
func WithLimitStore(store limitstore.Store) HandlerOption {
	return func(h *Handler) {
		if store != nil {
			h.store = store
		}
	}
}

// WithSender injects the mail transport.
func WithSender(sender Sender) HandlerOption {
	return func(h *Handler) {
		if sender != nil {
			h.sender = sender
		}
	}
}

// WithLogger injects the operator log. Nothing logged here ever
// reaches a client response.
func WithLogger(log zerolog.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// WithMaxMemory bounds the in-memory buffer used for multipart parsing.
func WithMaxMemory(limit int64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.maxMemory = limit
		}
	}
}

// New builds the handler for a parsed configuration.
func New(cfg Config, opts ...HandlerOption) *Handler {
	h := &Handler{
		cfg:       cfg,
		log:       zerolog.Nop(),
		maxMemory: defaultMaxMemory,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h
}

// ServeHTTP runs the request state machine: origin, method, field
// allow-list, honeypot, per-field validation, rate limit, mail
// dispatch. Strictly sequential; a request either fully succeeds (mail
// sent) or fully fails with one of the fixed taxonomy messages.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(h.origins) > 0 {
		if !originAllowed(h.origins, r.Host, r.Header.Get("Origin")) {
			respond(w, http.StatusForbidden, Response{OK: false, Message: msgForbidden})
			return
		}
	}

	if r.Method != http.MethodPost {
		respond(w, http.StatusMethodNotAllowed, Response{OK: false, Message: msgMethod})
		return
	}

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			if err := r.ParseForm(); err != nil {
				h.log.Debug().Err(err).Msg("form body parse failed")
			}
		} else {
			h.log.Debug().Err(err).Msg("multipart parse failed")
		}
	}

	if !h.incomingFieldsAllowed(r) {
		respond(w, http.StatusBadRequest, Response{OK: false, Message: msgUnexpected})
		return
	}

	if name := h.honeypotName(); name != "" && honeypotTripped(r, name) {
		// Indistinguishable from success so bots learn nothing.
		respond(w, http.StatusOK, Response{OK: true, Message: msgSent})
		return
	}

	values, attachments, fieldErrors := h.validateFields(r)
	if len(fieldErrors) > 0 {
		respond(w, http.StatusBadRequest, Response{OK: false, Message: msgValidation, Errors: fieldErrors})
		return
	}

	if !h.withinRateLimit(r) {
		respond(w, http.StatusTooManyRequests, Response{OK: false, Message: msgRateLimited})
		return
	}

	if len(h.cfg.Email.To) == 0 {
		respond(w, http.StatusInternalServerError, Response{OK: false, Message: msgMailConfig})
		return
	}

	subject := interpolate(h.cfg.Email.Subject, values)
	body := buildBody(h.cfg, values)
	msg, err := buildMessage(h.cfg, values, subject, body, attachments)
	if err != nil {
		h.log.Error().Err(err).Str("form", h.cfg.ID).Msg("mail build failed")
		respond(w, http.StatusInternalServerError, Response{OK: false, Message: msgMailUnavailable})
		return
	}

	if h.sender == nil {
		h.log.Error().Str("form", h.cfg.ID).Msg("no mail transport configured")
		respond(w, http.StatusInternalServerError, Response{OK: false, Message: msgMailUnavailable})
		return
	}
	if err := h.sender.Send(r.Context(), msg); err != nil {
		h.log.Error().Err(err).Str("form", h.cfg.ID).Msg("mail dispatch failed")
		respond(w, http.StatusInternalServerError, Response{OK: false, Message: msgMailUnavailable})
		return
	}

	respond(w, http.StatusOK, Response{OK: true, Message: msgSent})
}

// honeypotTripped reports whether the trap field carries any value,
// under its plain name or the array-suffixed variant the allow-list
// also admits.
func honeypotTripped(r *http.Request, name string) bool {
	for _, key := range []string{name, name + "[]"} {
		for _, value := range r.PostForm[key] {
			if strings.TrimSpace(value) != "" {
				return true
			}
		}
	}
	return false
}

func (h *Handler) honeypotName() string {
	if h.cfg.Security.Honeypot == nil {
		return ""
	}
	return *h.cfg.Security.Honeypot
}

// incomingFieldsAllowed enforces the strict allow-list: declared field
// names plus the honeypot, each also accepted with an array suffix.
func (h *Handler) incomingFieldsAllowed(r *http.Request) bool {
	allowed := make(map[string]struct{}, 2*(len(h.cfg.Fields)+1))
	add := func(name string) {
		allowed[name] = struct{}{}
		allowed[name+"[]"] = struct{}{}
	}
	for _, field := range h.cfg.Fields {
		add(field.Name)
	}
	if name := h.honeypotName(); name != "" {
		add(name)
	}

	for name := range r.PostForm {
		if _, ok := allowed[name]; !ok {
			return false
		}
	}
	if r.MultipartForm != nil {
		for name := range r.MultipartForm.File {
			if _, ok := allowed[name]; !ok {
				return false
			}
		}
	}
	return true
}

// validateFields runs per-field validation for every declared field in
// declaration order, accumulating all errors instead of stopping at
// the first failing field.
func (h *Handler) validateFields(r *http.Request) (map[string]string, []Attachment, map[string]string) {
	values := make(map[string]string, len(h.cfg.Fields))
	fieldErrors := make(map[string]string)
	var attachments []Attachment

	for _, field := range h.cfg.Fields {
		if field.IsUpload() {
			files := h.filesFor(r, field.Name)
			accepted, message := parseUploads(field, files)
			if message != "" {
				fieldErrors[field.Name] = message
				values[field.Name] = ""
				continue
			}
			names := make([]string, 0, len(accepted))
			for _, attachment := range accepted {
				names = append(names, attachment.Name)
			}
			values[field.Name] = strings.Join(names, ", ")
			attachments = append(attachments, accepted...)
			continue
		}

		arrayValues := r.PostForm[field.Name+"[]"]
		plainValues := r.PostForm[field.Name]
		if len(arrayValues) > 0 || len(plainValues) > 1 {
			fieldErrors[field.Name] = "Invalid value."
			continue
		}
		raw := ""
		if len(plainValues) > 0 {
			raw = plainValues[0]
		}

		value := sanitizeValue(raw, field.Sanitize)
		values[field.Name] = value

		if field.Required && value == "" {
			fieldErrors[field.Name] = "This field is required."
			continue
		}

		if field.Type == "email" && value != "" && !emailPattern.MatchString(value) {
			fieldErrors[field.Name] = "Please enter a valid email."
		}
		length := utf8.RuneCountInString(value)
		if field.MaxLength != nil && length > *field.MaxLength {
			fieldErrors[field.Name] = "Too long."
		}
		if field.MinLength != nil && length < *field.MinLength {
			fieldErrors[field.Name] = "Too short."
		}
		if field.pattern != nil && !field.pattern.MatchString(value) {
			fieldErrors[field.Name] = "Invalid format."
		}
		if (field.Type == "select" || field.Type == "radio") && value != "" && len(field.Options) > 0 {
			if !optionValueAllowed(field.Options, value) {
				fieldErrors[field.Name] = "Invalid selection."
			}
		}
	}

	return values, attachments, fieldErrors
}

func optionValueAllowed(options []FieldOption, value string) bool {
	for _, option := range options {
		if option.Value == value {
			return true
		}
	}
	return false
}

// filesFor flattens the plain and array-suffixed file keys for a field
// into one uniform list.
func (h *Handler) filesFor(r *http.Request, name string) []IncomingFile {
	if r.MultipartForm == nil {
		return nil
	}
	var files []IncomingFile
	for _, key := range []string{name, name + "[]"} {
		for _, header := range r.MultipartForm.File[key] {
			files = append(files, fileFromHeader(header))
		}
	}
	return files
}

// withinRateLimit applies the fixed-window policy keyed by form and
// client address. Store failures allow the request through: the
// limiter protects the mailbox, not the other way round.
func (h *Handler) withinRateLimit(r *http.Request) bool {
	if h.store == nil {
		return true
	}
	limit := h.cfg.Security.RateLimit.Max
	window := time.Duration(h.cfg.Security.RateLimit.WindowSeconds) * time.Second
	if limit <= 0 || window <= 0 {
		return true
	}

	key := h.cfg.ID + "|" + clientAddress(r)
	count, err := h.store.Increment(r.Context(), key, window)
	if err != nil {
		h.log.Warn().Err(err).Str("form", h.cfg.ID).Msg("rate-limit store unavailable, failing open")
		return true
	}
	return count <= limit
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
