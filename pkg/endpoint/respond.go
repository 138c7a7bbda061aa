package endpoint

import (
	"encoding/json"
	"net/http"
)

// Response is the JSON envelope every handler reply uses. Errors is
// only populated for per-field validation failures.
type Response struct {
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

const (
	msgSent            = "Message sent"
	msgForbidden       = "Forbidden"
	msgMethod          = "Method not allowed"
	msgUnexpected      = "Unexpected fields supplied."
	msgValidation      = "Validation failed"
	msgRateLimited     = "Too many requests. Please try again later."
	msgMailConfig      = "Mail configuration error."
	msgMailUnavailable = "Unable to send message right now."
)

func respond(w http.ResponseWriter, status int, payload Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Encoding a Response cannot fail; a broken connection is the
	// client's problem at this point.
	_ = json.NewEncoder(w).Encode(payload)
}
