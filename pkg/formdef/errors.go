package formdef

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateFieldName signals two fields sharing a name within one form.
	ErrDuplicateFieldName = errors.New("formdef: duplicate field name")
	// ErrIDMismatch signals a form id that differs from its storage identity.
	ErrIDMismatch = errors.New("formdef: form id does not match file id")
	// ErrDuplicateFormID signals two forms sharing an id within one batch.
	ErrDuplicateFormID = errors.New("formdef: duplicate form id")
)

// Issue is a single grammar violation with optional location metadata.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	switch {
	case i.Field != "":
		return fmt.Sprintf("field %q: %s", i.Field, i.Message)
	case i.Path != "":
		return fmt.Sprintf("%s: %s", i.Path, i.Message)
	default:
		return i.Message
	}
}

// ValidationError aggregates every grammar violation found while
// normalizing a single form definition.
type ValidationError struct {
	FormID string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("formdef: form %q failed validation", e.FormID)
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("formdef: form %q failed validation: %s", e.FormID, strings.Join(parts, "; "))
}

// CollectionError aggregates independent per-form normalization
// failures from a batch run.
type CollectionError struct {
	Failures []error
}

func (e *CollectionError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, err := range e.Failures {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("formdef: %d form(s) failed normalization: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the per-form failures to errors.Is and errors.As.
func (e *CollectionError) Unwrap() []error {
	return e.Failures
}
