package formdef

import "fmt"

// Entry pairs a decoded definition with its storage identity (the file
// stem for file-backed content stores).
type Entry struct {
	FileID     string
	Definition FormDefinition
}

// NormalizeCollection normalizes a batch of definitions. Individual
// failures are collected into a *CollectionError so one broken form
// does not hide its siblings; duplicate form ids abort the whole batch
// because generated output paths would collide.
func NormalizeCollection(entries []Entry) ([]FormDefinition, error) {
	forms := make([]FormDefinition, 0, len(entries))
	ids := make(map[string]struct{}, len(entries))
	var failures []error

	for _, entry := range entries {
		form, err := Normalize(entry.Definition, NormalizeOptions{FileID: entry.FileID})
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if _, dup := ids[form.ID]; dup {
			return nil, fmt.Errorf("formdef: form id %q declared more than once in batch: %w", form.ID, ErrDuplicateFormID)
		}
		ids[form.ID] = struct{}{}
		forms = append(forms, form)
	}

	if len(failures) > 0 {
		return forms, &CollectionError{Failures: failures}
	}
	return forms, nil
}
