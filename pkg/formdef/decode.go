package formdef

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Decode parses a raw form definition document. YAML and JSON sources
// are both accepted; unknown keys are rejected so authoring typos
// surface at build time instead of silently dropping constraints.
func Decode(data []byte) (FormDefinition, error) {
	var def FormDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return FormDefinition{}, errors.New("formdef: definition document is empty")
		}
		return FormDefinition{}, fmt.Errorf("formdef: decode definition: %w", err)
	}
	return def, nil
}
