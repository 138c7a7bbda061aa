package formdef

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Localized is a display string that is either a plain string or a
// locale-keyed mapping. Mapping entries keep their authoring order so
// the first declared locale acts as the fallback.
type Localized struct {
	plain   string
	isPlain bool
	entries []LocalizedEntry
	set     bool
}

// LocalizedEntry is a single locale/value pair of a localized mapping.
type LocalizedEntry struct {
	Locale string
	Value  string
}

// NewLocalized wraps a plain string.
func NewLocalized(value string) Localized {
	return Localized{plain: value, isPlain: true, set: true}
}

// NewLocalizedMap builds a mapping from ordered entries.
func NewLocalizedMap(entries ...LocalizedEntry) Localized {
	return Localized{entries: append([]LocalizedEntry(nil), entries...), set: true}
}

// IsSet reports whether the value was present in the source document.
func (l Localized) IsSet() bool {
	return l.set
}

// Entries exposes the ordered mapping entries (nil for plain strings).
func (l Localized) Entries() []LocalizedEntry {
	return append([]LocalizedEntry(nil), l.entries...)
}

// Resolve picks a display string. A plain string is returned unchanged.
// For mappings the requested locale wins when present, otherwise the
// first entry in authoring order. Absence of any resolvable string is a
// legitimate outcome and reported through ok, never as an error.
func (l Localized) Resolve(locale ...string) (value string, ok bool) {
	if !l.set {
		return "", false
	}
	if l.isPlain {
		return l.plain, true
	}
	if len(locale) > 0 && locale[0] != "" {
		for _, entry := range l.entries {
			if entry.Locale == locale[0] {
				return entry.Value, true
			}
		}
	}
	if len(l.entries) > 0 {
		return l.entries[0].Value, true
	}
	return "", false
}

// ResolveOr resolves to the given fallback when no string is available.
func (l Localized) ResolveOr(fallback string, locale ...string) string {
	if value, ok := l.Resolve(locale...); ok && value != "" {
		return value
	}
	return fallback
}

// UnmarshalYAML accepts either a string scalar or a mapping of locale
// keys to strings, preserving mapping order.
func (l *Localized) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var value string
		if err := node.Decode(&value); err != nil {
			return fmt.Errorf("formdef: localized value: %w", err)
		}
		*l = NewLocalized(value)
		return nil
	case yaml.MappingNode:
		entries := make([]LocalizedEntry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valueNode := node.Content[i+1]
			if valueNode.Kind != yaml.ScalarNode {
				return fmt.Errorf("formdef: localized value for locale %q must be a string", keyNode.Value)
			}
			var value string
			if err := valueNode.Decode(&value); err != nil {
				return fmt.Errorf("formdef: localized value for locale %q: %w", keyNode.Value, err)
			}
			entries = append(entries, LocalizedEntry{Locale: keyNode.Value, Value: value})
		}
		*l = NewLocalizedMap(entries...)
		return nil
	default:
		return fmt.Errorf("formdef: localized value must be a string or locale mapping")
	}
}

// UnmarshalJSON mirrors UnmarshalYAML for JSON sources. Object keys are
// walked through the token stream so authoring order survives.
func (l *Localized) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = Localized{}
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return fmt.Errorf("formdef: localized value: %w", err)
		}
		*l = NewLocalized(value)
		return nil
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("formdef: localized value must be a string or locale mapping")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil { // opening brace
		return fmt.Errorf("formdef: localized value: %w", err)
	}
	var entries []LocalizedEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("formdef: localized value: %w", err)
		}
		key, _ := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("formdef: localized value for locale %q must be a string", key)
		}
		entries = append(entries, LocalizedEntry{Locale: key, Value: value})
	}
	*l = NewLocalizedMap(entries...)
	return nil
}

// MarshalJSON round-trips the original shape.
func (l Localized) MarshalJSON() ([]byte, error) {
	if !l.set {
		return []byte("null"), nil
	}
	if l.isPlain {
		return json.Marshal(l.plain)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range l.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Locale)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// StringList accepts a single string or a sequence of strings.
type StringList []string

// UnmarshalYAML widens a scalar into a one-element list.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var value string
		if err := node.Decode(&value); err != nil {
			return fmt.Errorf("formdef: string list: %w", err)
		}
		*s = StringList{value}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return fmt.Errorf("formdef: string list: %w", err)
		}
		*s = StringList(values)
		return nil
	default:
		return fmt.Errorf("formdef: expected a string or list of strings")
	}
}

// UnmarshalJSON mirrors UnmarshalYAML for JSON sources.
func (s *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return fmt.Errorf("formdef: string list: %w", err)
		}
		*s = StringList{value}
		return nil
	}
	var values []string
	if err := json.Unmarshal(trimmed, &values); err != nil {
		return fmt.Errorf("formdef: string list: %w", err)
	}
	*s = StringList(values)
	return nil
}
