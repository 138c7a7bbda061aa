// Package content loads form definition documents from a content
// directory, one document per file.
package content

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/goliatone/go-formpost/pkg/formdef"
)

// Load reads every form definition under dir in fsys. Files are read
// in name order so downstream output is stable; the file stem becomes
// the entry's file identifier. Only .yml, .yaml, and .json files are
// considered, anything else in the directory is skipped.
func Load(ctx context.Context, fsys fs.FS, dir string) ([]formdef.Entry, error) {
	if dir == "" {
		dir = "."
	}

	listing, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("content: read directory %q: %w", dir, err)
	}

	names := make([]string, 0, len(listing))
	for _, entry := range listing {
		if entry.IsDir() {
			continue
		}
		if !isDefinitionFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	entries := make([]formdef.Entry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("content: read %q: %w", name, err)
		}

		definition, err := formdef.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("content: decode %q: %w", name, err)
		}

		entries = append(entries, formdef.Entry{
			FileID:     fileStem(name),
			Definition: definition,
		})
	}

	return entries, nil
}

func isDefinitionFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}

func fileStem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
