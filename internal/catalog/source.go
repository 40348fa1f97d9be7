package catalog

import (
	"embed"
	"encoding/json"
	"io/fs"
	"path"
	"sort"

	"github.com/logicsquare/konect-query-gateway/internal/errors"
)

//go:embed metaschema.json
var metaSchema string

//go:embed schemas/*.json
var builtinFS embed.FS

// Entry is one enumerated catalog entry. A parse or validation failure sets
// Err; the entry still flows to the registry so the failure lands in its
// failure set without aborting the rest of the pass.
type Entry struct {
	Schema Schema
	Origin string
	Err    error
}

// Source enumerates catalog entries once, in any order
type Source interface {
	Entries() ([]Entry, error)
}

// FileSource reads catalog entries from *.json files in a filesystem
type FileSource struct {
	fsys fs.FS
	dir  string
}

// NewFileSource creates a source over an arbitrary filesystem directory
func NewFileSource(fsys fs.FS, dir string) *FileSource {
	return &FileSource{fsys: fsys, dir: dir}
}

// BuiltinSource returns the embedded KONECT entity catalog
func BuiltinSource() *FileSource {
	return &FileSource{fsys: builtinFS, dir: "schemas"}
}

// Entries reads, validates, and decodes every entry file. The returned error
// covers enumeration only; per-file problems ride on Entry.Err.
func (s *FileSource) Entries() ([]Entry, error) {
	names, err := fs.Glob(s.fsys, path.Join(s.dir, "*.json"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchemaLoad, "failed to enumerate catalog files")
	}

	sort.Strings(names)

	entries := make([]Entry, 0, len(names))

	for _, name := range names {
		entry := Entry{Origin: path.Base(name)}

		raw, err := fs.ReadFile(s.fsys, name)
		if err != nil {
			entry.Err = errors.Wrapf(err, errors.ErrTypeSchemaLoad, "failed to read %s", name)
			entries = append(entries, entry)

			continue
		}

		if err := validateAgainstMetaSchema(raw); err != nil {
			entry.Err = err
			entries = append(entries, entry)

			continue
		}

		if err := json.Unmarshal(raw, &entry.Schema); err != nil {
			entry.Err = errors.Wrapf(err, errors.ErrTypeSchemaLoad, "failed to decode %s", name)
			entries = append(entries, entry)

			continue
		}

		entry.Err = entry.Schema.Validate()
		entries = append(entries, entry)
	}

	return entries, nil
}

// StaticSource serves a fixed slice of schemas, mainly for tests and callers
// that embed the gateway
type StaticSource struct {
	Schemas []Schema
	// Broken marks entries that should enumerate as failed, keyed by name
	Broken map[string]error
}

// Entries returns the configured schemas in declaration order
func (s *StaticSource) Entries() ([]Entry, error) {
	entries := make([]Entry, 0, len(s.Schemas))

	for _, schema := range s.Schemas {
		entry := Entry{Schema: schema, Origin: "static"}

		if err, ok := s.Broken[schema.Name]; ok {
			entry.Err = err
		} else if err := schema.Validate(); err != nil {
			entry.Err = err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
