package content

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind names a document type. It doubles as the content tree subdirectory.
type Kind string

const (
	KindMoves      Kind = "moves"
	KindArmour     Kind = "armour"
	KindRanged     Kind = "ranged"
	KindStrategies Kind = "strategies"
	KindBodies     Kind = "bodies"
	KindActors     Kind = "actors"
	KindEncounters Kind = "encounters"
)

// Kinds lists every Kind in load order.
var Kinds = []Kind{KindMoves, KindArmour, KindRanged, KindStrategies, KindBodies, KindActors, KindEncounters}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown content kind %q", s)
	}
	return k, nil
}

// Document is one YAML source of the given Kind. Name identifies it within
// its kind (a file name on disk, a row key in a database).
type Document struct {
	Kind Kind
	Name string
	Data []byte
}

// ReadDir reads every *.yaml or *.yml file of a content tree. Blank files,
// nested directories and other extensions are skipped.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the documents sorted by kind then name.
func ReadDir(dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %q is not a directory", dir)
	}

	var (
		docs []Document
		errs []error
	)
	for _, kind := range Kinds {
		sub := filepath.Join(dir, string(kind))
		entries, err := os.ReadDir(sub)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %q: %w", sub, err))
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
				continue
			}
			path := filepath.Join(sub, name)
			data, err := os.ReadFile(path)
			if err != nil {
				errs = append(errs, fmt.Errorf("reading %q: %w", path, err))
				continue
			}
			if len(bytes.TrimSpace(data)) == 0 {
				continue
			}
			docs = append(docs, Document{Kind: kind, Name: name, Data: data})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return docs, nil
}

// byKind returns the documents of kind sorted by name.
func byKind(docs []Document, kind Kind) []Document {
	var out []Document
	for _, d := range docs {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
