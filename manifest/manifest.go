// Package manifest holds the immutable in-memory set of assets a batch
// fetches, and decodes it from the documents game launchers publish.
package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
)

var (
	ErrDuplicatePath = errors.New("duplicate destination path")
	ErrMissingField  = errors.New("missing field")
	ErrUnknownFormat = errors.New("unknown manifest format")
)

// Entry describes one downloadable asset.
type Entry struct {
	ID    string
	Path  string
	Hash  string
	Size  int64
	URL   string
	Extra map[string]any
}

// Manifest is the read-only set of entries of a single batch.
type Manifest struct {
	entries []Entry
}

// New builds a Manifest from entries. Destination paths must be unique
// so that no two running tasks write the same file.
func New(entries []Entry) (*Manifest, error) {
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		key := filepath.Clean(e.Path)
		if id, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %q used by %q and %q", ErrDuplicatePath, e.Path, id, e.ID)
		}
		seen[key] = e.ID
	}

	return &Manifest{entries: slices.Clone(entries)}, nil
}

// Entries returns a copy of the entries in batch order.
func (m *Manifest) Entries() []Entry {
	if m == nil {
		return nil
	}
	return slices.Clone(m.entries)
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// TotalSize sums the expected sizes of all entries.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, e := range m.Entries() {
		total += e.Size
	}
	return total
}

// Name returns the base name of the entry's destination path.
func (e Entry) Name() string {
	return filepath.Base(e.Path)
}
