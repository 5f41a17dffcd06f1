// Package importer parses spaces and assignments out of uploaded files.
// Parsers report a failure per bad row and keep going; a batch with some
// bad rows still yields every good one. Formats register on a Registry
// instance, never package state.
package importer

import (
	"fmt"
	"sort"

	"github.com/ipamkit/ipamkit/internal/domain"
)

type Importer interface {
	FormatName() string
	FileExtensions() []string

	// ParseSpaces and ParseAssignments return candidate rows plus
	// per-row failures keyed by source line. The error return is for an
	// undecodable file only.
	ParseSpaces(content []byte) ([]domain.SpaceImportRow, []domain.ImportFailure, error)
	ParseAssignments(content []byte) ([]domain.AssignmentImportRow, []domain.ImportFailure, error)
}

type Registry struct {
	importers map[string]Importer
}

func NewRegistry() *Registry {
	return &Registry{importers: make(map[string]Importer)}
}

func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("csv", CSVImporter{})
	r.Register("json", JSONImporter{})
	return r
}

func (r *Registry) Register(name string, i Importer) {
	r.importers[name] = i
}

func (r *Registry) Get(name string) (Importer, error) {
	i, ok := r.importers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown import format %q", domain.ErrNotFound, name)
	}
	return i, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.importers))
	for name := range r.importers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
