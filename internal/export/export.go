// Package export renders spaces and assignments to downloadable formats.
// Formats register on a Registry instance; there is no package-level
// registry, so callers and tests construct their own.
package export

import (
	"fmt"
	"sort"

	"github.com/ipamkit/ipamkit/internal/domain"
)

// SpaceRecord pairs a space with its utilization counts, which several
// formats include alongside the stored fields.
type SpaceRecord struct {
	Space domain.Space
	Util  domain.Utilization
}

// AssignmentRecord pairs an assignment with its owning space, nil when
// unmanaged.
type AssignmentRecord struct {
	Assignment domain.Assignment
	Space      *domain.Space
}

type Exporter interface {
	FormatName() string
	FileExtension() string
	MIMEType() string
	ExportSpaces(spaces []SpaceRecord) ([]byte, error)
	ExportAssignments(assignments []AssignmentRecord) ([]byte, error)
}

type Registry struct {
	exporters map[string]Exporter
}

func NewRegistry() *Registry {
	return &Registry{exporters: make(map[string]Exporter)}
}

// NewDefaultRegistry returns a registry with every built-in format.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("csv", CSVExporter{})
	r.Register("json", JSONExporter{})
	r.Register("dhcpd", DHCPDExporter{})
	return r
}

func (r *Registry) Register(name string, e Exporter) {
	r.exporters[name] = e
}

func (r *Registry) Get(name string) (Exporter, error) {
	e, ok := r.exporters[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown export format %q", domain.ErrNotFound, name)
	}
	return e, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
