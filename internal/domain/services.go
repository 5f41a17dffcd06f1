package domain

import (
	"context"
	"net/netip"
)

// AllocationService resolves addresses to spaces, tracks assignments, and
// computes free addresses.
type AllocationService interface {
	CreateSpace(ctx context.Context, input CreateSpaceInput) (Space, error)
	ListSpaces(ctx context.Context) ([]Space, error)
	GetSpace(ctx context.Context, id int64) (Space, error)
	DeleteSpace(ctx context.Context, id int64, cascade bool) error
	FindOwningSpace(ctx context.Context, addr netip.Addr) (Space, error)

	Assign(ctx context.Context, input CreateAssignmentInput) (Assignment, error)
	GetAssignment(ctx context.Context, id AssignmentID) (Assignment, error)
	ListAssignments(ctx context.Context, spaceID int64) ([]Assignment, error)
	UpdateAssignment(ctx context.Context, id AssignmentID, input UpdateAssignmentInput) (Assignment, error)
	DeleteAssignment(ctx context.Context, id AssignmentID) error

	AddReservedRange(ctx context.Context, input CreateRangeInput) (ReservedRange, error)
	ListReservedRanges(ctx context.Context, spaceID int64) ([]ReservedRange, error)

	NextAvailable(ctx context.Context, spaceID int64) (netip.Addr, error)
	AvailableList(ctx context.Context, spaceID int64, limit int) ([]netip.Addr, error)
	Query(ctx context.Context, addr netip.Addr) (QueryResult, error)
	Utilization(ctx context.Context, spaceID int64) (Utilization, error)

	ImportSpaces(ctx context.Context, rows []SpaceImportRow) (ImportResult, error)
	ImportAssignments(ctx context.Context, rows []AssignmentImportRow) (ImportResult, error)
}
