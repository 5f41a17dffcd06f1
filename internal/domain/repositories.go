package domain

import (
	"context"
	"net/netip"
)

type SpaceRepository interface {
	List(ctx context.Context) ([]Space, error)
	FindByID(ctx context.Context, id int64) (Space, error)
	Create(ctx context.Context, space Space) (Space, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type AssignmentRepository interface {
	List(ctx context.Context) ([]Assignment, error)
	ListBySpaceID(ctx context.Context, spaceID int64) ([]Assignment, error)
	FindByID(ctx context.Context, id AssignmentID) (Assignment, error)
	FindByAddr(ctx context.Context, addr netip.Addr) (Assignment, error)
	Create(ctx context.Context, a Assignment) (Assignment, error)
	Update(ctx context.Context, id AssignmentID, input UpdateAssignmentInput) (Assignment, error)
	Delete(ctx context.Context, id AssignmentID) (bool, error)
	DeleteBySpaceID(ctx context.Context, spaceID int64) (int64, error)
	CountBySpaceID(ctx context.Context, spaceID int64) (int64, error)
}

type RangeRepository interface {
	List(ctx context.Context) ([]ReservedRange, error)
	ListBySpaceID(ctx context.Context, spaceID int64) ([]ReservedRange, error)
	Create(ctx context.Context, r ReservedRange) (ReservedRange, error)
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteBySpaceID(ctx context.Context, spaceID int64) (int64, error)
}

// Snapshotter is the consistency point the backup layer snapshots from: a
// Dump must never observe a half-written record, and Load replaces the
// whole store atomically.
type Snapshotter interface {
	Dump(ctx context.Context) (Snapshot, error)
	Load(ctx context.Context, snap Snapshot) error
}
