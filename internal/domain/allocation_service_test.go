package domain

import (
	"context"
	"errors"
	"net/netip"
	"testing"
)

type stubSpaceRepo struct {
	listFn   func(context.Context) ([]Space, error)
	findFn   func(context.Context, int64) (Space, error)
	createFn func(context.Context, Space) (Space, error)
	deleteFn func(context.Context, int64) (bool, error)
}

func (s stubSpaceRepo) List(ctx context.Context) ([]Space, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s stubSpaceRepo) FindByID(ctx context.Context, id int64) (Space, error) {
	if s.findFn == nil {
		return Space{}, ErrNotFound
	}
	return s.findFn(ctx, id)
}

func (s stubSpaceRepo) Create(ctx context.Context, space Space) (Space, error) {
	if s.createFn == nil {
		return space, nil
	}
	return s.createFn(ctx, space)
}

func (s stubSpaceRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if s.deleteFn == nil {
		return false, nil
	}
	return s.deleteFn(ctx, id)
}

type stubAssignmentRepo struct {
	listFn          func(context.Context) ([]Assignment, error)
	listBySpaceFn   func(context.Context, int64) ([]Assignment, error)
	findByIDFn      func(context.Context, AssignmentID) (Assignment, error)
	findByAddrFn    func(context.Context, netip.Addr) (Assignment, error)
	createFn        func(context.Context, Assignment) (Assignment, error)
	updateFn        func(context.Context, AssignmentID, UpdateAssignmentInput) (Assignment, error)
	deleteFn        func(context.Context, AssignmentID) (bool, error)
	deleteBySpaceFn func(context.Context, int64) (int64, error)
	countFn         func(context.Context, int64) (int64, error)
}

func (s stubAssignmentRepo) List(ctx context.Context) ([]Assignment, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s stubAssignmentRepo) ListBySpaceID(ctx context.Context, spaceID int64) ([]Assignment, error) {
	if s.listBySpaceFn == nil {
		return nil, nil
	}
	return s.listBySpaceFn(ctx, spaceID)
}

func (s stubAssignmentRepo) FindByID(ctx context.Context, id AssignmentID) (Assignment, error) {
	if s.findByIDFn == nil {
		return Assignment{}, ErrNotFound
	}
	return s.findByIDFn(ctx, id)
}

func (s stubAssignmentRepo) FindByAddr(ctx context.Context, addr netip.Addr) (Assignment, error) {
	if s.findByAddrFn == nil {
		return Assignment{}, ErrNotFound
	}
	return s.findByAddrFn(ctx, addr)
}

func (s stubAssignmentRepo) Create(ctx context.Context, a Assignment) (Assignment, error) {
	if s.createFn == nil {
		return a, nil
	}
	return s.createFn(ctx, a)
}

func (s stubAssignmentRepo) Update(ctx context.Context, id AssignmentID, input UpdateAssignmentInput) (Assignment, error) {
	if s.updateFn == nil {
		return Assignment{}, ErrNotFound
	}
	return s.updateFn(ctx, id, input)
}

func (s stubAssignmentRepo) Delete(ctx context.Context, id AssignmentID) (bool, error) {
	if s.deleteFn == nil {
		return false, nil
	}
	return s.deleteFn(ctx, id)
}

func (s stubAssignmentRepo) DeleteBySpaceID(ctx context.Context, spaceID int64) (int64, error) {
	if s.deleteBySpaceFn == nil {
		return 0, nil
	}
	return s.deleteBySpaceFn(ctx, spaceID)
}

func (s stubAssignmentRepo) CountBySpaceID(ctx context.Context, spaceID int64) (int64, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, spaceID)
}

type stubRangeRepo struct {
	listFn          func(context.Context) ([]ReservedRange, error)
	listBySpaceFn   func(context.Context, int64) ([]ReservedRange, error)
	createFn        func(context.Context, ReservedRange) (ReservedRange, error)
	deleteFn        func(context.Context, int64) (bool, error)
	deleteBySpaceFn func(context.Context, int64) (int64, error)
}

func (s stubRangeRepo) List(ctx context.Context) ([]ReservedRange, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s stubRangeRepo) ListBySpaceID(ctx context.Context, spaceID int64) ([]ReservedRange, error) {
	if s.listBySpaceFn == nil {
		return nil, nil
	}
	return s.listBySpaceFn(ctx, spaceID)
}

func (s stubRangeRepo) Create(ctx context.Context, r ReservedRange) (ReservedRange, error) {
	if s.createFn == nil {
		return r, nil
	}
	return s.createFn(ctx, r)
}

func (s stubRangeRepo) Delete(ctx context.Context, id int64) (bool, error) {
	if s.deleteFn == nil {
		return false, nil
	}
	return s.deleteFn(ctx, id)
}

func (s stubRangeRepo) DeleteBySpaceID(ctx context.Context, spaceID int64) (int64, error) {
	if s.deleteBySpaceFn == nil {
		return 0, nil
	}
	return s.deleteBySpaceFn(ctx, spaceID)
}

func spaceWith(t *testing.T, id int64, cidr string) Space {
	t.Helper()
	return Space{ID: id, CIDR: mustPrefix(t, cidr)}
}

func TestCreateSpaceRejectsInvalidCIDR(t *testing.T) {
	svc := NewAllocationService(stubSpaceRepo{}, stubAssignmentRepo{}, stubRangeRepo{})

	_, err := svc.CreateSpace(context.Background(), CreateSpaceInput{CIDR: "not-a-cidr"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateSpaceRejectsOverlap(t *testing.T) {
	created := false
	svc := NewAllocationService(
		stubSpaceRepo{
			listFn: func(context.Context) ([]Space, error) {
				return []Space{spaceWith(t, 1, "192.168.0.0/16")}, nil
			},
			createFn: func(_ context.Context, space Space) (Space, error) {
				created = true
				return space, nil
			},
		},
		stubAssignmentRepo{},
		stubRangeRepo{},
	)

	_, err := svc.CreateSpace(context.Background(), CreateSpaceInput{CIDR: "192.168.1.0/24"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if created {
		t.Fatal("overlapping space must not reach the repository")
	}
}

func TestCreateSpaceRejectsVLANOutOfRange(t *testing.T) {
	svc := NewAllocationService(stubSpaceRepo{}, stubAssignmentRepo{}, stubRangeRepo{})

	_, err := svc.CreateSpace(context.Background(), CreateSpaceInput{CIDR: "10.0.0.0/24", VLANID: 5000})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAssignInfersOwningSpace(t *testing.T) {
	var got Assignment
	svc := NewAllocationService(
		stubSpaceRepo{
			listFn: func(context.Context) ([]Space, error) {
				return []Space{spaceWith(t, 7, "10.0.0.0/24")}, nil
			},
		},
		stubAssignmentRepo{
			createFn: func(_ context.Context, a Assignment) (Assignment, error) {
				got = a
				a.ID = AssignmentID("a-1")
				return a, nil
			},
		},
		stubRangeRepo{},
	)

	a, err := svc.Assign(context.Background(), CreateAssignmentInput{Addr: "10.0.0.15", Hostname: "printer"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.SpaceID != 7 {
		t.Errorf("inferred space id = %d, want 7", got.SpaceID)
	}
	if got.Status != StatusActive {
		t.Errorf("default status = %s, want active", got.Status)
	}
	if a.ID != AssignmentID("a-1") {
		t.Errorf("unexpected assignment id %q", a.ID)
	}
}

func TestAssignStrictRejectsAddressOutsideEverySpace(t *testing.T) {
	svc := NewAllocationService(stubSpaceRepo{}, stubAssignmentRepo{}, stubRangeRepo{})

	_, err := svc.Assign(context.Background(), CreateAssignmentInput{Addr: "203.0.113.9"})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestAssignAllowsUnmanagedWhenRequested(t *testing.T) {
	var got Assignment
	svc := NewAllocationService(
		stubSpaceRepo{},
		stubAssignmentRepo{
			createFn: func(_ context.Context, a Assignment) (Assignment, error) {
				got = a
				return a, nil
			},
		},
		stubRangeRepo{},
	)

	_, err := svc.Assign(context.Background(), CreateAssignmentInput{Addr: "203.0.113.9", AllowUnmanaged: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.SpaceID != 0 {
		t.Errorf("unmanaged assignment got space id %d", got.SpaceID)
	}
}

func TestAssignRejectsDuplicateAddress(t *testing.T) {
	created := false
	svc := NewAllocationService(
		stubSpaceRepo{
			listFn: func(context.Context) ([]Space, error) {
				return []Space{spaceWith(t, 1, "10.0.0.0/24")}, nil
			},
		},
		stubAssignmentRepo{
			findByAddrFn: func(_ context.Context, addr netip.Addr) (Assignment, error) {
				return Assignment{ID: "existing", Addr: addr}, nil
			},
			createFn: func(_ context.Context, a Assignment) (Assignment, error) {
				created = true
				return a, nil
			},
		},
		stubRangeRepo{},
	)

	_, err := svc.Assign(context.Background(), CreateAssignmentInput{Addr: "10.0.0.5"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if created {
		t.Fatal("duplicate address must not reach the repository")
	}
}

func TestAssignRejectsExplicitSpaceNotContainingAddress(t *testing.T) {
	svc := NewAllocationService(
		stubSpaceRepo{
			findFn: func(_ context.Context, id int64) (Space, error) {
				return spaceWith(t, id, "10.0.0.0/24"), nil
			},
		},
		stubAssignmentRepo{},
		stubRangeRepo{},
	)

	_, err := svc.Assign(context.Background(), CreateAssignmentInput{Addr: "10.1.0.5", SpaceID: 3})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAssignRejectsUnknownStatus(t *testing.T) {
	svc := NewAllocationService(stubSpaceRepo{}, stubAssignmentRepo{}, stubRangeRepo{})

	_, err := svc.Assign(context.Background(), CreateAssignmentInput{Addr: "10.0.0.5", Status: "retired"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAssignRejectsInvalidMAC(t *testing.T) {
	svc := NewAllocationService(stubSpaceRepo{}, stubAssignmentRepo{}, stubRangeRepo{})

	_, err := svc.Assign(context.Background(), CreateAssignmentInput{Addr: "10.0.0.5", MAC: "zz:zz"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestQueryPropagatesSpaceLookupFailure(t *testing.T) {
	storeErr := errors.New("connection reset")
	svc := NewAllocationService(
		stubSpaceRepo{
			findFn: func(context.Context, int64) (Space, error) {
				return Space{}, storeErr
			},
		},
		stubAssignmentRepo{
			findByAddrFn: func(_ context.Context, addr netip.Addr) (Assignment, error) {
				return Assignment{ID: "a-1", Addr: addr, SpaceID: 4}, nil
			},
		},
		stubRangeRepo{},
	)

	_, err := svc.Query(context.Background(), netip.MustParseAddr("10.0.0.5"))
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected the store error to propagate, got %v", err)
	}
}

func TestDeleteSpaceBlockedByAssignments(t *testing.T) {
	deleted := false
	svc := NewAllocationService(
		stubSpaceRepo{
			findFn: func(_ context.Context, id int64) (Space, error) {
				return spaceWith(t, id, "10.0.0.0/24"), nil
			},
			deleteFn: func(context.Context, int64) (bool, error) {
				deleted = true
				return true, nil
			},
		},
		stubAssignmentRepo{
			countFn: func(context.Context, int64) (int64, error) { return 3, nil },
		},
		stubRangeRepo{},
	)

	err := svc.DeleteSpace(context.Background(), 1, false)
	if !errors.Is(err, ErrHasAssignments) {
		t.Fatalf("expected ErrHasAssignments, got %v", err)
	}
	if deleted {
		t.Fatal("space must not be deleted while assignments exist")
	}
}

func TestDeleteSpaceCascadeRemovesAssignments(t *testing.T) {
	var cascaded int64
	svc := NewAllocationService(
		stubSpaceRepo{
			findFn: func(_ context.Context, id int64) (Space, error) {
				return spaceWith(t, id, "10.0.0.0/24"), nil
			},
			deleteFn: func(context.Context, int64) (bool, error) { return true, nil },
		},
		stubAssignmentRepo{
			countFn: func(context.Context, int64) (int64, error) { return 3, nil },
			deleteBySpaceFn: func(_ context.Context, spaceID int64) (int64, error) {
				cascaded = spaceID
				return 3, nil
			},
		},
		stubRangeRepo{},
	)

	if err := svc.DeleteSpace(context.Background(), 9, true); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cascaded != 9 {
		t.Errorf("cascade deleted assignments of space %d, want 9", cascaded)
	}
}

func TestAddReservedRangeRejectsReversedBounds(t *testing.T) {
	svc := NewAllocationService(
		stubSpaceRepo{
			findFn: func(_ context.Context, id int64) (Space, error) {
				return spaceWith(t, id, "192.168.1.0/24"), nil
			},
		},
		stubAssignmentRepo{},
		stubRangeRepo{},
	)

	_, err := svc.AddReservedRange(context.Background(), CreateRangeInput{
		SpaceID: 1, Start: "192.168.1.150", End: "192.168.1.100",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAddReservedRangeRejectsRangeOutsideSpace(t *testing.T) {
	svc := NewAllocationService(
		stubSpaceRepo{
			findFn: func(_ context.Context, id int64) (Space, error) {
				return spaceWith(t, id, "192.168.1.0/24"), nil
			},
		},
		stubAssignmentRepo{},
		stubRangeRepo{},
	)

	_, err := svc.AddReservedRange(context.Background(), CreateRangeInput{
		SpaceID: 1, Start: "192.168.1.100", End: "192.168.2.10",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
