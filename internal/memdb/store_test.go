package memdb

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/ipamkit/ipamkit/internal/domain"
)

func newService(store *Store) domain.AllocationService {
	return domain.NewAllocationService(store.Spaces(), store.Assignments(), store.Ranges())
}

func createSpace(t *testing.T, svc domain.AllocationService, cidr string) domain.Space {
	t.Helper()
	space, err := svc.CreateSpace(context.Background(), domain.CreateSpaceInput{CIDR: cidr})
	if err != nil {
		t.Fatalf("create space %s: %v", cidr, err)
	}
	return space
}

func assign(t *testing.T, svc domain.AllocationService, addr string) domain.Assignment {
	t.Helper()
	a, err := svc.Assign(context.Background(), domain.CreateAssignmentInput{Addr: addr})
	if err != nil {
		t.Fatalf("assign %s: %v", addr, err)
	}
	return a
}

func TestNextAvailableReturnsLowestFreeAddress(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "192.168.1.0/24")
	assign(t, svc, "192.168.1.10")

	next, err := svc.NextAvailable(ctx, space.ID)
	if err != nil {
		t.Fatalf("next available: %v", err)
	}
	if next.String() != "192.168.1.1" {
		t.Errorf("next = %s, want 192.168.1.1 (lowest free, not after the assignment)", next)
	}

	// No writes in between, so the scan must land on the same address.
	again, err := svc.NextAvailable(ctx, space.ID)
	if err != nil {
		t.Fatalf("next available again: %v", err)
	}
	if next != again {
		t.Errorf("next available not idempotent: %s then %s", next, again)
	}
}

func TestNextAvailableSkipsAssignedAndReserved(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "192.168.1.0/24")
	assign(t, svc, "192.168.1.1")
	assign(t, svc, "192.168.1.2")
	if _, err := svc.AddReservedRange(ctx, domain.CreateRangeInput{
		SpaceID: space.ID, Start: "192.168.1.3", End: "192.168.1.5", Active: true,
	}); err != nil {
		t.Fatalf("add range: %v", err)
	}

	next, err := svc.NextAvailable(ctx, space.ID)
	if err != nil {
		t.Fatalf("next available: %v", err)
	}
	if next.String() != "192.168.1.6" {
		t.Errorf("next = %s, want 192.168.1.6", next)
	}
}

func TestNextAvailableExhaustedSpace(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "10.0.0.0/30")
	assign(t, svc, "10.0.0.1")
	assign(t, svc, "10.0.0.2")

	_, err := svc.NextAvailable(ctx, space.ID)
	if !errors.Is(err, domain.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestAvailableListExcludesActiveReservedRange(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "192.168.1.0/24")
	if _, err := svc.AddReservedRange(ctx, domain.CreateRangeInput{
		SpaceID: space.ID, Start: "192.168.1.100", End: "192.168.1.150", Active: true,
	}); err != nil {
		t.Fatalf("add range: %v", err)
	}

	addrs, err := svc.AvailableList(ctx, space.ID, 0)
	if err != nil {
		t.Fatalf("available list: %v", err)
	}
	if len(addrs) != 254-51 {
		t.Errorf("available = %d addresses, want %d", len(addrs), 254-51)
	}

	start := netip.MustParseAddr("192.168.1.100")
	end := netip.MustParseAddr("192.168.1.150")
	for _, addr := range addrs {
		if !addr.Less(start) && !end.Less(addr) {
			t.Errorf("available list contains reserved address %s", addr)
		}
	}
}

func TestInactiveReservedRangeDoesNotExclude(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "192.168.1.0/24")
	if _, err := svc.AddReservedRange(ctx, domain.CreateRangeInput{
		SpaceID: space.ID, Start: "192.168.1.100", End: "192.168.1.150", Active: false,
	}); err != nil {
		t.Fatalf("add range: %v", err)
	}

	addrs, err := svc.AvailableList(ctx, space.ID, 0)
	if err != nil {
		t.Fatalf("available list: %v", err)
	}
	if len(addrs) != 254 {
		t.Errorf("available = %d addresses, want 254: inactive ranges are inert", len(addrs))
	}
}

func TestAvailableListHonorsLimit(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "192.168.1.0/24")

	addrs, err := svc.AvailableList(ctx, space.ID, 5)
	if err != nil {
		t.Fatalf("available list: %v", err)
	}
	if len(addrs) != 5 {
		t.Fatalf("available = %d addresses, want 5", len(addrs))
	}
	for i, addr := range addrs {
		if !addr.Is4() {
			t.Fatalf("unexpected address %s", addr)
		}
		if i > 0 && !addrs[i-1].Less(addr) {
			t.Errorf("addresses not ascending: %s before %s", addrs[i-1], addr)
		}
	}
}

func TestAssignTwiceLeavesSingleRecord(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "192.168.1.0/24")
	assign(t, svc, "192.168.1.10")

	_, err := svc.Assign(ctx, domain.CreateAssignmentInput{Addr: "192.168.1.10"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	assignments, err := svc.ListAssignments(ctx, space.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("store has %d assignments for the address, want exactly 1", len(assignments))
	}
}

func TestQueryClassificationsAreExclusive(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "10.0.0.0/24")
	assign(t, svc, "10.0.0.5")
	assign(t, svc, "10.0.0.105")
	if _, err := svc.AddReservedRange(ctx, domain.CreateRangeInput{
		SpaceID: space.ID, Start: "10.0.0.100", End: "10.0.0.110", Active: true,
	}); err != nil {
		t.Fatalf("add range: %v", err)
	}

	cases := []struct {
		addr string
		want domain.Classification
	}{
		{"10.0.0.5", domain.ClassAssigned},
		{"10.0.0.100", domain.ClassReserved},
		{"10.0.0.105", domain.ClassAssigned}, // assignment wins over the range around it
		{"10.0.0.20", domain.ClassAvailable},
		{"203.0.113.1", domain.ClassUnmanaged},
	}
	for _, tc := range cases {
		result, err := svc.Query(ctx, netip.MustParseAddr(tc.addr))
		if err != nil {
			t.Fatalf("query %s: %v", tc.addr, err)
		}
		if result.Class != tc.want {
			t.Errorf("query %s = %s, want %s", tc.addr, result.Class, tc.want)
		}
		if result.Class == domain.ClassAssigned && result.Assignment == nil {
			t.Errorf("query %s: assigned class without assignment record", tc.addr)
		}
		if result.Class == domain.ClassUnmanaged && result.Space != nil {
			t.Errorf("query %s: unmanaged class with a space", tc.addr)
		}
	}
}

func TestDeleteSpaceWithAssignments(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "192.168.1.0/24")
	a := assign(t, svc, "192.168.1.10")

	err := svc.DeleteSpace(ctx, space.ID, false)
	if !errors.Is(err, domain.ErrHasAssignments) {
		t.Fatalf("expected ErrHasAssignments, got %v", err)
	}

	if err := svc.DeleteSpace(ctx, space.ID, true); err != nil {
		t.Fatalf("cascade delete: %v", err)
	}

	if _, err := svc.GetSpace(ctx, space.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("space still present after cascade delete: %v", err)
	}
	if _, err := svc.GetAssignment(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("assignment still present after cascade delete: %v", err)
	}
}

func TestUtilizationCounts(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	space := createSpace(t, svc, "192.168.1.0/24")
	assign(t, svc, "192.168.1.10")
	assign(t, svc, "192.168.1.11")

	util, err := svc.Utilization(ctx, space.ID)
	if err != nil {
		t.Fatalf("utilization: %v", err)
	}
	if util.Total != 254 || util.Used != 2 || util.Available != 252 {
		t.Errorf("utilization = %+v, want total 254 used 2 available 252", util)
	}
}

func TestUtilizationCountsContainedUnmanagedAssignments(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())

	// Assigned before any space existed, so it carries no space id.
	if _, err := svc.Assign(ctx, domain.CreateAssignmentInput{
		Addr: "192.168.1.10", AllowUnmanaged: true,
	}); err != nil {
		t.Fatalf("assign unmanaged: %v", err)
	}
	space := createSpace(t, svc, "192.168.1.0/24")

	util, err := svc.Utilization(ctx, space.ID)
	if err != nil {
		t.Fatalf("utilization: %v", err)
	}
	if util.Used != 1 || util.Available != 253 {
		t.Errorf("utilization = %+v, want used 1 available 253", util)
	}

	addrs, err := svc.AvailableList(ctx, space.ID, 0)
	if err != nil {
		t.Fatalf("available list: %v", err)
	}
	if len(addrs) != 253 {
		t.Errorf("available = %d addresses, want 253 (views must agree)", len(addrs))
	}
}

func TestImportAssignmentsPartialSuccess(t *testing.T) {
	ctx := context.Background()
	svc := newService(New())
	createSpace(t, svc, "192.168.1.0/24")

	rows := []domain.AssignmentImportRow{
		{Line: 2, Input: domain.CreateAssignmentInput{Addr: "192.168.1.10"}},
		{Line: 3, Input: domain.CreateAssignmentInput{Addr: "999.1.1.1"}},
		{Line: 4, Input: domain.CreateAssignmentInput{Addr: "192.168.1.11"}},
	}
	result, err := svc.ImportAssignments(ctx, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.Committed != 2 {
		t.Errorf("committed = %d, want 2", result.Committed)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(result.Failures))
	}
	if result.Failures[0].Line != 3 {
		t.Errorf("failure line = %d, want 3", result.Failures[0].Line)
	}

	// The good rows stay committed.
	for _, addr := range []string{"192.168.1.10", "192.168.1.11"} {
		result, err := svc.Query(ctx, netip.MustParseAddr(addr))
		if err != nil {
			t.Fatalf("query %s: %v", addr, err)
		}
		if result.Class != domain.ClassAssigned {
			t.Errorf("query %s = %s, want assigned", addr, result.Class)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()
	svc := newService(store)
	space := createSpace(t, svc, "10.0.0.0/24")
	assign(t, svc, "10.0.0.5")
	if _, err := svc.AddReservedRange(ctx, domain.CreateRangeInput{
		SpaceID: space.ID, Start: "10.0.0.100", End: "10.0.0.110", Active: true,
	}); err != nil {
		t.Fatalf("add range: %v", err)
	}

	snap, err := store.Dump(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}

	restored := New()
	if err := restored.Load(ctx, snap); err != nil {
		t.Fatalf("load: %v", err)
	}

	svc2 := newService(restored)
	result, err := svc2.Query(ctx, netip.MustParseAddr("10.0.0.5"))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if result.Class != domain.ClassAssigned {
		t.Errorf("restored query = %s, want assigned", result.Class)
	}
	result, err = svc2.Query(ctx, netip.MustParseAddr("10.0.0.100"))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if result.Class != domain.ClassReserved {
		t.Errorf("restored query = %s, want reserved", result.Class)
	}

	// Ids keep counting up from the restored state.
	second := createSpace(t, svc2, "10.1.0.0/24")
	if second.ID <= space.ID {
		t.Errorf("new space id %d not after restored id %d", second.ID, space.ID)
	}
}

func TestLoadRejectsDuplicateAddresses(t *testing.T) {
	store := New()
	snap := domain.Snapshot{
		Assignments: []domain.Assignment{
			{ID: "a", Addr: netip.MustParseAddr("10.0.0.1")},
			{ID: "b", Addr: netip.MustParseAddr("10.0.0.1")},
		},
	}
	if err := store.Load(context.Background(), snap); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFailedLoadLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := New()
	svc := newService(store)
	space := createSpace(t, svc, "10.0.0.0/24")
	assign(t, svc, "10.0.0.5")

	bad := domain.Snapshot{
		Assignments: []domain.Assignment{
			{ID: "a", Addr: netip.MustParseAddr("10.1.0.1")},
			{ID: "b", Addr: netip.MustParseAddr("10.1.0.1")},
		},
	}
	if err := store.Load(ctx, bad); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	result, err := svc.Query(ctx, netip.MustParseAddr("10.0.0.5"))
	if err != nil {
		t.Fatalf("query after failed load: %v", err)
	}
	if result.Class != domain.ClassAssigned {
		t.Errorf("query after failed load = %s, want assigned (prior contents kept)", result.Class)
	}
	if _, err := svc.GetSpace(ctx, space.ID); err != nil {
		t.Errorf("space lost after failed load: %v", err)
	}
}
