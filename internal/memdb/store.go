// Package memdb is an in-memory implementation of the domain repositories.
// It backs unit tests and the CLI's file-backed mode; one mutex serializes
// every operation, so a snapshot never observes a half-written record.
package memdb

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ipamkit/ipamkit/internal/domain"
)

type Store struct {
	mu          sync.Mutex
	spaces      map[int64]domain.Space
	assignments map[domain.AssignmentID]domain.Assignment
	byAddr      map[netip.Addr]domain.AssignmentID
	ranges      map[int64]domain.ReservedRange
	nextSpaceID int64
	nextRangeID int64
}

func New() *Store {
	return &Store{
		spaces:      make(map[int64]domain.Space),
		assignments: make(map[domain.AssignmentID]domain.Assignment),
		byAddr:      make(map[netip.Addr]domain.AssignmentID),
		ranges:      make(map[int64]domain.ReservedRange),
	}
}

func (s *Store) Spaces() domain.SpaceRepository           { return spaceRepo{s} }
func (s *Store) Assignments() domain.AssignmentRepository { return assignmentRepo{s} }
func (s *Store) Ranges() domain.RangeRepository           { return rangeRepo{s} }

type spaceRepo struct{ *Store }

func (r spaceRepo) List(_ context.Context) ([]domain.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Space, 0, len(r.spaces))
	for _, space := range r.spaces {
		out = append(out, space)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r spaceRepo) FindByID(_ context.Context, id int64) (domain.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	space, ok := r.spaces[id]
	if !ok {
		return domain.Space{}, domain.ErrNotFound
	}
	return space, nil
}

func (r spaceRepo) Create(_ context.Context, space domain.Space) (domain.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.spaces {
		if space.CIDR.Overlaps(other.CIDR) {
			return domain.Space{}, fmt.Errorf("%w: %s overlaps %s", domain.ErrConflict, space.CIDR, other.CIDR)
		}
	}

	r.nextSpaceID++
	space.ID = r.nextSpaceID
	space.CreatedAt = time.Now().UTC()
	space.UpdatedAt = space.CreatedAt
	r.spaces[space.ID] = space
	return space, nil
}

func (r spaceRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spaces[id]; !ok {
		return false, nil
	}
	delete(r.spaces, id)
	return true, nil
}

type assignmentRepo struct{ *Store }

func (r assignmentRepo) List(_ context.Context) ([]domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedAssignmentsLocked(func(domain.Assignment) bool { return true }), nil
}

func (r assignmentRepo) ListBySpaceID(_ context.Context, spaceID int64) ([]domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedAssignmentsLocked(func(a domain.Assignment) bool { return a.SpaceID == spaceID }), nil
}

func (s *Store) sortedAssignmentsLocked(keep func(domain.Assignment) bool) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr.Less(out[j].Addr) })
	return out
}

func (r assignmentRepo) FindByID(_ context.Context, id domain.AssignmentID) (domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assignments[id]
	if !ok {
		return domain.Assignment{}, domain.ErrNotFound
	}
	return a, nil
}

func (r assignmentRepo) FindByAddr(_ context.Context, addr netip.Addr) (domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byAddr[addr]
	if !ok {
		return domain.Assignment{}, domain.ErrNotFound
	}
	return r.assignments[id], nil
}

func (r assignmentRepo) Create(_ context.Context, a domain.Assignment) (domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byAddr[a.Addr]; taken {
		return domain.Assignment{}, fmt.Errorf("%w: %s already assigned", domain.ErrConflict, a.Addr)
	}

	a.ID = domain.AssignmentID(uuid.NewString())
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	r.assignments[a.ID] = a
	r.byAddr[a.Addr] = a.ID
	return a, nil
}

func (r assignmentRepo) Update(_ context.Context, id domain.AssignmentID, input domain.UpdateAssignmentInput) (domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assignments[id]
	if !ok {
		return domain.Assignment{}, domain.ErrNotFound
	}

	a.Hostname = input.Hostname
	a.CNAME = input.CNAME
	a.MAC = input.MAC
	a.Description = input.Description
	a.Status = domain.Status(input.Status)
	a.Assigned = input.Assigned
	a.LastSeen = input.LastSeen
	a.DiscoverySource = input.DiscoverySource
	a.UpdatedAt = time.Now().UTC()
	r.assignments[id] = a
	return a, nil
}

func (r assignmentRepo) Delete(_ context.Context, id domain.AssignmentID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assignments[id]
	if !ok {
		return false, nil
	}
	delete(r.assignments, id)
	delete(r.byAddr, a.Addr)
	return true, nil
}

func (r assignmentRepo) DeleteBySpaceID(_ context.Context, spaceID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.assignments {
		if a.SpaceID == spaceID {
			delete(r.assignments, id)
			delete(r.byAddr, a.Addr)
			n++
		}
	}
	return n, nil
}

func (r assignmentRepo) CountBySpaceID(_ context.Context, spaceID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, a := range r.assignments {
		if a.SpaceID == spaceID {
			n++
		}
	}
	return n, nil
}

type rangeRepo struct{ *Store }

func (r rangeRepo) List(_ context.Context) ([]domain.ReservedRange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedRangesLocked(0), nil
}

func (r rangeRepo) ListBySpaceID(_ context.Context, spaceID int64) ([]domain.ReservedRange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedRangesLocked(spaceID), nil
}

func (s *Store) sortedRangesLocked(spaceID int64) []domain.ReservedRange {
	out := make([]domain.ReservedRange, 0, len(s.ranges))
	for _, rr := range s.ranges {
		if spaceID == 0 || rr.SpaceID == spaceID {
			out = append(out, rr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r rangeRepo) Create(_ context.Context, rr domain.ReservedRange) (domain.ReservedRange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextRangeID++
	rr.ID = r.nextRangeID
	rr.CreatedAt = time.Now().UTC()
	r.ranges[rr.ID] = rr
	return rr, nil
}

func (r rangeRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ranges[id]; !ok {
		return false, nil
	}
	delete(r.ranges, id)
	return true, nil
}

func (r rangeRepo) DeleteBySpaceID(_ context.Context, spaceID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rr := range r.ranges {
		if rr.SpaceID == spaceID {
			delete(r.ranges, id)
			n++
		}
	}
	return n, nil
}

// Dump copies the whole store under one lock hold.
func (s *Store) Dump(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.Snapshot{
		Spaces:      s.sortedSpacesLocked(),
		Assignments: s.sortedAssignmentsLocked(func(domain.Assignment) bool { return true }),
		Ranges:      s.sortedRangesLocked(0),
	}
	return snap, nil
}

func (s *Store) sortedSpacesLocked() []domain.Space {
	out := make([]domain.Space, 0, len(s.spaces))
	for _, space := range s.spaces {
		out = append(out, space)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load replaces the store contents with snap. The snapshot is validated
// into fresh maps first; on any error the previous contents stay intact.
func (s *Store) Load(_ context.Context, snap domain.Snapshot) error {
	spaces := make(map[int64]domain.Space, len(snap.Spaces))
	assignments := make(map[domain.AssignmentID]domain.Assignment, len(snap.Assignments))
	byAddr := make(map[netip.Addr]domain.AssignmentID, len(snap.Assignments))
	ranges := make(map[int64]domain.ReservedRange, len(snap.Ranges))
	var nextSpaceID, nextRangeID int64

	for _, space := range snap.Spaces {
		if !space.CIDR.IsValid() {
			return fmt.Errorf("%w: space %d has invalid cidr", domain.ErrInvalidInput, space.ID)
		}
		spaces[space.ID] = space
		if space.ID > nextSpaceID {
			nextSpaceID = space.ID
		}
	}
	for _, a := range snap.Assignments {
		if _, taken := byAddr[a.Addr]; taken {
			return fmt.Errorf("%w: duplicate address %s in snapshot", domain.ErrConflict, a.Addr)
		}
		if a.ID == "" {
			a.ID = domain.AssignmentID(uuid.NewString())
		}
		assignments[a.ID] = a
		byAddr[a.Addr] = a.ID
	}
	for _, rr := range snap.Ranges {
		ranges[rr.ID] = rr
		if rr.ID > nextRangeID {
			nextRangeID = rr.ID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces = spaces
	s.assignments = assignments
	s.byAddr = byAddr
	s.ranges = ranges
	s.nextSpaceID = nextSpaceID
	s.nextRangeID = nextRangeID
	return nil
}
