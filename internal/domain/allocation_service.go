package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

const maxVLANID = 4094

type allocationService struct {
	spaces      SpaceRepository
	assignments AssignmentRepository
	ranges      RangeRepository
}

func NewAllocationService(spaces SpaceRepository, assignments AssignmentRepository, ranges RangeRepository) AllocationService {
	return &allocationService{
		spaces:      spaces,
		assignments: assignments,
		ranges:      ranges,
	}
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return StatusActive, nil
	case StatusActive, StatusInactive, StatusReserved:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

func (s *allocationService) CreateSpace(ctx context.Context, input CreateSpaceInput) (Space, error) {
	prefix, err := ParseIPv4Prefix(input.CIDR)
	if err != nil {
		return Space{}, err
	}
	if input.VLANID < 0 || input.VLANID > maxVLANID {
		return Space{}, fmt.Errorf("%w: vlan id %d out of range", ErrInvalidInput, input.VLANID)
	}

	// Overlap is rejected up front so owning-space lookups never need
	// precedence rules.
	existing, err := s.spaces.List(ctx)
	if err != nil {
		return Space{}, err
	}
	for _, other := range existing {
		if prefix.Overlaps(other.CIDR) {
			return Space{}, fmt.Errorf("%w: %s overlaps existing space %s", ErrConflict, prefix, other.CIDR)
		}
	}

	return s.spaces.Create(ctx, Space{
		CIDR:        prefix,
		Name:        input.Name,
		Domain:      input.Domain,
		VLANID:      input.VLANID,
		Location:    input.Location,
		Description: input.Description,
	})
}

func (s *allocationService) ListSpaces(ctx context.Context) ([]Space, error) {
	return s.spaces.List(ctx)
}

func (s *allocationService) GetSpace(ctx context.Context, id int64) (Space, error) {
	return s.spaces.FindByID(ctx, id)
}

func (s *allocationService) DeleteSpace(ctx context.Context, id int64, cascade bool) error {
	if _, err := s.spaces.FindByID(ctx, id); err != nil {
		return err
	}

	count, err := s.assignments.CountBySpaceID(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 && !cascade {
		return fmt.Errorf("%w: %d assignments in space %d", ErrHasAssignments, count, id)
	}
	if cascade {
		if _, err := s.assignments.DeleteBySpaceID(ctx, id); err != nil {
			return err
		}
	}
	if _, err := s.ranges.DeleteBySpaceID(ctx, id); err != nil {
		return err
	}

	deleted, err := s.spaces.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *allocationService) FindOwningSpace(ctx context.Context, addr netip.Addr) (Space, error) {
	spaces, err := s.spaces.List(ctx)
	if err != nil {
		return Space{}, err
	}
	for _, space := range spaces {
		if space.Contains(addr) {
			return space, nil
		}
	}
	return Space{}, ErrNotFound
}

func (s *allocationService) Assign(ctx context.Context, input CreateAssignmentInput) (Assignment, error) {
	addr, err := ParseIPv4(input.Addr)
	if err != nil {
		return Assignment{}, err
	}

	status, err := ParseStatus(input.Status)
	if err != nil {
		return Assignment{}, err
	}

	if input.MAC != "" {
		if _, err := net.ParseMAC(input.MAC); err != nil {
			return Assignment{}, fmt.Errorf("%w: invalid mac %q", ErrInvalidInput, input.MAC)
		}
	}

	spaceID := input.SpaceID
	if spaceID != 0 {
		space, err := s.spaces.FindByID(ctx, spaceID)
		if err != nil {
			return Assignment{}, err
		}
		if !space.Contains(addr) {
			return Assignment{}, fmt.Errorf("%w: %s not in space %s", ErrInvalidInput, addr, space.CIDR)
		}
	} else {
		space, err := s.FindOwningSpace(ctx, addr)
		switch {
		case err == nil:
			spaceID = space.ID
		case errors.Is(err, ErrNotFound):
			if !input.AllowUnmanaged {
				return Assignment{}, fmt.Errorf("%w: %s", ErrOutOfRange, addr)
			}
		default:
			return Assignment{}, err
		}
	}

	if _, err := s.assignments.FindByAddr(ctx, addr); err == nil {
		return Assignment{}, fmt.Errorf("%w: %s already assigned", ErrConflict, addr)
	} else if !errors.Is(err, ErrNotFound) {
		return Assignment{}, err
	}

	// The store's unique constraint on the address backs this up when two
	// callers race past the lookup above.
	return s.assignments.Create(ctx, Assignment{
		Addr:            addr,
		Hostname:        input.Hostname,
		CNAME:           input.CNAME,
		MAC:             input.MAC,
		Description:     input.Description,
		Status:          status,
		SpaceID:         spaceID,
		Assigned:        input.Assigned,
		LastSeen:        input.LastSeen,
		DiscoverySource: input.DiscoverySource,
	})
}

func (s *allocationService) GetAssignment(ctx context.Context, id AssignmentID) (Assignment, error) {
	return s.assignments.FindByID(ctx, id)
}

func (s *allocationService) ListAssignments(ctx context.Context, spaceID int64) ([]Assignment, error) {
	if spaceID == 0 {
		return s.assignments.List(ctx)
	}
	if _, err := s.spaces.FindByID(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.assignments.ListBySpaceID(ctx, spaceID)
}

func (s *allocationService) UpdateAssignment(ctx context.Context, id AssignmentID, input UpdateAssignmentInput) (Assignment, error) {
	status, err := ParseStatus(input.Status)
	if err != nil {
		return Assignment{}, err
	}
	input.Status = string(status)
	if input.MAC != "" {
		if _, err := net.ParseMAC(input.MAC); err != nil {
			return Assignment{}, fmt.Errorf("%w: invalid mac %q", ErrInvalidInput, input.MAC)
		}
	}
	return s.assignments.Update(ctx, id, input)
}

func (s *allocationService) DeleteAssignment(ctx context.Context, id AssignmentID) error {
	deleted, err := s.assignments.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *allocationService) AddReservedRange(ctx context.Context, input CreateRangeInput) (ReservedRange, error) {
	space, err := s.spaces.FindByID(ctx, input.SpaceID)
	if err != nil {
		return ReservedRange{}, err
	}

	start, err := ParseIPv4(input.Start)
	if err != nil {
		return ReservedRange{}, err
	}
	end, err := ParseIPv4(input.End)
	if err != nil {
		return ReservedRange{}, err
	}
	if end.Less(start) {
		return ReservedRange{}, fmt.Errorf("%w: range start %s after end %s", ErrInvalidInput, start, end)
	}
	if !space.Contains(start) || !space.Contains(end) {
		return ReservedRange{}, fmt.Errorf("%w: range %s-%s not inside %s", ErrInvalidInput, start, end, space.CIDR)
	}

	return s.ranges.Create(ctx, ReservedRange{
		SpaceID:     space.ID,
		Start:       start,
		End:         end,
		Active:      input.Active,
		Description: input.Description,
	})
}

func (s *allocationService) ListReservedRanges(ctx context.Context, spaceID int64) ([]ReservedRange, error) {
	if _, err := s.spaces.FindByID(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.ranges.ListBySpaceID(ctx, spaceID)
}

func (s *allocationService) NextAvailable(ctx context.Context, spaceID int64) (netip.Addr, error) {
	free, err := s.scanAvailable(ctx, spaceID, 1)
	if err != nil {
		return netip.Addr{}, err
	}
	if len(free) == 0 {
		return netip.Addr{}, fmt.Errorf("%w: space %d", ErrExhausted, spaceID)
	}
	return free[0], nil
}

func (s *allocationService) AvailableList(ctx context.Context, spaceID int64, limit int) ([]netip.Addr, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidInput)
	}
	return s.scanAvailable(ctx, spaceID, limit)
}

// scanAvailable walks the usable range in ascending order, skipping
// assigned addresses and addresses inside active reserved ranges. Each
// call is a fresh scan; limit 0 means no limit.
func (s *allocationService) scanAvailable(ctx context.Context, spaceID int64, limit int) ([]netip.Addr, error) {
	space, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return nil, err
	}
	taken := make(map[netip.Addr]struct{}, len(assignments))
	for _, a := range assignments {
		if space.Contains(a.Addr) {
			taken[a.Addr] = struct{}{}
		}
	}

	ranges, err := s.ranges.ListBySpaceID(ctx, space.ID)
	if err != nil {
		return nil, err
	}
	active := ranges[:0:0]
	for _, r := range ranges {
		if r.Active {
			active = append(active, r)
		}
	}

	first, last, ok := space.UsableRange()
	if !ok {
		return nil, nil
	}

	var free []netip.Addr
	for addr := first; addr.IsValid(); addr = addr.Next() {
		if _, used := taken[addr]; !used && !inActiveRange(active, addr) {
			free = append(free, addr)
			if limit > 0 && len(free) == limit {
				break
			}
		}
		if addr == last {
			break
		}
	}
	return free, nil
}

func inActiveRange(ranges []ReservedRange, addr netip.Addr) bool {
	for _, r := range ranges {
		if r.contains(addr) {
			return true
		}
	}
	return false
}

func (s *allocationService) Query(ctx context.Context, addr netip.Addr) (QueryResult, error) {
	result := QueryResult{Addr: addr}

	assignment, err := s.assignments.FindByAddr(ctx, addr)
	switch {
	case err == nil:
		result.Class = ClassAssigned
		result.Assignment = &assignment
		if assignment.SpaceID != 0 {
			space, err := s.spaces.FindByID(ctx, assignment.SpaceID)
			switch {
			case err == nil:
				result.Space = &space
			case !errors.Is(err, ErrNotFound):
				return QueryResult{}, err
			}
		}
		return result, nil
	case !errors.Is(err, ErrNotFound):
		return QueryResult{}, err
	}

	space, err := s.FindOwningSpace(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		result.Class = ClassUnmanaged
		return result, nil
	}
	if err != nil {
		return QueryResult{}, err
	}
	result.Space = &space

	ranges, err := s.ranges.ListBySpaceID(ctx, space.ID)
	if err != nil {
		return QueryResult{}, err
	}
	for _, r := range ranges {
		if r.Active && r.contains(addr) {
			result.Class = ClassReserved
			return result, nil
		}
	}

	result.Class = ClassAvailable
	return result, nil
}

func (s *allocationService) Utilization(ctx context.Context, spaceID int64) (Utilization, error) {
	space, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return Utilization{}, err
	}

	// Used counts by containment, the same view the availability scan
	// takes, so an unmanaged assignment inside the block is not free yet
	// uncounted.
	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return Utilization{}, err
	}
	var used uint64
	for _, a := range assignments {
		if space.Contains(a.Addr) {
			used++
		}
	}

	u := Utilization{Total: space.TotalUsableCount(), Used: used}
	if u.Used < u.Total {
		u.Available = u.Total - u.Used
	}
	return u, nil
}

func (s *allocationService) ImportSpaces(ctx context.Context, rows []SpaceImportRow) (ImportResult, error) {
	var result ImportResult
	for _, row := range rows {
		if _, err := s.CreateSpace(ctx, row.Input); err != nil {
			result.Failures = append(result.Failures, ImportFailure{Line: row.Line, Err: err.Error()})
			continue
		}
		result.Committed++
	}
	return result, nil
}

func (s *allocationService) ImportAssignments(ctx context.Context, rows []AssignmentImportRow) (ImportResult, error) {
	var result ImportResult
	for _, row := range rows {
		if _, err := s.Assign(ctx, row.Input); err != nil {
			result.Failures = append(result.Failures, ImportFailure{Line: row.Line, Err: err.Error()})
			continue
		}
		result.Committed++
	}
	return result, nil
}
