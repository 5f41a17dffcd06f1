package domain

import (
	"context"
	"log/slog"
	"net/netip"
)

type loggingAllocationService struct {
	logger *slog.Logger
	next   AllocationService
}

func NewLoggingAllocationService(logger *slog.Logger, next AllocationService) AllocationService {
	if logger == nil || next == nil {
		return next
	}

	return &loggingAllocationService{
		logger: logger,
		next:   next,
	}
}

func (s *loggingAllocationService) CreateSpace(ctx context.Context, input CreateSpaceInput) (Space, error) {
	space, err := s.next.CreateSpace(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "create space failed", "cidr", input.CIDR, "err", err.Error())
		return Space{}, err
	}

	s.logger.InfoContext(ctx, "space created", "id", space.ID, "cidr", space.CIDR.String())
	return space, nil
}

func (s *loggingAllocationService) ListSpaces(ctx context.Context) ([]Space, error) {
	spaces, err := s.next.ListSpaces(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list spaces failed", "err", err.Error())
	}
	return spaces, err
}

func (s *loggingAllocationService) GetSpace(ctx context.Context, id int64) (Space, error) {
	space, err := s.next.GetSpace(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "get space failed", "id", id, "err", err.Error())
	}
	return space, err
}

func (s *loggingAllocationService) DeleteSpace(ctx context.Context, id int64, cascade bool) error {
	err := s.next.DeleteSpace(ctx, id, cascade)
	if err != nil {
		s.logger.ErrorContext(ctx, "delete space failed", "id", id, "cascade", cascade, "err", err.Error())
		return err
	}

	s.logger.InfoContext(ctx, "space deleted", "id", id, "cascade", cascade)
	return nil
}

func (s *loggingAllocationService) FindOwningSpace(ctx context.Context, addr netip.Addr) (Space, error) {
	return s.next.FindOwningSpace(ctx, addr)
}

func (s *loggingAllocationService) Assign(ctx context.Context, input CreateAssignmentInput) (Assignment, error) {
	assignment, err := s.next.Assign(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "assign failed", "addr", input.Addr, "err", err.Error())
		return Assignment{}, err
	}

	s.logger.DebugContext(ctx, "address assigned", "addr", assignment.Addr.String(), "space_id", assignment.SpaceID, "id", string(assignment.ID))
	return assignment, nil
}

func (s *loggingAllocationService) GetAssignment(ctx context.Context, id AssignmentID) (Assignment, error) {
	assignment, err := s.next.GetAssignment(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "get assignment failed", "id", string(id), "err", err.Error())
	}
	return assignment, err
}

func (s *loggingAllocationService) ListAssignments(ctx context.Context, spaceID int64) ([]Assignment, error) {
	assignments, err := s.next.ListAssignments(ctx, spaceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list assignments failed", "space_id", spaceID, "err", err.Error())
	}
	return assignments, err
}

func (s *loggingAllocationService) UpdateAssignment(ctx context.Context, id AssignmentID, input UpdateAssignmentInput) (Assignment, error) {
	assignment, err := s.next.UpdateAssignment(ctx, id, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "update assignment failed", "id", string(id), "err", err.Error())
	}
	return assignment, err
}

func (s *loggingAllocationService) DeleteAssignment(ctx context.Context, id AssignmentID) error {
	err := s.next.DeleteAssignment(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "delete assignment failed", "id", string(id), "err", err.Error())
		return err
	}

	s.logger.DebugContext(ctx, "assignment deleted", "id", string(id))
	return nil
}

func (s *loggingAllocationService) AddReservedRange(ctx context.Context, input CreateRangeInput) (ReservedRange, error) {
	r, err := s.next.AddReservedRange(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "add reserved range failed", "space_id", input.SpaceID, "start", input.Start, "end", input.End, "err", err.Error())
		return ReservedRange{}, err
	}

	s.logger.InfoContext(ctx, "reserved range added", "id", r.ID, "space_id", r.SpaceID, "start", r.Start.String(), "end", r.End.String())
	return r, nil
}

func (s *loggingAllocationService) ListReservedRanges(ctx context.Context, spaceID int64) ([]ReservedRange, error) {
	ranges, err := s.next.ListReservedRanges(ctx, spaceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "list reserved ranges failed", "space_id", spaceID, "err", err.Error())
	}
	return ranges, err
}

func (s *loggingAllocationService) NextAvailable(ctx context.Context, spaceID int64) (netip.Addr, error) {
	addr, err := s.next.NextAvailable(ctx, spaceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "next available failed", "space_id", spaceID, "err", err.Error())
	}
	return addr, err
}

func (s *loggingAllocationService) AvailableList(ctx context.Context, spaceID int64, limit int) ([]netip.Addr, error) {
	addrs, err := s.next.AvailableList(ctx, spaceID, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "available list failed", "space_id", spaceID, "limit", limit, "err", err.Error())
	}
	return addrs, err
}

func (s *loggingAllocationService) Query(ctx context.Context, addr netip.Addr) (QueryResult, error) {
	result, err := s.next.Query(ctx, addr)
	if err != nil {
		s.logger.ErrorContext(ctx, "query failed", "addr", addr.String(), "err", err.Error())
	}
	return result, err
}

func (s *loggingAllocationService) Utilization(ctx context.Context, spaceID int64) (Utilization, error) {
	u, err := s.next.Utilization(ctx, spaceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "utilization failed", "space_id", spaceID, "err", err.Error())
	}
	return u, err
}

func (s *loggingAllocationService) ImportSpaces(ctx context.Context, rows []SpaceImportRow) (ImportResult, error) {
	result, err := s.next.ImportSpaces(ctx, rows)
	if err != nil {
		s.logger.ErrorContext(ctx, "import spaces failed", "rows", len(rows), "err", err.Error())
		return result, err
	}

	s.logger.InfoContext(ctx, "spaces imported", "committed", result.Committed, "failed", len(result.Failures))
	return result, nil
}

func (s *loggingAllocationService) ImportAssignments(ctx context.Context, rows []AssignmentImportRow) (ImportResult, error) {
	result, err := s.next.ImportAssignments(ctx, rows)
	if err != nil {
		s.logger.ErrorContext(ctx, "import assignments failed", "rows", len(rows), "err", err.Error())
		return result, err
	}

	s.logger.InfoContext(ctx, "assignments imported", "committed", result.Committed, "failed", len(result.Failures))
	return result, nil
}
