package db

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipamkit/ipamkit/internal/domain"
)

const assignmentColumns = "id, addr, hostname, cname, mac, description, status, space_id, assigned, last_seen, discovery_source, created_at, updated_at"

type AssignmentRepository struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

func (r *AssignmentRepository) List(ctx context.Context) ([]domain.Assignment, error) {
	return r.query(ctx, "SELECT "+assignmentColumns+" FROM assignments ORDER BY addr")
}

func (r *AssignmentRepository) ListBySpaceID(ctx context.Context, spaceID int64) ([]domain.Assignment, error) {
	return r.query(ctx, "SELECT "+assignmentColumns+" FROM assignments WHERE space_id = $1 ORDER BY addr", spaceID)
}

func (r *AssignmentRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Assignment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id domain.AssignmentID) (domain.Assignment, error) {
	parsedID, err := parseAssignmentID(id)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("%w: invalid assignment id", domain.ErrInvalidInput)
	}

	row := r.pool.QueryRow(ctx, "SELECT "+assignmentColumns+" FROM assignments WHERE id = $1", parsedID)
	a, err := scanAssignment(row)
	if err != nil {
		if isNoRows(err) {
			return domain.Assignment{}, domain.ErrNotFound
		}
		return domain.Assignment{}, err
	}
	return a, nil
}

func (r *AssignmentRepository) FindByAddr(ctx context.Context, addr netip.Addr) (domain.Assignment, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+assignmentColumns+" FROM assignments WHERE addr = $1", addr)
	a, err := scanAssignment(row)
	if err != nil {
		if isNoRows(err) {
			return domain.Assignment{}, domain.ErrNotFound
		}
		return domain.Assignment{}, err
	}
	return a, nil
}

func (r *AssignmentRepository) Create(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO assignments (addr, hostname, cname, mac, description, status, space_id, assigned, last_seen, discovery_source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+assignmentColumns,
		a.Addr, a.Hostname, a.CNAME, a.MAC, a.Description, string(a.Status),
		spaceIDParam(a.SpaceID), a.Assigned, lastSeenParam(a.LastSeen), a.DiscoverySource,
	)
	created, err := scanAssignment(row)
	if err != nil {
		if isConstraintViolation(err, "unique_addr") {
			return domain.Assignment{}, fmt.Errorf("%w: %s already assigned", domain.ErrConflict, a.Addr)
		}
		return domain.Assignment{}, err
	}
	return created, nil
}

func (r *AssignmentRepository) Update(ctx context.Context, id domain.AssignmentID, input domain.UpdateAssignmentInput) (domain.Assignment, error) {
	parsedID, err := parseAssignmentID(id)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("%w: invalid assignment id", domain.ErrInvalidInput)
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE assignments
		 SET hostname = $1, cname = $2, mac = $3, description = $4, status = $5,
		     assigned = $6, last_seen = $7, discovery_source = $8, updated_at = now()
		 WHERE id = $9
		 RETURNING `+assignmentColumns,
		input.Hostname, input.CNAME, input.MAC, input.Description, input.Status,
		input.Assigned, lastSeenParam(input.LastSeen), input.DiscoverySource, parsedID,
	)
	a, err := scanAssignment(row)
	if err != nil {
		if isNoRows(err) {
			return domain.Assignment{}, domain.ErrNotFound
		}
		return domain.Assignment{}, err
	}
	return a, nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, id domain.AssignmentID) (bool, error) {
	parsedID, err := parseAssignmentID(id)
	if err != nil {
		return false, fmt.Errorf("%w: invalid assignment id", domain.ErrInvalidInput)
	}

	tag, err := r.pool.Exec(ctx, "DELETE FROM assignments WHERE id = $1", parsedID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *AssignmentRepository) DeleteBySpaceID(ctx context.Context, spaceID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM assignments WHERE space_id = $1", spaceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *AssignmentRepository) CountBySpaceID(ctx context.Context, spaceID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT count(*) FROM assignments WHERE space_id = $1", spaceID).Scan(&count)
	return count, err
}

func scanAssignment(row rowScanner) (domain.Assignment, error) {
	var (
		a        domain.Assignment
		id       pgtype.UUID
		status   string
		spaceID  pgtype.Int8
		lastSeen pgtype.Timestamptz
	)
	err := row.Scan(
		&id,
		&a.Addr,
		&a.Hostname,
		&a.CNAME,
		&a.MAC,
		&a.Description,
		&status,
		&spaceID,
		&a.Assigned,
		&lastSeen,
		&a.DiscoverySource,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Assignment{}, err
	}

	a.ID = domain.AssignmentID(uuid.UUID(id.Bytes).String())
	a.Status = domain.Status(status)
	if spaceID.Valid {
		a.SpaceID = spaceID.Int64
	}
	if lastSeen.Valid {
		a.LastSeen = lastSeen.Time
	}
	return a, nil
}

func parseAssignmentID(id domain.AssignmentID) (pgtype.UUID, error) {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return pgtype.UUID{}, err
	}

	var parsed pgtype.UUID
	copy(parsed.Bytes[:], u[:])
	parsed.Valid = true

	return parsed, nil
}

func spaceIDParam(id int64) pgtype.Int8 {
	return pgtype.Int8{Int64: id, Valid: id != 0}
}

func lastSeenParam(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
