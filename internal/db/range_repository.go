package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipamkit/ipamkit/internal/domain"
)

const rangeColumns = "id, space_id, start_addr, end_addr, active, description, created_at"

type RangeRepository struct {
	pool *pgxpool.Pool
}

func NewRangeRepository(pool *pgxpool.Pool) *RangeRepository {
	return &RangeRepository{pool: pool}
}

func (r *RangeRepository) List(ctx context.Context) ([]domain.ReservedRange, error) {
	return r.query(ctx, "SELECT "+rangeColumns+" FROM reserved_ranges ORDER BY id")
}

func (r *RangeRepository) ListBySpaceID(ctx context.Context, spaceID int64) ([]domain.ReservedRange, error) {
	return r.query(ctx, "SELECT "+rangeColumns+" FROM reserved_ranges WHERE space_id = $1 ORDER BY id", spaceID)
}

func (r *RangeRepository) query(ctx context.Context, sql string, args ...any) ([]domain.ReservedRange, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReservedRange
	for rows.Next() {
		rr, err := scanRange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *RangeRepository) Create(ctx context.Context, rr domain.ReservedRange) (domain.ReservedRange, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO reserved_ranges (space_id, start_addr, end_addr, active, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+rangeColumns,
		rr.SpaceID, rr.Start, rr.End, rr.Active, rr.Description,
	)
	return scanRange(row)
}

func (r *RangeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM reserved_ranges WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RangeRepository) DeleteBySpaceID(ctx context.Context, spaceID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM reserved_ranges WHERE space_id = $1", spaceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRange(row rowScanner) (domain.ReservedRange, error) {
	var rr domain.ReservedRange
	err := row.Scan(
		&rr.ID,
		&rr.SpaceID,
		&rr.Start,
		&rr.End,
		&rr.Active,
		&rr.Description,
		&rr.CreatedAt,
	)
	return rr, err
}
