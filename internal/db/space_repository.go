package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipamkit/ipamkit/internal/domain"
)

const spaceColumns = "id, cidr, name, domain, vlan_id, location, description, created_at, updated_at"

type SpaceRepository struct {
	pool *pgxpool.Pool
}

func NewSpaceRepository(pool *pgxpool.Pool) *SpaceRepository {
	return &SpaceRepository{pool: pool}
}

func (r *SpaceRepository) List(ctx context.Context) ([]domain.Space, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+spaceColumns+" FROM spaces ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Space
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, space)
	}
	return out, rows.Err()
}

func (r *SpaceRepository) FindByID(ctx context.Context, id int64) (domain.Space, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+spaceColumns+" FROM spaces WHERE id = $1", id)
	space, err := scanSpace(row)
	if err != nil {
		if isNoRows(err) {
			return domain.Space{}, domain.ErrNotFound
		}
		return domain.Space{}, err
	}
	return space, nil
}

func (r *SpaceRepository) Create(ctx context.Context, space domain.Space) (domain.Space, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO spaces (cidr, name, domain, vlan_id, location, description)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+spaceColumns,
		space.CIDR, space.Name, space.Domain, space.VLANID, space.Location, space.Description,
	)
	created, err := scanSpace(row)
	if err != nil {
		if isConstraintViolation(err, "unique_cidr") || isConstraintViolation(err, "spaces_no_overlap") {
			return domain.Space{}, fmt.Errorf("%w: %s", domain.ErrConflict, space.CIDR)
		}
		return domain.Space{}, err
	}
	return created, nil
}

func (r *SpaceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM spaces WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpace(row rowScanner) (domain.Space, error) {
	var space domain.Space
	err := row.Scan(
		&space.ID,
		&space.CIDR,
		&space.Name,
		&space.Domain,
		&space.VLANID,
		&space.Location,
		&space.Description,
		&space.CreatedAt,
		&space.UpdatedAt,
	)
	return space, err
}
