package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ipamkit/ipamkit/internal/domain"
)

// Store bundles the three repositories over one pool and provides the
// transactional snapshot the backup layer needs.
type Store struct {
	pool        *pgxpool.Pool
	spaces      *SpaceRepository
	assignments *AssignmentRepository
	ranges      *RangeRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:        pool,
		spaces:      NewSpaceRepository(pool),
		assignments: NewAssignmentRepository(pool),
		ranges:      NewRangeRepository(pool),
	}
}

func (s *Store) Spaces() domain.SpaceRepository           { return s.spaces }
func (s *Store) Assignments() domain.AssignmentRepository { return s.assignments }
func (s *Store) Ranges() domain.RangeRepository           { return s.ranges }

// Dump reads all three tables inside one repeatable-read transaction, so
// the snapshot never contains a half-written assignment.
func (s *Store) Dump(ctx context.Context) (domain.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer tx.Rollback(ctx)

	var snap domain.Snapshot

	rows, err := tx.Query(ctx, "SELECT "+spaceColumns+" FROM spaces ORDER BY id")
	if err != nil {
		return domain.Snapshot{}, err
	}
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			rows.Close()
			return domain.Snapshot{}, err
		}
		snap.Spaces = append(snap.Spaces, space)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	rows, err = tx.Query(ctx, "SELECT "+assignmentColumns+" FROM assignments ORDER BY addr")
	if err != nil {
		return domain.Snapshot{}, err
	}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			rows.Close()
			return domain.Snapshot{}, err
		}
		snap.Assignments = append(snap.Assignments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	rows, err = tx.Query(ctx, "SELECT "+rangeColumns+" FROM reserved_ranges ORDER BY id")
	if err != nil {
		return domain.Snapshot{}, err
	}
	for rows.Next() {
		rr, err := scanRange(rows)
		if err != nil {
			rows.Close()
			return domain.Snapshot{}, err
		}
		snap.Ranges = append(snap.Ranges, rr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	return snap, tx.Commit(ctx)
}

// Load replaces the store contents with snap in one transaction.
func (s *Store) Load(ctx context.Context, snap domain.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE spaces, assignments, reserved_ranges RESTART IDENTITY CASCADE"); err != nil {
		return err
	}

	for _, space := range snap.Spaces {
		_, err := tx.Exec(ctx,
			`INSERT INTO spaces (id, cidr, name, domain, vlan_id, location, description, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			space.ID, space.CIDR, space.Name, space.Domain, space.VLANID, space.Location, space.Description,
			space.CreatedAt, space.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("restore space %d: %w", space.ID, err)
		}
	}

	for _, a := range snap.Assignments {
		parsedID, err := parseAssignmentID(a.ID)
		if err != nil {
			return fmt.Errorf("restore assignment %s: %w", a.Addr, domain.ErrInvalidInput)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO assignments (id, addr, hostname, cname, mac, description, status, space_id, assigned, last_seen, discovery_source, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			parsedID, a.Addr, a.Hostname, a.CNAME, a.MAC, a.Description, string(a.Status),
			spaceIDParam(a.SpaceID), a.Assigned, lastSeenParam(a.LastSeen), a.DiscoverySource,
			a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("restore assignment %s: %w", a.Addr, err)
		}
	}

	for _, rr := range snap.Ranges {
		_, err := tx.Exec(ctx,
			`INSERT INTO reserved_ranges (id, space_id, start_addr, end_addr, active, description, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rr.ID, rr.SpaceID, rr.Start, rr.End, rr.Active, rr.Description, rr.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("restore range %d: %w", rr.ID, err)
		}
	}

	// Restored rows carry explicit ids; bump the identity sequences past them.
	for _, seq := range []string{
		"SELECT setval(pg_get_serial_sequence('spaces', 'id'), coalesce(max(id), 0) + 1, false) FROM spaces",
		"SELECT setval(pg_get_serial_sequence('reserved_ranges', 'id'), coalesce(max(id), 0) + 1, false) FROM reserved_ranges",
	} {
		if _, err := tx.Exec(ctx, seq); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
