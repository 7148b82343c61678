// README: Vehicle store backed by PostgreSQL (read-side only; CRUD lives elsewhere).
package vehicle

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"convoy/internal/types"
)

var ErrNotFound = errors.New("vehicle not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Vehicle, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, plate, model, created_at FROM vehicles WHERE id = $1`, int64(id))
	var v Vehicle
	var vid int64
	err := row.Scan(&vid, &v.Plate, &v.Model, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.ID = types.ID(vid)
	return &v, nil
}

func (s *Store) List(ctx context.Context) ([]Vehicle, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, plate, model, created_at FROM vehicles ORDER BY plate`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []Vehicle
	for rows.Next() {
		var v Vehicle
		var vid int64
		if err := rows.Scan(&vid, &v.Plate, &v.Model, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.ID = types.ID(vid)
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// ListIDs returns all vehicle ids; used by the eligibility resolver for
// supervisor and admin callers.
func (s *Store) ListIDs(ctx context.Context) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.ID(id))
	}
	return ids, rows.Err()
}
