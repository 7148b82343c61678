// README: Driver store backed by PostgreSQL (read-side only; CRUD lives elsewhere).
package driver

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"convoy/internal/types"
)

var ErrNotFound = errors.New("driver not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, name, phone, role, created_at FROM drivers WHERE id = $1`, int64(id))
	var d Driver
	var did int64
	err := row.Scan(&did, &d.Name, &d.Phone, &d.Role, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.ID = types.ID(did)
	return &d, nil
}

func (s *Store) List(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, name, phone, role, created_at FROM drivers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []Driver
	for rows.Next() {
		var d Driver
		var did int64
		if err := rows.Scan(&did, &d.Name, &d.Phone, &d.Role, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.ID = types.ID(did)
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}
