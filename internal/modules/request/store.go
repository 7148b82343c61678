// README: Request ledger backed by PostgreSQL.
package request

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"convoy/internal/types"
)

var ErrNoOpenRequest = errors.New("no open request")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const requestColumns = `
        id, trip_id, kind, driver_id, status,
        COALESCE(reason, ''), COALESCE(cooldown_days, 0),
        unblock_at, created_at, resolved_at`

// Open returns the open request for (trip, kind), or ErrNoOpenRequest.
func (s *Store) Open(ctx context.Context, tripID types.ID, kind Kind) (*Request, error) {
	row := s.db.QueryRow(ctx, `
        SELECT`+requestColumns+`
        FROM trip_requests
        WHERE trip_id = $1 AND kind = $2 AND status = 'open'`,
		int64(tripID), string(kind),
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOpenRequest
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Submit creates an open request for (trip, kind) unless one already exists.
// The partial unique index makes concurrent submits collapse: the insert is
// a no-op for losers and everyone reads back the single open row. The bool
// reports whether this call created the row.
func (s *Store) Submit(ctx context.Context, tripID, driverID types.ID, kind Kind, now time.Time) (*Request, bool, error) {
	tag, err := s.db.Exec(ctx, `
        INSERT INTO trip_requests (trip_id, kind, driver_id, status, created_at)
        VALUES ($1, $2, $3, 'open', $4)
        ON CONFLICT (trip_id, kind) WHERE status = 'open' DO NOTHING`,
		int64(tripID), string(kind), int64(driverID), now,
	)
	if err != nil {
		return nil, false, err
	}
	created := tag.RowsAffected() == 1

	req, err := s.Open(ctx, tripID, kind)
	if errors.Is(err, ErrNoOpenRequest) {
		// The open slot vanished between insert and read: someone resolved
		// it already. Treat as a lost race and let the caller resync.
		return nil, false, ErrNoOpenRequest
	}
	if err != nil {
		return nil, false, err
	}
	return req, created, nil
}

// Resolve applies the outcome to a specific request while it is still open.
// Exactly one of several racing resolvers wins; the rest observe a false
// return and must treat the request as already processed.
func (s *Store) Resolve(ctx context.Context, requestID int64, res Resolution) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE trip_requests
        SET status = $1,
            reason = NULLIF($2, ''),
            cooldown_days = NULLIF($3, 0),
            unblock_at = $4,
            resolved_at = $5
        WHERE id = $6 AND status = 'open'`,
		string(res.Status), res.Reason, res.CooldownDays, res.UnblockAt, res.ResolvedAt,
		requestID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Reopen undoes a resolution whose follow-up trip transition failed, putting
// the request back in the open slot. If a fresh open request appeared in the
// meantime the unique index rejects the reopen; the fresh request supersedes
// and the resolved row is left as-is.
func (s *Store) Reopen(ctx context.Context, requestID int64) error {
	_, err := s.db.Exec(ctx, `
        UPDATE trip_requests
        SET status = 'open',
            reason = NULL,
            cooldown_days = NULL,
            unblock_at = NULL,
            resolved_at = NULL
        WHERE id = $1`,
		requestID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil
		}
		return err
	}
	return nil
}

// LastRejection returns the most recent rejected start request for the
// (driver, trip) pair, or nil when there is none.
func (s *Store) LastRejection(ctx context.Context, driverID, tripID types.ID) (*Request, error) {
	row := s.db.QueryRow(ctx, `
        SELECT`+requestColumns+`
        FROM trip_requests
        WHERE driver_id = $1 AND trip_id = $2 AND kind = 'start' AND status = 'rejected'
        ORDER BY resolved_at DESC
        LIMIT 1`,
		int64(driverID), int64(tripID),
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Latest returns the most recent request of a kind for a trip regardless of
// status, or nil when the trip has never had one. Feeds the request-status
// endpoint.
func (s *Store) Latest(ctx context.Context, tripID types.ID, kind Kind) (*Request, error) {
	row := s.db.QueryRow(ctx, `
        SELECT`+requestColumns+`
        FROM trip_requests
        WHERE trip_id = $1 AND kind = $2
        ORDER BY created_at DESC, id DESC
        LIMIT 1`,
		int64(tripID), string(kind),
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ListOpenOlderThan returns open requests created before the cutoff, oldest
// first. Used by the stale-request monitor.
func (s *Store) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]Request, error) {
	rows, err := s.db.Query(ctx, `
        SELECT`+requestColumns+`
        FROM trip_requests
        WHERE status = 'open' AND created_at < $1
        ORDER BY created_at`,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var r Request
	var tripID, driverID int64
	err := row.Scan(
		&r.ID, &tripID, &r.Kind, &driverID, &r.Status,
		&r.Reason, &r.CooldownDays,
		&r.UnblockAt, &r.CreatedAt, &r.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	r.TripID = types.ID(tripID)
	r.DriverID = types.ID(driverID)
	return &r, nil
}
