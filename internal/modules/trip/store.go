// README: Trip store backed by PostgreSQL.
package trip

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"convoy/internal/types"
)

var (
	ErrNotFound = errors.New("trip not found")
	// ErrVehicleBusy surfaces the active-vehicle unique index: the assigned
	// vehicle is already carrying another en_route trip.
	ErrVehicleBusy = errors.New("vehicle already on an en_route trip")
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, t *Trip) (types.ID, error) {
	row := s.db.QueryRow(ctx, `
        INSERT INTO trips (
            origin_region, origin_locality, dest_region, dest_locality,
            scheduled_at, driver_id, vehicle_id, notes, status, status_version
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
        RETURNING id`,
		t.Origin.Region, t.Origin.Locality,
		t.Destination.Region, t.Destination.Locality,
		t.ScheduledAt,
		int64(t.DriverID), int64(t.VehicleID),
		t.Notes,
		string(t.Status),
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return types.ID(id), nil
}

const tripColumns = `
        id, origin_region, origin_locality, dest_region, dest_locality,
        scheduled_at, driver_id, vehicle_id, notes, status, status_version, created_at`

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `SELECT`+tripColumns+` FROM trips WHERE id = $1`, int64(id))
	t, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `SELECT`+tripColumns+` FROM trips ORDER BY scheduled_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrips(rows)
}

func (s *Store) ListByDriver(ctx context.Context, driverID types.ID) ([]Trip, error) {
	rows, err := s.db.Query(ctx,
		`SELECT`+tripColumns+` FROM trips WHERE driver_id = $1 ORDER BY scheduled_at DESC`,
		int64(driverID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrips(rows)
}

// UpdateStatus applies a compare-and-swap transition guarded by
// (status, status_version). It reports whether the row was updated; racing
// callers lose the swap and must resynchronize. A violation of the
// active-vehicle index is returned as ErrVehicleBusy.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE trips
        SET status = $1,
            status_version = status_version + 1
        WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), int64(id), string(from), version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrVehicleBusy
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// HasEnRouteByVehicle reports whether another trip is already en_route on
// the given vehicle.
func (s *Store) HasEnRouteByVehicle(ctx context.Context, vehicleID, excludeTripID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM trips
            WHERE vehicle_id = $1 AND status = 'en_route' AND id <> $2
        )`, int64(vehicleID), int64(excludeTripID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// EnRouteVehicleIDs returns the vehicles of the driver's en_route trips.
func (s *Store) EnRouteVehicleIDs(ctx context.Context, driverID types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
        SELECT vehicle_id FROM trips
        WHERE driver_id = $1 AND status = 'en_route'
        ORDER BY vehicle_id`, int64(driverID),
	)
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

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	var actorID *int64
	if e.ActorID != nil {
		v := int64(*e.ActorID)
		actorID = &v
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO trip_state_events (
            trip_id, from_status, to_status, actor_role, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		int64(e.TripID),
		string(e.FromStatus),
		string(e.ToStatus),
		string(e.ActorRole),
		actorID,
		e.CreatedAt,
	)
	return err
}

func (s *Store) ListEvents(ctx context.Context, tripID types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, trip_id, from_status, to_status, actor_role, actor_id, created_at
        FROM trip_state_events
        WHERE trip_id = $1
        ORDER BY created_at`, int64(tripID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var tripID int64
		var actorID *int64
		if err := rows.Scan(&e.ID, &tripID, &e.FromStatus, &e.ToStatus, &e.ActorRole, &actorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TripID = types.ID(tripID)
		if actorID != nil {
			v := types.ID(*actorID)
			e.ActorID = &v
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*Trip, error) {
	var t Trip
	var id, driverID, vehicleID int64
	err := row.Scan(
		&id,
		&t.Origin.Region, &t.Origin.Locality,
		&t.Destination.Region, &t.Destination.Locality,
		&t.ScheduledAt,
		&driverID, &vehicleID,
		&t.Notes, &t.Status, &t.StatusVersion, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ID = types.ID(id)
	t.DriverID = types.ID(driverID)
	t.VehicleID = types.ID(vehicleID)
	return &t, nil
}

func collectTrips(rows pgx.Rows) ([]Trip, error) {
	var trips []Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}
