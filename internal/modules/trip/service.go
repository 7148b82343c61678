// README: Trip read model; derives display fields from the driver/vehicle registries.
package trip

import (
	"context"

	"convoy/internal/modules/driver"
	"convoy/internal/modules/vehicle"
	"convoy/internal/types"
)

type DriverDirectory interface {
	Get(ctx context.Context, id types.ID) (*driver.Driver, error)
}

type VehicleDirectory interface {
	Get(ctx context.Context, id types.ID) (*vehicle.Vehicle, error)
}

// DisplayTrip is a trip joined with its driver name and vehicle plate.
// Those two fields are derived at read time and never persisted on the trip
// row; they must not be used for authorization decisions.
type DisplayTrip struct {
	Trip
	DriverName   string
	VehiclePlate string
}

type Service struct {
	store    *Store
	drivers  DriverDirectory
	vehicles VehicleDirectory
}

func NewService(store *Store, drivers DriverDirectory, vehicles VehicleDirectory) *Service {
	return &Service{store: store, drivers: drivers, vehicles: vehicles}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetDisplay(ctx context.Context, id types.ID) (*DisplayTrip, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dt := DisplayTrip{Trip: *t}
	s.decorate(ctx, &dt)
	return &dt, nil
}

// List returns trips visible to the caller: drivers see their own trips,
// supervisors and admins see the whole fleet.
func (s *Service) List(ctx context.Context, callerID types.ID, role types.Role) ([]DisplayTrip, error) {
	var (
		trips []Trip
		err   error
	)
	if role == types.RoleTransportista {
		trips, err = s.store.ListByDriver(ctx, callerID)
	} else {
		trips, err = s.store.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]DisplayTrip, len(trips))
	for i := range trips {
		out[i] = DisplayTrip{Trip: trips[i]}
		s.decorate(ctx, &out[i])
	}
	return out, nil
}

func (s *Service) ListEvents(ctx context.Context, tripID types.ID) ([]Event, error) {
	return s.store.ListEvents(ctx, tripID)
}

// decorate fills the derived display fields. Lookup failures leave the
// fields empty rather than failing the read; the authoritative ids are
// always present on the trip itself.
func (s *Service) decorate(ctx context.Context, dt *DisplayTrip) {
	if d, err := s.drivers.Get(ctx, dt.DriverID); err == nil {
		dt.DriverName = d.Name
	}
	if v, err := s.vehicles.Get(ctx, dt.VehicleID); err == nil {
		dt.VehiclePlate = v.Plate
	}
}
