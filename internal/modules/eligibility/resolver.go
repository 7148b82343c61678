// README: Derives which vehicles a caller may log expenses against.
package eligibility

import (
	"context"

	"convoy/internal/types"
)

// GeneralExpenseTripID is the sentinel trip id under which supervisors and
// admins may log an expense that belongs to no trip.
const GeneralExpenseTripID types.ID = 0

type TripSource interface {
	EnRouteVehicleIDs(ctx context.Context, driverID types.ID) ([]types.ID, error)
}

type VehicleSource interface {
	ListIDs(ctx context.Context) ([]types.ID, error)
}

// Result is the eligibility set for one caller. It is recomputed from the
// live trip set on every call, so a finish approval revokes the vehicle
// immediately; nothing here is cached.
type Result struct {
	VehicleIDs          []types.ID
	AllowGeneralExpense bool
}

type Resolver struct {
	trips    TripSource
	vehicles VehicleSource
}

func NewResolver(trips TripSource, vehicles VehicleSource) *Resolver {
	return &Resolver{trips: trips, vehicles: vehicles}
}

// EligibleVehicles returns the vehicles usable by the caller for expense
// logging. Drivers get exactly the vehicles of their own en_route trips;
// supervisors and admins get the whole fleet plus the general-expense slot.
func (r *Resolver) EligibleVehicles(ctx context.Context, callerID types.ID, role types.Role) (Result, error) {
	if role == types.RoleTransportista {
		ids, err := r.trips.EnRouteVehicleIDs(ctx, callerID)
		if err != nil {
			return Result{}, err
		}
		return Result{VehicleIDs: ids}, nil
	}

	ids, err := r.vehicles.ListIDs(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{VehicleIDs: ids, AllowGeneralExpense: true}, nil
}
