// README: Trip aggregate and status definitions.
package trip

import (
	"time"

	"convoy/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusEnRoute   Status = "en_route"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Trip struct {
	ID            types.ID
	Origin        types.Place
	Destination   types.Place
	ScheduledAt   time.Time
	DriverID      types.ID
	VehicleID     types.ID
	Notes         string
	Status        Status
	StatusVersion int
	CreatedAt     time.Time
}

type Event struct {
	ID         int64
	TripID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorRole  types.Role
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the trip lifecycle as code. Cancellation is
// terminal and only ever reached through the CRUD path, never through the
// workflow engine.
var AllowedTransitions = map[Status][]Status{
	StatusPending: {StatusEnRoute, StatusCancelled},
	StatusEnRoute: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
