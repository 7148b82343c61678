// README: Classified workflow errors.
package workflow

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrForbidden: the caller's role may not perform the operation.
	ErrForbidden = errors.New("role not permitted for this operation")
	// ErrNotPending / ErrNotEnRoute: stale client view of the trip status.
	ErrNotPending = errors.New("trip is not pending")
	ErrNotEnRoute = errors.New("trip is not en_route")
	// ErrAlreadyRequested: another driver holds the open request slot.
	ErrAlreadyRequested = errors.New("an open request already exists for this trip")
	// ErrNoOpenRequest: nothing to approve or reject.
	ErrNoOpenRequest = errors.New("no open request for this trip")
	// ErrAlreadyProcessed: a concurrent resolver won; the caller should
	// refresh its view rather than report a failure.
	ErrAlreadyProcessed = errors.New("request was already processed")
	// ErrVehicleBusy: approving would put a second en_route trip on the vehicle.
	ErrVehicleBusy = errors.New("vehicle already has an active trip")
	ErrNotFound    = errors.New("trip not found")
	ErrBadRequest  = errors.New("bad request")
)

// CooldownError blocks a start request while the driver's rejection window
// for this trip is still running.
type CooldownError struct {
	RemainingDays int
	Reason        string
	UnblockAt     time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("start request blocked for %d more day(s): %s", e.RemainingDays, e.Reason)
}
