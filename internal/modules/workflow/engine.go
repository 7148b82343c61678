// README: Trip workflow engine: validates and applies start/finish requests and resolutions.
package workflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"convoy/internal/modules/request"
	"convoy/internal/modules/trip"
	"convoy/internal/types"
)

// TripStore is the slice of the trip repository the engine depends on.
type TripStore interface {
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to trip.Status, version int) (bool, error)
	HasEnRouteByVehicle(ctx context.Context, vehicleID, excludeTripID types.ID) (bool, error)
	AppendEvent(ctx context.Context, e *trip.Event) error
}

// RequestLedger is the slice of the request store the engine depends on.
type RequestLedger interface {
	Open(ctx context.Context, tripID types.ID, kind request.Kind) (*request.Request, error)
	Submit(ctx context.Context, tripID, driverID types.ID, kind request.Kind, now time.Time) (*request.Request, bool, error)
	Resolve(ctx context.Context, requestID int64, res request.Resolution) (bool, error)
	Reopen(ctx context.Context, requestID int64) error
	LastRejection(ctx context.Context, driverID, tripID types.ID) (*request.Request, error)
	ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]request.Request, error)
}

// Actor identifies the caller of a workflow operation. Identity and role
// come from the session collaborator; the engine only authorizes.
type Actor struct {
	ID   types.ID
	Role types.Role
}

type Engine struct {
	trips  TripStore
	ledger RequestLedger
	log    *zap.Logger
	now    func() time.Time
}

func NewEngine(trips TripStore, ledger RequestLedger, log *zap.Logger) *Engine {
	return &Engine{trips: trips, ledger: ledger, log: log, now: time.Now}
}

type RequestStartCommand struct {
	TripID   types.ID
	DriverID types.ID
}

type RequestFinishCommand struct {
	TripID   types.ID
	DriverID types.ID
}

type ApproveCommand struct {
	TripID   types.ID
	Approver Actor
}

type RejectCommand struct {
	TripID       types.ID
	Approver     Actor
	Reason       string
	CooldownDays int // start rejections only; must be a CooldownDayChoices value
}

// RequestStart opens a start request for a pending trip. Submitting twice is
// harmless: the second call collapses into the existing open request when it
// belongs to the same driver.
func (e *Engine) RequestStart(ctx context.Context, cmd RequestStartCommand) (*request.Request, error) {
	t, err := e.getTrip(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if t.Status != trip.StatusPending {
		return nil, ErrNotPending
	}

	if open, err := e.ledger.Open(ctx, cmd.TripID, request.KindStart); err == nil {
		if open.DriverID == cmd.DriverID {
			return open, nil
		}
		return nil, ErrAlreadyRequested
	} else if !errors.Is(err, request.ErrNoOpenRequest) {
		return nil, err
	}

	last, err := e.ledger.LastRejection(ctx, cmd.DriverID, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if block, blocked := request.IsBlocked(last, cmd.DriverID, e.now()); blocked {
		return nil, &CooldownError{
			RemainingDays: block.RemainingDays,
			Reason:        block.Reason,
			UnblockAt:     block.UnblockAt,
		}
	}

	req, _, err := e.ledger.Submit(ctx, cmd.TripID, cmd.DriverID, request.KindStart, e.now())
	if errors.Is(err, request.ErrNoOpenRequest) {
		return nil, ErrAlreadyProcessed
	}
	if err != nil {
		return nil, err
	}
	if req.DriverID != cmd.DriverID {
		// Lost the submit race to another driver.
		return nil, ErrAlreadyRequested
	}
	return req, nil
}

// RequestFinish opens a finish request for an en_route trip. No cooldown is
// ever checked here: a rejected finish may be resubmitted immediately.
func (e *Engine) RequestFinish(ctx context.Context, cmd RequestFinishCommand) (*request.Request, error) {
	t, err := e.getTrip(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if t.Status != trip.StatusEnRoute {
		return nil, ErrNotEnRoute
	}

	if open, err := e.ledger.Open(ctx, cmd.TripID, request.KindFinish); err == nil {
		if open.DriverID == cmd.DriverID {
			return open, nil
		}
		return nil, ErrAlreadyRequested
	} else if !errors.Is(err, request.ErrNoOpenRequest) {
		return nil, err
	}

	req, _, err := e.ledger.Submit(ctx, cmd.TripID, cmd.DriverID, request.KindFinish, e.now())
	if errors.Is(err, request.ErrNoOpenRequest) {
		return nil, ErrAlreadyProcessed
	}
	if err != nil {
		return nil, err
	}
	if req.DriverID != cmd.DriverID {
		return nil, ErrAlreadyRequested
	}
	return req, nil
}

// ApproveStart resolves the open start request and moves the trip to
// en_route. The resolution of the request row is the linearization point:
// exactly one of several racing resolvers wins it.
func (e *Engine) ApproveStart(ctx context.Context, cmd ApproveCommand) error {
	if !cmd.Approver.Role.CanApprove() {
		return ErrForbidden
	}
	t, err := e.getTrip(ctx, cmd.TripID)
	if err != nil {
		return err
	}

	open, err := e.ledger.Open(ctx, cmd.TripID, request.KindStart)
	if errors.Is(err, request.ErrNoOpenRequest) {
		if t.Status == trip.StatusEnRoute {
			// The request was resolved under us; not an error for the caller.
			e.logRaceLost("approveStart", cmd.TripID, cmd.Approver)
			return ErrAlreadyProcessed
		}
		return ErrNoOpenRequest
	}
	if err != nil {
		return err
	}
	if t.Status != trip.StatusPending {
		return ErrNotPending
	}

	// Re-check the one-active-trip-per-vehicle invariant before committing.
	busy, err := e.trips.HasEnRouteByVehicle(ctx, t.VehicleID, t.ID)
	if err != nil {
		return err
	}
	if busy {
		return ErrVehicleBusy
	}

	won, err := e.ledger.Resolve(ctx, open.ID, request.Resolution{
		Status:     request.StatusApproved,
		ResolvedAt: e.now(),
	})
	if err != nil {
		return err
	}
	if !won {
		e.logRaceLost("approveStart", cmd.TripID, cmd.Approver)
		return ErrAlreadyProcessed
	}

	applied, err := e.trips.UpdateStatus(ctx, t.ID, trip.StatusPending, trip.StatusEnRoute, t.StatusVersion)
	if err != nil || !applied {
		// The approval cannot stand without the trip transition; put the
		// request back in the open slot before reporting.
		if reopenErr := e.ledger.Reopen(ctx, open.ID); reopenErr != nil {
			e.log.Error("reopen after failed start transition",
				zap.Int64("trip_id", int64(cmd.TripID)), zap.Error(reopenErr))
		}
		if errors.Is(err, trip.ErrVehicleBusy) {
			return ErrVehicleBusy
		}
		if err != nil {
			return err
		}
		return ErrAlreadyProcessed
	}

	e.appendEvent(ctx, t.ID, trip.StatusPending, trip.StatusEnRoute, cmd.Approver)
	return nil
}

// RejectStart resolves the open start request with a reason and a cooldown
// window for the requesting driver. The trip stays pending.
func (e *Engine) RejectStart(ctx context.Context, cmd RejectCommand) error {
	if !cmd.Approver.Role.CanApprove() {
		return ErrForbidden
	}
	if cmd.Reason == "" || !request.ValidCooldownDays(cmd.CooldownDays) {
		return ErrBadRequest
	}
	return e.reject(ctx, cmd, request.KindStart)
}

// ApproveFinish resolves the open finish request and completes the trip,
// which frees the vehicle for the eligibility resolver immediately.
func (e *Engine) ApproveFinish(ctx context.Context, cmd ApproveCommand) error {
	if !cmd.Approver.Role.CanApprove() {
		return ErrForbidden
	}
	t, err := e.getTrip(ctx, cmd.TripID)
	if err != nil {
		return err
	}

	open, err := e.ledger.Open(ctx, cmd.TripID, request.KindFinish)
	if errors.Is(err, request.ErrNoOpenRequest) {
		if t.Status == trip.StatusCompleted {
			e.logRaceLost("approveFinish", cmd.TripID, cmd.Approver)
			return ErrAlreadyProcessed
		}
		return ErrNoOpenRequest
	}
	if err != nil {
		return err
	}
	if t.Status != trip.StatusEnRoute {
		return ErrNotEnRoute
	}

	won, err := e.ledger.Resolve(ctx, open.ID, request.Resolution{
		Status:     request.StatusApproved,
		ResolvedAt: e.now(),
	})
	if err != nil {
		return err
	}
	if !won {
		e.logRaceLost("approveFinish", cmd.TripID, cmd.Approver)
		return ErrAlreadyProcessed
	}

	applied, err := e.trips.UpdateStatus(ctx, t.ID, trip.StatusEnRoute, trip.StatusCompleted, t.StatusVersion)
	if err != nil || !applied {
		if reopenErr := e.ledger.Reopen(ctx, open.ID); reopenErr != nil {
			e.log.Error("reopen after failed finish transition",
				zap.Int64("trip_id", int64(cmd.TripID)), zap.Error(reopenErr))
		}
		if err != nil {
			return err
		}
		return ErrAlreadyProcessed
	}

	e.appendEvent(ctx, t.ID, trip.StatusEnRoute, trip.StatusCompleted, cmd.Approver)
	return nil
}

// RejectFinish resolves the open finish request with a reason only. The trip
// stays en_route and the slot is cleared, so the driver may resubmit at once.
func (e *Engine) RejectFinish(ctx context.Context, cmd RejectCommand) error {
	if !cmd.Approver.Role.CanApprove() {
		return ErrForbidden
	}
	if cmd.Reason == "" {
		return ErrBadRequest
	}
	cmd.CooldownDays = 0
	return e.reject(ctx, cmd, request.KindFinish)
}

// reject is the shared resolution path for both request kinds; only start
// rejections attach a cooldown window.
func (e *Engine) reject(ctx context.Context, cmd RejectCommand, kind request.Kind) error {
	if _, err := e.getTrip(ctx, cmd.TripID); err != nil {
		return err
	}

	open, err := e.ledger.Open(ctx, cmd.TripID, kind)
	if errors.Is(err, request.ErrNoOpenRequest) {
		return ErrNoOpenRequest
	}
	if err != nil {
		return err
	}

	now := e.now()
	res := request.Resolution{
		Status:     request.StatusRejected,
		Reason:     cmd.Reason,
		ResolvedAt: now,
	}
	if kind == request.KindStart {
		unblockAt := now.Add(time.Duration(cmd.CooldownDays) * 24 * time.Hour)
		res.CooldownDays = cmd.CooldownDays
		res.UnblockAt = &unblockAt
	}

	won, err := e.ledger.Resolve(ctx, open.ID, res)
	if err != nil {
		return err
	}
	if !won {
		e.logRaceLost("reject:"+string(kind), cmd.TripID, cmd.Approver)
		return ErrAlreadyProcessed
	}
	return nil
}

// RunStaleRequestMonitor periodically reports requests left open beyond
// maxAge. Purely observational; it never mutates the ledger.
func (e *Engine) RunStaleRequestMonitor(ctx context.Context, tick, maxAge time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale, err := e.ledger.ListOpenOlderThan(ctx, e.now().Add(-maxAge))
			if err != nil {
				e.log.Warn("stale request scan failed", zap.Error(err))
				continue
			}
			for _, r := range stale {
				e.log.Warn("request open past threshold",
					zap.Int64("trip_id", int64(r.TripID)),
					zap.String("kind", string(r.Kind)),
					zap.Int64("driver_id", int64(r.DriverID)),
					zap.Time("created_at", r.CreatedAt),
				)
			}
		}
	}
}

func (e *Engine) getTrip(ctx context.Context, id types.ID) (*trip.Trip, error) {
	t, err := e.trips.Get(ctx, id)
	if errors.Is(err, trip.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (e *Engine) appendEvent(ctx context.Context, tripID types.ID, from, to trip.Status, actor Actor) {
	actorID := actor.ID
	if err := e.trips.AppendEvent(ctx, &trip.Event{
		TripID:     tripID,
		FromStatus: from,
		ToStatus:   to,
		ActorRole:  actor.Role,
		ActorID:    &actorID,
		CreatedAt:  e.now(),
	}); err != nil {
		e.log.Warn("append trip event", zap.Int64("trip_id", int64(tripID)), zap.Error(err))
	}
}

func (e *Engine) logRaceLost(op string, tripID types.ID, actor Actor) {
	e.log.Info("resolution race lost; caller told to resync",
		zap.String("op", op),
		zap.Int64("trip_id", int64(tripID)),
		zap.Int64("actor_id", int64(actor.ID)),
		zap.String("actor_role", string(actor.Role)),
	)
}
