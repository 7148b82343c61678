// README: Trip read endpoints: list, detail with next action, request status, route estimate.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"convoy/internal/maps"
	"convoy/internal/modules/request"
	"convoy/internal/modules/trip"
	"convoy/internal/modules/workflow"
	"convoy/internal/types"
)

type TripReader interface {
	GetDisplay(ctx context.Context, id types.ID) (*trip.DisplayTrip, error)
	List(ctx context.Context, callerID types.ID, role types.Role) ([]trip.DisplayTrip, error)
}

type RequestReader interface {
	Open(ctx context.Context, tripID types.ID, kind request.Kind) (*request.Request, error)
	Latest(ctx context.Context, tripID types.ID, kind request.Kind) (*request.Request, error)
	LastRejection(ctx context.Context, driverID, tripID types.ID) (*request.Request, error)
}

type RouteEstimator interface {
	GetTravelEstimate(ctx context.Context, origin, destination types.Place) (maps.RouteEstimate, error)
}

type TripHandler struct {
	trips    TripReader
	requests RequestReader
	routes   RouteEstimator // nil when no maps key is configured
}

func NewTripHandler(trips TripReader, requests RequestReader, routes RouteEstimator) *TripHandler {
	return &TripHandler{trips: trips, requests: requests, routes: routes}
}

type placeJSON struct {
	Region   string `json:"region"`
	Locality string `json:"locality"`
}

type tripJSON struct {
	ID            types.ID  `json:"id"`
	Origin        placeJSON `json:"origin"`
	Destination   placeJSON `json:"destination"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	DriverID      types.ID  `json:"driver_id"`
	VehicleID     types.ID  `json:"vehicle_id"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status"`
	StatusVersion int       `json:"status_version"`
	DriverName    string    `json:"driver_name,omitempty"`
	VehiclePlate  string    `json:"vehicle_plate,omitempty"`
}

func toTripJSON(dt *trip.DisplayTrip) tripJSON {
	return tripJSON{
		ID:            dt.ID,
		Origin:        placeJSON{Region: dt.Origin.Region, Locality: dt.Origin.Locality},
		Destination:   placeJSON{Region: dt.Destination.Region, Locality: dt.Destination.Locality},
		ScheduledAt:   dt.ScheduledAt,
		DriverID:      dt.DriverID,
		VehicleID:     dt.VehicleID,
		Notes:         dt.Notes,
		Status:        string(dt.Status),
		StatusVersion: dt.StatusVersion,
		DriverName:    dt.DriverName,
		VehiclePlate:  dt.VehiclePlate,
	}
}

func (h *TripHandler) List(c *gin.Context) {
	trips, err := h.trips.List(c.Request.Context(), callerID(c), callerRole(c))
	if err != nil {
		writeTripError(c, err)
		return
	}
	out := make([]tripJSON, len(trips))
	for i := range trips {
		out[i] = toTripJSON(&trips[i])
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": out})
}

// Get returns the trip detail plus the single action the caller's console
// should render for it.
func (h *TripHandler) Get(c *gin.Context) {
	id, ok := tripIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	dt, err := h.trips.GetDisplay(ctx, id)
	if err != nil {
		writeTripError(c, err)
		return
	}

	view, block, err := h.buildView(ctx, dt, callerID(c), callerRole(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}

	resp := gin.H{
		"trip":   toTripJSON(dt),
		"action": string(workflow.Decide(view)),
	}
	if view.IsCooled {
		resp["cooldown"] = gin.H{
			"remaining_days": block.RemainingDays,
			"reason":         block.Reason,
			"unblock_at":     block.UnblockAt,
		}
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *TripHandler) buildView(ctx context.Context, dt *trip.DisplayTrip, caller types.ID, role types.Role) (workflow.View, request.Block, error) {
	view := workflow.View{Role: role, TripStatus: dt.Status}
	var block request.Block

	if _, err := h.requests.Open(ctx, dt.ID, request.KindStart); err == nil {
		view.HasOpenStart = true
	} else if !errors.Is(err, request.ErrNoOpenRequest) {
		return view, block, err
	}
	if _, err := h.requests.Open(ctx, dt.ID, request.KindFinish); err == nil {
		view.HasOpenFinish = true
	} else if !errors.Is(err, request.ErrNoOpenRequest) {
		return view, block, err
	}

	if role == types.RoleTransportista {
		last, err := h.requests.LastRejection(ctx, caller, dt.ID)
		if err != nil {
			return view, block, err
		}
		if b, blocked := request.IsBlocked(last, caller, time.Now()); blocked {
			view.IsCooled = true
			block = b
		}
	}
	return view, block, nil
}

type requestJSON struct {
	Status       string     `json:"status"`
	DriverID     types.ID   `json:"driver_id"`
	Reason       string     `json:"reason,omitempty"`
	CooldownDays int        `json:"cooldown_days,omitempty"`
	UnblockAt    *time.Time `json:"unblock_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

func toRequestJSON(r *request.Request) *requestJSON {
	if r == nil {
		return nil
	}
	return &requestJSON{
		Status:       string(r.Status),
		DriverID:     r.DriverID,
		Reason:       r.Reason,
		CooldownDays: r.CooldownDays,
		UnblockAt:    r.UnblockAt,
		CreatedAt:    r.CreatedAt,
		ResolvedAt:   r.ResolvedAt,
	}
}

// RequestStatus returns the latest start and finish request for the trip and,
// for drivers, whether a cooldown currently blocks a new start request.
func (h *TripHandler) RequestStatus(c *gin.Context) {
	id, ok := tripIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.trips.GetDisplay(ctx, id); err != nil {
		writeTripError(c, err)
		return
	}

	start, err := h.requests.Latest(ctx, id, request.KindStart)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	finish, err := h.requests.Latest(ctx, id, request.KindFinish)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}

	resp := gin.H{
		"start":  toRequestJSON(start),
		"finish": toRequestJSON(finish),
	}

	if callerRole(c) == types.RoleTransportista {
		last, err := h.requests.LastRejection(ctx, callerID(c), id)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "internal error")
			return
		}
		if block, blocked := request.IsBlocked(last, callerID(c), time.Now()); blocked {
			resp["cooldown"] = gin.H{
				"remaining_days": block.RemainingDays,
				"reason":         block.Reason,
				"unblock_at":     block.UnblockAt,
			}
		}
	}
	writeJSON(c, http.StatusOK, resp)
}

// Estimate returns the driving estimate between the trip endpoints. Returns
// 503 when the deployment has no maps API key configured.
func (h *TripHandler) Estimate(c *gin.Context) {
	if h.routes == nil {
		writeError(c, http.StatusServiceUnavailable, "route estimates not configured")
		return
	}
	id, ok := tripIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	dt, err := h.trips.GetDisplay(ctx, id)
	if err != nil {
		writeTripError(c, err)
		return
	}

	est, err := h.routes.GetTravelEstimate(ctx, dt.Origin, dt.Destination)
	if err != nil {
		writeError(c, http.StatusBadGateway, "route estimate failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"duration_minutes": int(est.Duration.Minutes()),
		"distance":         est.Distance,
	})
}
