// README: AI dispatch brief for approvers.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"convoy/internal/ai"
	"convoy/internal/modules/request"
	"convoy/internal/modules/trip"
	"convoy/internal/types"
)

type BriefTripSource interface {
	GetDisplay(ctx context.Context, id types.ID) (*trip.DisplayTrip, error)
	ListEvents(ctx context.Context, tripID types.ID) ([]trip.Event, error)
}

type BriefHandler struct {
	trips    BriefTripSource
	requests RequestReader
	// routes and provider are nil when the respective API key is absent.
	routes   RouteEstimator
	provider ai.BriefProvider
}

func NewBriefHandler(trips BriefTripSource, requests RequestReader, routes RouteEstimator, provider ai.BriefProvider) *BriefHandler {
	return &BriefHandler{trips: trips, requests: requests, routes: routes, provider: provider}
}

// Get renders a short plain-text summary of the trip and its request history
// for the approver's console. Approver roles only.
func (h *BriefHandler) Get(c *gin.Context) {
	if h.provider == nil {
		writeError(c, http.StatusServiceUnavailable, "dispatch briefs not configured")
		return
	}
	if !callerRole(c).CanApprove() {
		writeError(c, http.StatusForbidden, "approver role required")
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

	input := ai.BriefInput{
		Origin:       formatPlace(dt.Origin),
		Destination:  formatPlace(dt.Destination),
		ScheduledAt:  dt.ScheduledAt.Format(time.RFC3339),
		Status:       string(dt.Status),
		DriverName:   dt.DriverName,
		VehiclePlate: dt.VehiclePlate,
	}

	if h.routes != nil {
		if est, err := h.routes.GetTravelEstimate(ctx, dt.Origin, dt.Destination); err == nil {
			input.TravelEstimate = fmt.Sprintf("%s / %s", est.Duration.Round(time.Minute), est.Distance)
		}
	}

	if events, err := h.trips.ListEvents(ctx, id); err == nil {
		for _, ev := range events {
			input.RecentEvents = append(input.RecentEvents,
				fmt.Sprintf("%s to %s by %s at %s",
					ev.FromStatus, ev.ToStatus, ev.ActorRole, ev.CreatedAt.Format(time.RFC3339)))
		}
	}

	for _, kind := range []request.Kind{request.KindStart, request.KindFinish} {
		open, err := h.requests.Open(ctx, id, kind)
		if err != nil {
			if !errors.Is(err, request.ErrNoOpenRequest) {
				writeError(c, http.StatusInternalServerError, "internal error")
				return
			}
			continue
		}
		input.OpenRequest = fmt.Sprintf("%s requested by driver %d at %s",
			kind, open.DriverID, open.CreatedAt.Format(time.RFC3339))
	}

	brief, err := h.provider.TripBrief(ctx, input)
	if err != nil {
		writeError(c, http.StatusBadGateway, "brief generation failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"brief": brief})
}

func formatPlace(p types.Place) string {
	if p.Locality == "" {
		return p.Region
	}
	return p.Locality + ", " + p.Region
}
