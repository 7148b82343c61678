// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"convoy/internal/http/middleware"
	"convoy/internal/modules/trip"
	"convoy/internal/modules/workflow"
	"convoy/internal/types"
)

func callerID(c *gin.Context) types.ID {
	return middleware.CallerID(c)
}

func callerRole(c *gin.Context) types.Role {
	return middleware.CallerRole(c)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// tripIDParam parses the :id path segment. Returns false after writing the
// error response when the segment is not a positive integer.
func tripIDParam(c *gin.Context) (types.ID, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid trip id")
		return 0, false
	}
	return types.ID(id), true
}

// writeWorkflowError maps engine errors onto the HTTP contract. Losing a
// resolution race is not a failure: the caller gets 200 with a resync flag
// and is expected to refresh its view.
func writeWorkflowError(c *gin.Context, err error) {
	var cooled *workflow.CooldownError
	if errors.As(err, &cooled) {
		writeJSON(c, http.StatusConflict, gin.H{
			"error":          "cooldown active",
			"remaining_days": cooled.RemainingDays,
			"reason":         cooled.Reason,
			"unblock_at":     cooled.UnblockAt,
		})
		return
	}

	switch {
	case errors.Is(err, workflow.ErrAlreadyProcessed):
		writeJSON(c, http.StatusOK, gin.H{"resync": true})
	case errors.Is(err, workflow.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, workflow.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrNotPending),
		errors.Is(err, workflow.ErrNotEnRoute),
		errors.Is(err, workflow.ErrAlreadyRequested),
		errors.Is(err, workflow.ErrNoOpenRequest),
		errors.Is(err, workflow.ErrVehicleBusy):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeTripError(c *gin.Context, err error) {
	if errors.Is(err, trip.ErrNotFound) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	writeError(c, http.StatusInternalServerError, "internal error")
}
