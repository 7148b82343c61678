// README: Fleet read endpoints: drivers, vehicles, per-caller vehicle eligibility.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"convoy/internal/modules/driver"
	"convoy/internal/modules/eligibility"
	"convoy/internal/modules/vehicle"
	"convoy/internal/types"
)

type DriverLister interface {
	List(ctx context.Context) ([]driver.Driver, error)
}

type VehicleLister interface {
	List(ctx context.Context) ([]vehicle.Vehicle, error)
}

type Eligibility interface {
	EligibleVehicles(ctx context.Context, callerID types.ID, role types.Role) (eligibility.Result, error)
}

type FleetHandler struct {
	drivers  DriverLister
	vehicles VehicleLister
	eligible Eligibility
}

func NewFleetHandler(drivers DriverLister, vehicles VehicleLister, eligible Eligibility) *FleetHandler {
	return &FleetHandler{drivers: drivers, vehicles: vehicles, eligible: eligible}
}

func (h *FleetHandler) ListDrivers(c *gin.Context) {
	drivers, err := h.drivers.List(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]gin.H, len(drivers))
	for i, d := range drivers {
		out[i] = gin.H{"id": d.ID, "name": d.Name, "role": d.Role}
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": out})
}

func (h *FleetHandler) ListVehicles(c *gin.Context) {
	vehicles, err := h.vehicles.List(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]gin.H, len(vehicles))
	for i, v := range vehicles {
		out[i] = gin.H{"id": v.ID, "plate": v.Plate, "model": v.Model}
	}
	writeJSON(c, http.StatusOK, gin.H{"vehicles": out})
}

// EligibleVehicles returns the vehicle set the caller may log expenses
// against, recomputed from the live trip state on every call.
func (h *FleetHandler) EligibleVehicles(c *gin.Context) {
	res, err := h.eligible.EligibleVehicles(c.Request.Context(), callerID(c), callerRole(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	ids := res.VehicleIDs
	if ids == nil {
		ids = []types.ID{}
	}
	resp := gin.H{
		"vehicle_ids":           ids,
		"allow_general_expense": res.AllowGeneralExpense,
	}
	if res.AllowGeneralExpense {
		resp["general_expense_trip_id"] = eligibility.GeneralExpenseTripID
	}
	writeJSON(c, http.StatusOK, resp)
}
