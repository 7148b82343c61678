// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"convoy/internal/ai"
	"convoy/internal/http/handlers"
	"convoy/internal/http/middleware"
	"convoy/internal/infra"
)

// TripSource joins the read-model slices the trip and brief handlers need;
// trip.Service satisfies it.
type TripSource interface {
	handlers.TripReader
	handlers.BriefTripSource
}

type ServerDeps struct {
	Trips    TripSource
	Requests handlers.RequestReader
	Engine   handlers.Workflow
	Drivers  handlers.DriverLister
	Vehicles handlers.VehicleLister
	Eligible handlers.Eligibility

	// Optional integrations; nil disables the endpoint.
	Routes handlers.RouteEstimator
	Brief  ai.BriefProvider

	Sessions infra.SessionVerifier
	Log      *zap.Logger
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(deps ServerDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	tripHandler := handlers.NewTripHandler(deps.Trips, deps.Requests, deps.Routes)
	workflowHandler := handlers.NewWorkflowHandler(deps.Engine)
	fleetHandler := handlers.NewFleetHandler(deps.Drivers, deps.Vehicles, deps.Eligible)
	briefHandler := handlers.NewBriefHandler(deps.Trips, deps.Requests, deps.Routes, deps.Brief)

	api := r.Group("/api", middleware.Auth(deps.Sessions))

	api.GET("/trips", tripHandler.List)
	api.GET("/trips/:id", tripHandler.Get)
	api.GET("/trips/:id/estimate", tripHandler.Estimate)
	api.GET("/trips/:id/request-status", tripHandler.RequestStatus)
	api.GET("/trips/:id/brief", briefHandler.Get)

	api.POST("/trips/:id/start-request", workflowHandler.RequestStart)
	api.POST("/trips/:id/start-request/approve", workflowHandler.ApproveStart)
	api.POST("/trips/:id/start-request/reject", workflowHandler.RejectStart)
	api.POST("/trips/:id/finish-request", workflowHandler.RequestFinish)
	api.POST("/trips/:id/finish-request/approve", workflowHandler.ApproveFinish)
	api.POST("/trips/:id/finish-request/reject", workflowHandler.RejectFinish)

	api.GET("/drivers", fleetHandler.ListDrivers)
	api.GET("/vehicles", fleetHandler.ListVehicles)
	api.GET("/vehicles/eligible", fleetHandler.EligibleVehicles)

	return r
}
