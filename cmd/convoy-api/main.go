// README: Entry point; loads config, wires services, starts HTTP server and background monitor.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"convoy/internal/ai"
	"convoy/internal/config"
	httptransport "convoy/internal/http"
	"convoy/internal/http/handlers"
	"convoy/internal/infra"
	"convoy/internal/maps"
	"convoy/internal/modules/driver"
	"convoy/internal/modules/eligibility"
	"convoy/internal/modules/request"
	"convoy/internal/modules/trip"
	"convoy/internal/modules/vehicle"
	"convoy/internal/modules/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		logger.Fatal("redis init", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	sessions := infra.NewSessionStore(redisClient)

	driverStore := driver.NewStore(dbPool)
	vehicleStore := vehicle.NewStore(dbPool)
	tripStore := trip.NewStore(dbPool)
	requestStore := request.NewStore(dbPool)

	tripSvc := trip.NewService(tripStore, driverStore, vehicleStore)
	engine := workflow.NewEngine(tripStore, requestStore, logger)
	resolver := eligibility.NewResolver(tripStore, vehicleStore)

	var routes handlers.RouteEstimator
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			logger.Fatal("maps init", zap.Error(err))
		}
		routes = routeSvc
	}

	var brief ai.BriefProvider
	if cfg.AI.GeminiKey != "" {
		provider, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
		if err != nil {
			logger.Fatal("gemini init", zap.Error(err))
		}
		defer provider.Close()
		brief = provider
	}

	handler := httptransport.NewRouter(httptransport.ServerDeps{
		Trips:    tripSvc,
		Requests: requestStore,
		Engine:   engine,
		Drivers:  driverStore,
		Vehicles: vehicleStore,
		Eligible: resolver,
		Routes:   routes,
		Brief:    brief,
		Sessions: sessions,
		Log:      logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go engine.RunStaleRequestMonitor(ctx,
		time.Duration(cfg.Monitor.TickSeconds)*time.Second,
		time.Duration(cfg.Monitor.StaleRequestHours)*time.Hour,
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serve", zap.Error(err))
	}
}
