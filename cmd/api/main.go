package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/eulergen/internal/api"
	"github.com/timmy/eulergen/internal/api/handler"
	"github.com/timmy/eulergen/internal/api/middleware"
	"github.com/timmy/eulergen/internal/app"
	"github.com/timmy/eulergen/internal/config"
	"github.com/timmy/eulergen/internal/logger"
	"github.com/timmy/eulergen/internal/metrics"
)

func main() {
	envCfg := logger.LoadFromEnv()
	envCfg.ServiceName = "eulergen-api"
	log := logger.NewFromEnv(envCfg)
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	recorder := metrics.NewPrometheusRecorder(nil)
	comps, err := app.Build(context.Background(), cfg, log, recorder)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize generator")
	}
	defer comps.Close()

	var store handler.RunStore
	if comps.Runs != nil {
		store = comps.Runs
	}
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()
	runs := handler.NewRunHandler(store, comps.Generator).WithBaseContext(runCtx)

	router := api.SetupRouter(api.RouterConfig{
		Mode:   cfg.Server.Mode,
		Logger: log,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Health:  handler.NewHealthHandler(comps.Ping),
		Runs:    runs,
		Metrics: recorder.Handler(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// A triggered run stops after its current batch
	cancelRuns()
	runs.Wait()
	log.Info("Server exited")
}
