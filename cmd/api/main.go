package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finanzas/internal/shared/config"
	"finanzas/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cleanup []func(context.Context) error
	var provider *telemetry.Provider
	if cfg.Telemetry.Enabled {
		provider, err = telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return err
		}
		cleanup = append(cleanup, provider.Shutdown)
	}

	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	go deps.WatchSessions(ctx)

	var metrics http.Handler
	if provider != nil {
		metrics = provider.MetricsHandler()
	}
	handler := SetupRoutes(deps, cfg, metrics)

	servers := NewServers(NewServerConfigFromConfig(handler, cfg))
	serveErr := servers.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case runErr = <-serveErr:
		log.Printf("Server error: %v", runErr)
	}

	cancel()
	servers.Shutdown(30*time.Second, cleanup...)
	return runErr
}
