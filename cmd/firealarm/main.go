// Package main — cmd/firealarm/main.go
//
// Fire Alarm Unit process entrypoint.
//
// Startup sequence:
//  1. Load and validate config from ./config.yaml (or -config).
//  2. Initialise structured logger (zap).
//  3. Open the shared-memory region created by the Simulator (retries
//     briefly — the Simulator may still be starting up).
//  4. Start the Prometheus metrics server.
//  5. Wire and start the Alarm Arbiter.
//  6. Block on SIGINT/SIGTERM for graceful shutdown.
//
// Shutdown sequence (on SIGINT/SIGTERM):
//  1. Flip the running flag and wait for the arbiter's tick loop to
//     observe it and return (it also stops any in-flight evacuation
//     takeover on the way out).
//  2. Close (not destroy) the shared-memory region.
//  3. Flush logger, exit 0.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/config"
	"github.com/parkctl/parkctl/internal/firealarm"
	"github.com/parkctl/parkctl/internal/logging"
	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/shm"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "Path to config.yaml")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("parkctl-firealarm %s (commit=%s built=%s)\n",
			config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
	}

	// ── Step 1: Load config ───────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config load failed: %v\n", err)
		os.Exit(1)
	}

	// ── Step 2: Logger ─────────────────────────────────────────────────
	log, err := logging.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("firealarm starting",
		zap.String("version", config.Version),
		zap.String("config", *configPath),
		zap.String("shm_name", cfg.Garage.SHMName),
	)

	// ── Step 3: Open shared memory ────────────────────────────────────
	layout := shm.Layout{
		NumEntrances: cfg.Garage.NumEntrances,
		NumExits:     cfg.Garage.NumExits,
		NumLevels:    cfg.Garage.NumLevels,
	}
	var region *shm.Region
	for attempt := 0; ; attempt++ {
		region, err = shm.OpenReal(cfg.Garage.SHMName, layout)
		if err == nil {
			break
		}
		if attempt >= 10 {
			log.Fatal("failed to open shared-memory region", zap.Error(err))
		}
		if attempt == 0 {
			log.Info("shared-memory region not yet available, retrying", zap.String("name", cfg.Garage.SHMName))
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Info("shared-memory region opened", zap.String("name", cfg.Garage.SHMName))

	// ── Step 4: Metrics server ─────────────────────────────────────────
	metrics := observability.NewMetrics()
	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	defer metricsCancel()
	if cfg.Observability.MetricsAddr != "" {
		go func() {
			if err := metrics.ServeMetrics(metricsCtx, cfg.Observability.MetricsAddr); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
		log.Info("metrics server started", zap.String("addr", cfg.Observability.MetricsAddr))
	}

	// ── Step 5: Wire and start the Alarm Arbiter ──────────────────────
	running := &atomic.Bool{}
	running.Store(true)
	arbiter := firealarm.NewArbiter(region, running, cfg.Garage.TimeFactor, metrics, log)

	arbiterStopped := make(chan struct{})
	go func() {
		arbiter.Run()
		close(arbiterStopped)
	}()
	log.Info("fire alarm unit running")

	// ── Step 6: Wait for shutdown signal ──────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	running.Store(false)
	<-arbiterStopped
	log.Info("fire alarm unit stopped")

	if err := region.Close(); err != nil {
		log.Error("failed to close shared-memory region", zap.Error(err))
	}

	log.Info("firealarm shutdown complete")
}
