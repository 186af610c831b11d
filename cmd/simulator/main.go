// Package main — cmd/simulator/main.go
//
// Simulator process entrypoint.
//
// Startup sequence:
//  1. Load and validate config from ./config.yaml (or -config).
//  2. Initialise structured logger (zap).
//  3. Create the shared-memory region (owner — this process creates it,
//     the Manager and Fire Alarm Unit must start afterward and open it).
//  4. Load the plate allow-list.
//  5. Start the Prometheus metrics server.
//  6. Wire the Simulator's components and start its goroutines.
//  7. Start the keyboard reader (q/f/r/s interactive keys).
//  8. Block on SIGINT/SIGTERM or the keyboard's q key for graceful
//     shutdown.
//
// Shutdown sequence (SIGINT/SIGTERM or q):
//  1. Simulator.Shutdown(): broadcast on every channel, join car workers
//     and gate actuators.
//  2. Destroy the shared-memory region (this process owns it).
//  3. Flush logger, exit 0.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/config"
	"github.com/parkctl/parkctl/internal/keyboard"
	"github.com/parkctl/parkctl/internal/logging"
	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/platefile"
	"github.com/parkctl/parkctl/internal/shm"
	"github.com/parkctl/parkctl/internal/simulator"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "Path to config.yaml")
	version := flag.Bool("version", false, "Print version and exit")
	_ = flag.Bool("nodisp", false, "Suppress the live status pane (unused: the Simulator has no status pane of its own to suppress; occupancy/billing live in the Manager)")
	flag.Parse()

	if *version {
		fmt.Printf("parkctl-simulator %s (commit=%s built=%s)\n",
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

	log.Info("simulator starting",
		zap.String("version", config.Version),
		zap.String("config", *configPath),
		zap.String("shm_name", cfg.Garage.SHMName),
		zap.Int("num_entrances", cfg.Garage.NumEntrances),
		zap.Int("num_exits", cfg.Garage.NumExits),
		zap.Int("num_levels", cfg.Garage.NumLevels),
	)

	// ── Step 3: Create shared memory ──────────────────────────────────
	layout := shm.Layout{
		NumEntrances: cfg.Garage.NumEntrances,
		NumExits:     cfg.Garage.NumExits,
		NumLevels:    cfg.Garage.NumLevels,
	}
	region, err := shm.CreateReal(cfg.Garage.SHMName, layout)
	if err != nil {
		log.Fatal("failed to create shared-memory region", zap.Error(err))
	}
	log.Info("shared-memory region created", zap.String("name", cfg.Garage.SHMName), zap.Int("bytes", layout.Size()))

	// ── Step 4: Load plate allow-list ─────────────────────────────────
	allowList, err := platefile.Load(cfg.Files.PlatesPath)
	if err != nil {
		log.Fatal("failed to load plate allow-list", zap.Error(err), zap.String("path", cfg.Files.PlatesPath))
	}
	log.Info("plate allow-list loaded", zap.Int("count", len(allowList)))

	// ── Step 5: Metrics server ─────────────────────────────────────────
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

	// ── Step 6: Wire and start the Simulator ──────────────────────────
	sim := simulator.New(simulator.Params{
		Region:        region,
		AllowList:     allowList,
		TimeFactor:    cfg.Garage.TimeFactor,
		MinDwellMS:    100,
		MaxDwellMS:    10000,
		LevelCapacity: cfg.Garage.LevelCapacity,
		Seed:          time.Now().UnixNano(),
		Metrics:       metrics,
		Log:           log,
	})
	carGenPeriod := time.Duration(200*cfg.Garage.TimeFactor) * time.Millisecond
	sim.Start(carGenPeriod)
	log.Info("simulator running")

	// ── Step 7: Keyboard ───────────────────────────────────────────────
	// Interactive keys (spec.md §6): q graceful quit, f fixed-temp fire,
	// r rate-of-rise fire, s stop fire. Not a terminal: kb.Keys() just
	// never fires and shutdown proceeds on signal only.
	kb, err := keyboard.New(log)
	if err != nil {
		log.Warn("keyboard reader unavailable, interactive keys disabled", zap.Error(err))
	}

	quitCh := make(chan struct{})
	if kb != nil {
		go func() {
			for key := range kb.Keys() {
				switch key {
				case 'q':
					close(quitCh)
					return
				case 'f':
					for i := 0; i < cfg.Garage.NumLevels; i++ {
						sim.TemperatureSimulator().SetMode(i, simulator.FireModeFixed)
					}
					log.Info("debug keypress: fixed-temp fire mode engaged")
				case 'r':
					for i := 0; i < cfg.Garage.NumLevels; i++ {
						sim.TemperatureSimulator().SetMode(i, simulator.FireModeROR)
					}
					log.Info("debug keypress: rate-of-rise fire mode engaged")
				case 's':
					for i := 0; i < cfg.Garage.NumLevels; i++ {
						sim.TemperatureSimulator().SetMode(i, simulator.FireModeOff)
					}
					log.Info("debug keypress: fire mode stopped")
				}
			}
		}()
	}

	// ── Step 8: Wait for shutdown signal ──────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-quitCh:
		log.Info("shutdown requested via keyboard")
	}

	if kb != nil {
		if err := kb.Close(); err != nil {
			log.Warn("keyboard reader close error", zap.Error(err))
		}
	}

	sim.Shutdown()
	log.Info("simulator workers joined")

	if err := region.Destroy(); err != nil {
		log.Error("failed to destroy shared-memory region", zap.Error(err))
	} else {
		log.Info("shared-memory region destroyed")
	}

	log.Info("simulator shutdown complete")
}
