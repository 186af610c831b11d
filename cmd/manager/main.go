// Package main — cmd/manager/main.go
//
// Manager process entrypoint.
//
// Startup sequence:
//  1. Load and validate config from ./config.yaml (or -config).
//  2. Initialise structured logger (zap).
//  3. Open the shared-memory region created by the Simulator (retries
//     briefly — the Simulator may still be starting up).
//  4. Load the plate allow-list.
//  5. Start the Prometheus metrics server.
//  6. Wire the Manager's controllers and start their goroutines.
//  7. Start the admin socket, if enabled.
//  8. Start the live status dashboard, unless -nodisp.
//  9. Start the keyboard reader (independent q quit key).
//  10. Block on SIGINT/SIGTERM or the keyboard's q key for graceful
//      shutdown.
//
// Shutdown sequence (SIGINT/SIGTERM or q):
//  1. Manager.Shutdown(): broadcast on every channel, join controller
//     goroutines, close the billing ledger.
//  2. Close (not destroy) the shared-memory region — the Simulator owns
//     destruction.
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

	"github.com/parkctl/parkctl/internal/adminsock"
	"github.com/parkctl/parkctl/internal/config"
	"github.com/parkctl/parkctl/internal/dashboard"
	"github.com/parkctl/parkctl/internal/keyboard"
	"github.com/parkctl/parkctl/internal/logging"
	"github.com/parkctl/parkctl/internal/manager"
	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/platefile"
	"github.com/parkctl/parkctl/internal/shm"
)

// openRegionWithRetry opens the Simulator-created shared-memory region,
// retrying briefly in case the Manager wins the startup race.
func openRegionWithRetry(name string, layout shm.Layout, log *zap.Logger) (*shm.Region, error) {
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		region, err := shm.OpenReal(name, layout)
		if err == nil {
			return region, nil
		}
		lastErr = err
		if attempt == 0 {
			log.Info("shared-memory region not yet available, retrying", zap.String("name", name))
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil, lastErr
}

func main() {
	configPath := flag.String("config", "./config.yaml", "Path to config.yaml")
	version := flag.Bool("version", false, "Print version and exit")
	nodisp := flag.Bool("nodisp", false, "Suppress the live status pane")
	flag.Parse()

	if *version {
		fmt.Printf("parkctl-manager %s (commit=%s built=%s)\n",
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

	log.Info("manager starting",
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
	region, err := openRegionWithRetry(cfg.Garage.SHMName, layout, log)
	if err != nil {
		log.Fatal("failed to open shared-memory region", zap.Error(err))
	}
	log.Info("shared-memory region opened", zap.String("name", cfg.Garage.SHMName))

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

	// ── Step 6: Wire and start the Manager ────────────────────────────
	mgr, err := manager.New(manager.Params{
		Region:        region,
		AllowList:     allowList,
		TimeFactor:    cfg.Garage.TimeFactor,
		CostPerMS:     cfg.Garage.CostPerMS,
		LevelCapacity: cfg.Garage.LevelCapacity,
		BillingPath:   cfg.Files.BillingPath,
		Metrics:       metrics,
		Log:           log,
	})
	if err != nil {
		log.Fatal("failed to wire manager", zap.Error(err))
	}
	mgr.Start()
	log.Info("manager running")

	// ── Step 7: Admin socket ───────────────────────────────────────────
	var adminSrv *adminsock.Server
	if cfg.Operator.Enabled {
		adminSrv = adminsock.NewServer(cfg.Operator.SocketPath, mgr, log)
		if err := adminSrv.Start(); err != nil {
			log.Error("admin socket failed to start", zap.Error(err))
			adminSrv = nil
		} else {
			log.Info("admin socket listening", zap.String("path", cfg.Operator.SocketPath))
		}
	}

	// ── Step 8: Status dashboard ───────────────────────────────────────
	var dash *dashboard.Dashboard
	if !*nodisp {
		dash = dashboard.New(mgr, os.Stdout, cfg.Garage.TimeFactorDuration(500))
		dash.Start()
	}

	// ── Step 9: Keyboard ───────────────────────────────────────────────
	// The Manager quits independently on its own q keystroke, after the
	// Simulator has drained (spec.md §6).
	kb, err := keyboard.New(log)
	if err != nil {
		log.Warn("keyboard reader unavailable, interactive keys disabled", zap.Error(err))
	}

	quitCh := make(chan struct{})
	if kb != nil {
		go func() {
			for key := range kb.Keys() {
				if key == 'q' {
					close(quitCh)
					return
				}
			}
		}()
	}

	// ── Step 10: Wait for shutdown signal ─────────────────────────────
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

	if dash != nil {
		dash.Stop()
	}

	if adminSrv != nil {
		adminSrv.Stop()
	}

	if err := mgr.Shutdown(); err != nil {
		log.Error("manager shutdown reported an error", zap.Error(err))
	}
	log.Info("manager controllers joined")

	if err := region.Close(); err != nil {
		log.Error("failed to close shared-memory region", zap.Error(err))
	}

	log.Info("manager shutdown complete")
}
