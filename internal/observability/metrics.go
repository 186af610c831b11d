// Package observability — metrics.go
//
// Prometheus metrics for the parking garage processes (simulator, manager,
// firealarm).
//
// Endpoint: GET /metrics on 127.0.0.1:9090 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
// Bind: loopback by default; the configured address is used as given.
//
// Metric naming convention: parkctl_<subsystem>_<name>_<unit>
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions if multiple processes were
// ever instrumented from the same binary in tests.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric descriptors for the parking garage.
// Not every process populates every field — the simulator never admits
// cars, for example — each binary's main() only touches the metrics it
// owns.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Admission (Manager) ─────────────────────────────────────────────────

	// AdmissionsTotal counts entry decisions, by outcome (admitted,
	// rejected_unknown, rejected_reentry, rejected_full, rejected_alarm).
	AdmissionsTotal *prometheus.CounterVec

	// LevelOccupancy is the current occupancy of each level.
	// Labels: level (0-indexed as a string).
	LevelOccupancy *prometheus.GaugeVec

	// GateTransitionsTotal counts boomgate state transitions.
	// Labels: gate_kind (entrance, exit), to_state.
	GateTransitionsTotal *prometheus.CounterVec

	// ─── Billing (Manager) ───────────────────────────────────────────────────

	// BillingTotalDollars is the running total billed across all exits.
	BillingTotalDollars prometheus.Counter

	// BillingEntriesTotal counts completed billing entries written.
	BillingEntriesTotal prometheus.Counter

	// BillingMissingTotal counts exits with no matching entry timestamp
	// (spec.md §7 MissingBillingEntry).
	BillingMissingTotal prometheus.Counter

	// ─── Cars (Simulator) ────────────────────────────────────────────────────

	// CarsActive is the current number of live car worker goroutines.
	CarsActive prometheus.Gauge

	// CarsDispatchedTotal counts cars dispatched into the car pool.
	CarsDispatchedTotal prometheus.Counter

	// ─── Temperature / alarm (Simulator + FireAlarm) ─────────────────────────

	// LevelTemperatureCelsius is the last simulated temperature per level.
	LevelTemperatureCelsius *prometheus.GaugeVec

	// AlarmActive is 1 if the fire alarm is currently active, else 0.
	AlarmActive prometheus.Gauge

	// AlarmTransitionsTotal counts alarm activations/deactivations.
	// Labels: to (active, inactive).
	AlarmTransitionsTotal *prometheus.CounterVec

	// ─── Process ──────────────────────────────────────────────────────────────

	// UptimeSeconds is the number of seconds since this process started.
	UptimeSeconds prometheus.Gauge

	// startTime records when the process started (for uptime calculation).
	startTime time.Time
}

// NewMetrics creates and registers all parking-garage Prometheus metrics.
// Returns a *Metrics with all descriptors initialised.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		AdmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkctl",
			Subsystem: "admission",
			Name:      "total",
			Help:      "Total entry admission decisions, by outcome.",
		}, []string{"outcome"}),

		LevelOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parkctl",
			Subsystem: "level",
			Name:      "occupancy",
			Help:      "Current occupancy of each level.",
		}, []string{"level"}),

		GateTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkctl",
			Subsystem: "gate",
			Name:      "transitions_total",
			Help:      "Total boomgate state transitions, by gate kind and target state.",
		}, []string{"gate_kind", "to_state"}),

		BillingTotalDollars: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parkctl",
			Subsystem: "billing",
			Name:      "total_dollars",
			Help:      "Running total billed across all exits, in dollars.",
		}),

		BillingEntriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parkctl",
			Subsystem: "billing",
			Name:      "entries_total",
			Help:      "Total billing log entries written.",
		}),

		BillingMissingTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parkctl",
			Subsystem: "billing",
			Name:      "missing_total",
			Help:      "Total exits with no matching billing entry timestamp.",
		}),

		CarsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parkctl",
			Subsystem: "cars",
			Name:      "active",
			Help:      "Current number of live car worker goroutines.",
		}),

		CarsDispatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parkctl",
			Subsystem: "cars",
			Name:      "dispatched_total",
			Help:      "Total cars dispatched into the car pool.",
		}),

		LevelTemperatureCelsius: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parkctl",
			Subsystem: "level",
			Name:      "temperature_celsius",
			Help:      "Last simulated temperature per level, in Celsius.",
		}, []string{"level"}),

		AlarmActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parkctl",
			Subsystem: "alarm",
			Name:      "active",
			Help:      "1 if the fire alarm is currently active, else 0.",
		}),

		AlarmTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkctl",
			Subsystem: "alarm",
			Name:      "transitions_total",
			Help:      "Total alarm state edge transitions.",
		}, []string{"to"}),

		UptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parkctl",
			Subsystem: "process",
			Name:      "uptime_seconds",
			Help:      "Number of seconds since this process started.",
		}),
	}

	// Register all metrics with the dedicated registry.
	reg.MustRegister(
		m.AdmissionsTotal,
		m.LevelOccupancy,
		m.GateTransitionsTotal,
		m.BillingTotalDollars,
		m.BillingEntriesTotal,
		m.BillingMissingTotal,
		m.CarsActive,
		m.CarsDispatchedTotal,
		m.LevelTemperatureCelsius,
		m.AlarmActive,
		m.AlarmTransitionsTotal,
		m.UptimeSeconds,
		// Standard Go runtime metrics.
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ServeMetrics starts the Prometheus HTTP metrics server on the given
// address. Blocks until ctx is cancelled or the server fails.
// The server binds to addr (e.g., "127.0.0.1:9090") and serves GET /metrics.
// An empty addr disables the server entirely; ServeMetrics returns nil
// immediately without binding anything.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

// updateUptime periodically updates the UptimeSeconds gauge.
func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.UptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
