// Package config provides configuration loading, validation, and defaults
// for the parking garage coordination system.
//
// Configuration file: ./config.yaml (default, overridable with -config)
// Schema version: 1
//
// Validation:
//   - All required fields must be present.
//   - Numeric ranges enforced (entrance/exit/level counts, capacity,
//     time factor, cost).
//   - Invalid config on startup: the process refuses to start (fatal
//     error, per spec.md §7 InitializationFailure).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version, GitCommit, BuildTime can be overridden at build time with
// -ldflags "-X ...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root configuration structure shared by all three
// processes (simulator, manager, firealarm). Each binary only reads the
// sections it needs, but all three must agree on Garage — the layout it
// describes is baked into the shared-memory region every process maps.
type Config struct {
	// SchemaVersion must be "1".
	SchemaVersion string `yaml:"schema_version"`

	// Garage configures the shared-memory layout and simulation constants.
	// These numbers are fixed for the lifetime of a run: changing them
	// between Simulator startup and Manager/FireAlarm startup produces a
	// shared region the other processes don't agree on.
	Garage GarageConfig `yaml:"garage"`

	// Files configures the plate allow-list and billing log paths.
	Files FilesConfig `yaml:"files"`

	// Observability configures metrics and logging.
	Observability ObservabilityConfig `yaml:"observability"`

	// Operator configures the Manager's read-only admin socket.
	Operator OperatorConfig `yaml:"operator"`
}

// GarageConfig holds the compile-time constants from spec.md §6.
type GarageConfig struct {
	// SHMName is the name of the shared-memory object. Default: "PARKING".
	SHMName string `yaml:"shm_name"`

	// NumEntrances is N_ENT. Default: 5.
	NumEntrances int `yaml:"num_entrances"`

	// NumExits is N_EXIT. Default: 5.
	NumExits int `yaml:"num_exits"`

	// NumLevels is N_LVL. Default: 5.
	NumLevels int `yaml:"num_levels"`

	// LevelCapacity is the maximum number of cars per level. Default: 20.
	LevelCapacity int `yaml:"level_capacity"`

	// TimeFactor scales every simulated millisecond delay. Default: 50.
	TimeFactor int `yaml:"time_factor"`

	// CostPerMS is the dollar cost charged per millisecond of (unscaled)
	// dwell time. Default: 0.05.
	CostPerMS float64 `yaml:"cost_per_ms"`
}

// FilesConfig holds file-based collaborator paths.
type FilesConfig struct {
	// PlatesPath is the allow-list file, one 6-character plate per line.
	// Default: ./plates.txt.
	PlatesPath string `yaml:"plates_path"`

	// BillingPath is the append-only billing log.
	// Default: ./billing.txt.
	BillingPath string `yaml:"billing_path"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address.
	// Empty disables the metrics server. Default: 127.0.0.1:9090.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	// Default: info.
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	// Default: console.
	LogFormat string `yaml:"log_format"`
}

// OperatorConfig holds the Manager's admin-socket parameters.
type OperatorConfig struct {
	// Enabled controls whether the admin socket is active. Default: false
	// (opt-in — most runs, including every test, don't need it).
	Enabled bool `yaml:"enabled"`

	// SocketPath is the Unix domain socket path.
	// Default: /tmp/parkctl-manager.sock.
	SocketPath string `yaml:"socket_path"`
}

// Defaults returns a Config populated with all default values, matching
// the constants in original_source/src/config.h.
func Defaults() Config {
	return Config{
		SchemaVersion: "1",
		Garage: GarageConfig{
			SHMName:       "PARKING",
			NumEntrances:  5,
			NumExits:      5,
			NumLevels:     5,
			LevelCapacity: 20,
			TimeFactor:    50,
			CostPerMS:     0.05,
		},
		Files: FilesConfig{
			PlatesPath:  "./plates.txt",
			BillingPath: "./billing.txt",
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9090",
			LogLevel:    "info",
			LogFormat:   "console",
		},
		Operator: OperatorConfig{
			Enabled:    false,
			SocketPath: "/tmp/parkctl-manager.sock",
		},
	}
}

// Load reads and validates a config file from the given path.
// Returns the merged config (defaults overridden by file values).
// A missing file is not an error — Defaults() alone is a valid config —
// but a malformed or invalid one is.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks all config fields for correctness.
// Returns a descriptive error listing all violations found.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	if cfg.Garage.SHMName == "" {
		errs = append(errs, "garage.shm_name must not be empty")
	}
	if cfg.Garage.NumEntrances < 1 {
		errs = append(errs, fmt.Sprintf("garage.num_entrances must be >= 1, got %d", cfg.Garage.NumEntrances))
	}
	if cfg.Garage.NumExits < 1 {
		errs = append(errs, fmt.Sprintf("garage.num_exits must be >= 1, got %d", cfg.Garage.NumExits))
	}
	if cfg.Garage.NumLevels < 1 {
		errs = append(errs, fmt.Sprintf("garage.num_levels must be >= 1, got %d", cfg.Garage.NumLevels))
	}
	if cfg.Garage.LevelCapacity < 1 {
		errs = append(errs, fmt.Sprintf("garage.level_capacity must be >= 1, got %d", cfg.Garage.LevelCapacity))
	}
	if cfg.Garage.TimeFactor < 1 {
		errs = append(errs, fmt.Sprintf("garage.time_factor must be >= 1, got %d", cfg.Garage.TimeFactor))
	}
	if cfg.Garage.CostPerMS < 0 {
		errs = append(errs, fmt.Sprintf("garage.cost_per_ms must be >= 0, got %f", cfg.Garage.CostPerMS))
	}
	if cfg.Files.PlatesPath == "" {
		errs = append(errs, "files.plates_path must not be empty")
	}
	if cfg.Files.BillingPath == "" {
		errs = append(errs, "files.billing_path must not be empty")
	}
	if cfg.Operator.Enabled && cfg.Operator.SocketPath == "" {
		errs = append(errs, "operator.socket_path must not be empty when operator.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s",
			joinStrings(errs, "\n  - "))
	}
	return nil
}

// TimeFactorDuration scales a base millisecond delay by the configured
// TimeFactor, returning a time.Duration ready for time.Sleep.
func (g GarageConfig) TimeFactorDuration(baseMS int) time.Duration {
	return time.Duration(baseMS*g.TimeFactor) * time.Millisecond
}

// joinStrings joins a slice of strings with a separator.
func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}
