/*
Package config loads the dealer's runtime configuration: a
YAML file, parsed with gopkg.in/yaml.v3 the way cmd/warren/apply.go
parses manifests, whose values are then overridable by cobra flags
(spec.md §6 "Constants" plus the ambient data-directory/bind-address/
seed-directory settings a real deployment needs).

Precedence is file < flags: Load reads the YAML file (if given) into a
Config seeded with Defaults, then BindFlags/FromFlags layers any flag the
caller actually passed on top.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/netwatch/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables for cmd/dealer (cmd/worker defines
// its own flags). WorkerTimeoutSeconds, MonitorFrequencySeconds,
// MaxServerDowntimeSeconds and ImportTestNo are loaded and overridable
// here, but cmd/dealer does not pass them on: the scheduler and API
// surface use the fixed values in pkg/types.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	BindAddr string `yaml:"bind_addr"`
	SeedDir  string `yaml:"seed_dir"`

	WorkerTimeoutSeconds     int64 `yaml:"worker_timeout_seconds"`
	MonitorFrequencySeconds  int64 `yaml:"monitor_frequency_seconds"`
	MaxServerDowntimeSeconds int64 `yaml:"max_server_downtime_seconds"`
	ImportTestNo             int64 `yaml:"import_test_no"`
	CatalogueRefreshSeconds  int64 `yaml:"catalogue_refresh_seconds"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Defaults returns the configuration spec.md §6's constants describe,
// with a conservative data/bind/seed layout for a single-node deployment.
func Defaults() Config {
	return Config{
		DataDir:  "./netwatch-data",
		BindAddr: "127.0.0.1:8080",
		SeedDir:  "./seed",

		WorkerTimeoutSeconds:     types.WorkerTimeoutSeconds,
		MonitorFrequencySeconds:  types.MonitorFrequencySeconds,
		MaxServerDowntimeSeconds: types.MaxServerDowntimeSeconds,
		ImportTestNo:             types.ImportTestNo,
		CatalogueRefreshSeconds:  int64(types.CatalogueRefreshInterval / time.Second),

		LogLevel: "info",
		LogJSON:  false,
	}
}

// Load reads path (if non-empty) as YAML over top of Defaults. A missing
// file is not an error when path is empty (no config file was requested);
// an explicitly named but unreadable file is.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// CatalogueRefreshInterval is the parsed duration form of
// CatalogueRefreshSeconds, for handing straight to catalogue.New.
func (c Config) CatalogueRefreshInterval() time.Duration {
	return time.Duration(c.CatalogueRefreshSeconds) * time.Second
}

// BindFlags registers every Config field as a persistent flag on cmd,
// defaulted from d, in the style of cmd/warren/main.go's
// PersistentFlags block.
func BindFlags(cmd *cobra.Command, d Config) {
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("data-dir", d.DataDir, "Directory for the durable snapshot database")
	cmd.PersistentFlags().String("bind-addr", d.BindAddr, "Address the HTTP surface listens on")
	cmd.PersistentFlags().String("seed-dir", d.SeedDir, "Directory of CSV seed files merged at startup")
	cmd.PersistentFlags().Int64("worker-timeout-seconds", d.WorkerTimeoutSeconds, "Seconds before a dealt group is reclaimed")
	cmd.PersistentFlags().Int64("monitor-frequency-seconds", d.MonitorFrequencySeconds, "Seconds between re-checks of an available group")
	cmd.PersistentFlags().Int64("max-server-downtime-seconds", d.MaxServerDowntimeSeconds, "Downtime threshold before an alias cascade overwrites a row's IP")
	cmd.PersistentFlags().Int64("import-test-no", d.ImportTestNo, "Test attempts before an import is disabled")
	cmd.PersistentFlags().Int64("catalogue-refresh-seconds", d.CatalogueRefreshSeconds, "Seconds between catalogue rebuilds")
	cmd.PersistentFlags().String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("log-json", d.LogJSON, "Output logs in JSON format")
}

// FromFlags overlays every flag the user actually set (cmd.Flags().Changed)
// onto cfg, so an unset flag never clobbers a value already loaded from
// a config file.
func FromFlags(cmd *cobra.Command, cfg Config) Config {
	flags := cmd.Flags()

	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("bind-addr") {
		cfg.BindAddr, _ = flags.GetString("bind-addr")
	}
	if flags.Changed("seed-dir") {
		cfg.SeedDir, _ = flags.GetString("seed-dir")
	}
	if flags.Changed("worker-timeout-seconds") {
		cfg.WorkerTimeoutSeconds, _ = flags.GetInt64("worker-timeout-seconds")
	}
	if flags.Changed("monitor-frequency-seconds") {
		cfg.MonitorFrequencySeconds, _ = flags.GetInt64("monitor-frequency-seconds")
	}
	if flags.Changed("max-server-downtime-seconds") {
		cfg.MaxServerDowntimeSeconds, _ = flags.GetInt64("max-server-downtime-seconds")
	}
	if flags.Changed("import-test-no") {
		cfg.ImportTestNo, _ = flags.GetInt64("import-test-no")
	}
	if flags.Changed("catalogue-refresh-seconds") {
		cfg.CatalogueRefreshSeconds, _ = flags.GetInt64("catalogue-refresh-seconds")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.LogJSON, _ = flags.GetBool("log-json")
	}
	return cfg
}
