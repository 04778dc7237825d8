/*
Command dealer is the authoritative, single-process network-monitoring
scheduler (spec.md §1-§2): it owns the in-memory database, hands out
probe work over HTTP, and durably snapshots itself once a minute. The
cobra root-command/persistent-flags/signal-handling shape is grounded on
cmd/warren/main.go.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/netwatch/pkg/api"
	"github.com/cuemby/netwatch/pkg/catalogue"
	"github.com/cuemby/netwatch/pkg/config"
	"github.com/cuemby/netwatch/pkg/log"
	"github.com/cuemby/netwatch/pkg/scheduler"
	"github.com/cuemby/netwatch/pkg/seed"
	"github.com/cuemby/netwatch/pkg/store"
	"github.com/cuemby/netwatch/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dealer",
	Short:   "netwatch dealer - network infrastructure monitoring scheduler",
	Version: Version,
	RunE:    runDealer,
}

func init() {
	config.BindFlags(rootCmd, config.Defaults())
}

func runDealer(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = config.FromFlags(cmd, cfg)

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	logger := log.WithComponent("dealer")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("dealer: creating data directory: %w", err)
	}

	db, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("dealer: opening durable store: %w", err)
	}
	defer db.Close()

	ms := store.New(nil)
	if err := db.Restore(ms); err != nil {
		return fmt.Errorf("dealer: restoring from snapshot: %w", err)
	}
	logger.Info().
		Int("aliases", len(ms.AllAliases())).
		Int("imports", len(ms.AllImports())).
		Int("services", len(ms.AllServices())).
		Msg("restored durable snapshot")

	if cfg.SeedDir != "" {
		if _, err := os.Stat(cfg.SeedDir); err == nil {
			if err := seed.MergeDir(ms, cfg.SeedDir); err != nil {
				logger.Error().Err(err).Msg("seed merge failed")
			}
		}
	}

	sched := scheduler.New(ms, nil)
	cat := catalogue.New(ms, db, cfg.CatalogueRefreshInterval())
	cat.Start()
	defer cat.Stop()

	surface := api.NewHTTPSurface(sched, cat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.BindAddr).Msg("starting http surface")
		errCh <- surface.Start(ctx, cfg.BindAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http surface exited")
		}
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
		cancel()
		<-errCh
	}

	logger.Info().Msg("writing final snapshot before exit")
	if err := db.Snapshot(ms); err != nil {
		logger.Error().Err(err).Msg("final snapshot failed")
		return err
	}
	return nil
}
