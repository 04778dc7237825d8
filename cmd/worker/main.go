/*
Command worker is a stateless poll loop against a dealer: it asks for
work, probes whatever it is handed, and reports the outcome back. It
exists to exercise the wire protocol end to end (spec.md §1 "Worker"),
not to provide real STUN/TURN/MQTT/NTP clients — see prober.go. Alias
rows are resolved for real through pkg/dns. The cobra root-command/signal-handling shape is grounded on
cmd/warren/main.go's workerStartCmd.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/netwatch/pkg/client"
	"github.com/cuemby/netwatch/pkg/dns"
	"github.com/cuemby/netwatch/pkg/log"
	"github.com/cuemby/netwatch/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var resolver = dns.NewResolver(nil)

var (
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "worker",
	Short:   "netwatch worker - probes servers on behalf of a dealer",
	Version: Version,
	RunE:    runWorker,
}

func init() {
	rootCmd.Flags().String("dealer-addr", "http://127.0.0.1:8080", "Base URL of the dealer's HTTP surface")
	rootCmd.Flags().String("stack-type", "dual", "Address family this worker can reach (v4, v6, or dual)")
	rootCmd.Flags().Int("poll-interval-seconds", 10, "Seconds to wait between /work polls")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", false, "Output logs in JSON format")
}

func runWorker(cmd *cobra.Command, args []string) error {
	dealerAddr, _ := cmd.Flags().GetString("dealer-addr")
	stackType, _ := cmd.Flags().GetString("stack-type")
	pollInterval, _ := cmd.Flags().GetInt("poll-interval-seconds")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
	logger := log.WithComponent("worker")

	c := client.NewWorkClient(dealerAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	logger.Info().Str("dealer", dealerAddr).Str("stack_type", stackType).Msg("worker starting")

	ticker := time.NewTicker(time.Duration(pollInterval) * time.Second)
	defer ticker.Stop()

	for {
		pollOnce(ctx, c, logger, stackType)

		select {
		case <-ctx.Done():
			logger.Info().Msg("worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func pollOnce(ctx context.Context, c *client.WorkClient, logger zerolog.Logger, stackType string) {
	items, err := c.FetchWork(ctx, stackType, "")
	if err != nil {
		logger.Warn().Err(err).Msg("fetching work failed")
		return
	}
	if len(items) == 0 {
		return
	}
	logger.Info().Int("count", len(items)).Msg("received work")

	for _, item := range items {
		handleItem(ctx, c, logger, item)
	}
}

func handleItem(ctx context.Context, c *client.WorkClient, logger zerolog.Logger, item client.WorkItem) {
	switch classifyRow(item) {
	case rowAlias:
		fqn, _ := item["fqn"].(string)
		afStr, _ := item["af"].(string)
		aliasID, ok := idOf(item)
		if fqn == "" || !ok {
			return
		}

		ip, err := resolver.Resolve(fqn, types.AddressFamily(afStr))
		if err != nil {
			logger.Debug().Err(err).Str("fqn", fqn).Msg("alias resolution failed")
			return
		}
		if err := c.UpdateAlias(ctx, aliasID, ip); err != nil {
			logger.Warn().Err(err).Str("fqn", fqn).Msg("reporting resolved alias failed")
		}

	case rowImport:
		statusID, ok := statusIDOf(item)
		if !ok {
			return
		}
		importType, _ := item["import_type"].(string)
		prober := proberFor(importType)

		groups, err := prober.ProbeImport(ctx, item)
		if err != nil {
			logger.Debug().Err(err).Uint64("status_id", statusID).Msg("import probe failed")
			reportComplete(ctx, c, logger, statusID, false)
			return
		}
		if err := c.InsertServices(ctx, groups, statusID); err != nil {
			logger.Warn().Err(err).Uint64("status_id", statusID).Msg("reporting discovered services failed")
		}

	case rowService:
		statusID, ok := statusIDOf(item)
		if !ok {
			return
		}
		serviceType, _ := item["type"].(string)
		prober := proberFor(serviceType)

		ok, err := prober.Probe(ctx, item)
		if err != nil {
			logger.Debug().Err(err).Uint64("status_id", statusID).Msg("probe failed")
		}
		reportComplete(ctx, c, logger, statusID, ok)
	}
}

func reportComplete(ctx context.Context, c *client.WorkClient, logger zerolog.Logger, statusID uint64, isSuccess bool) {
	entry := client.CompleteEntry{StatusID: statusID, IsSuccess: isSuccess}
	if err := c.ReportComplete(ctx, []client.CompleteEntry{entry}); err != nil {
		logger.Warn().Err(err).Uint64("status_id", statusID).Msg("reporting completion failed")
	}
}

type rowKind int

const (
	rowUnknown rowKind = iota
	rowAlias
	rowImport
	rowService
)

// classifyRow duck-types a /work row by the keys present on it, since the
// wire protocol returns Alias, Import, and Service rows interleaved in one
// untyped array (spec.md §9 "duck-typed rows").
func classifyRow(item client.WorkItem) rowKind {
	if _, ok := item["fqn"]; ok {
		return rowAlias
	}
	if _, ok := item["import_type"]; ok {
		return rowImport
	}
	if _, ok := item["type"]; ok {
		return rowService
	}
	return rowUnknown
}

func statusIDOf(item client.WorkItem) (uint64, bool) {
	return numField(item, "status_id")
}

func idOf(item client.WorkItem) (uint64, bool) {
	return numField(item, "id")
}

func numField(item client.WorkItem, key string) (uint64, bool) {
	v, ok := item[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return uint64(f), true
}
