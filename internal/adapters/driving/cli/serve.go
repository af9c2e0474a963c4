package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-intel/internal/logger"
	"github.com/custodia-labs/sercha-intel/internal/metrics"
)

var serveMetricsAddr string

// serveMetrics is replaceable in tests.
var serveMetrics = metrics.Serve

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the feed scheduler in the foreground",
	Long: `Runs the scheduler, which pulls every data provider on its interval and
records the outcome. Stops on SIGINT or SIGTERM after running pulls finish.

With --metrics-addr, Prometheus metrics are served at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "listen address for /metrics (e.g. :9464)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	g, ctx := errgroup.WithContext(commandContext(cmd))

	if serveMetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, serveMetricsAddr)
		})
	}

	g.Go(func() error {
		err := scheduler.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := g.Wait()
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("scheduler stop: %v", stopErr)
	}
	if err != nil {
		return err
	}
	cmd.Println("Scheduler stopped.")
	return nil
}
