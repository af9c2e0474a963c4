package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [provider]",
	Short: "Pull IOC feeds from data providers",
	Long: `Pulls feed records from data providers and advances their watermarks.
If a provider is given, only that feed is pulled. Otherwise, every data
provider is pulled in name order and failures do not stop the rest.

A watermark only advances after the records were delivered, so a failed
run is repeated from the same point next time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if feedSync == nil {
		return errors.New("sync service not configured")
	}

	ctx := commandContext(cmd)

	if len(args) > 0 {
		provider := args[0]
		cmd.Printf("Syncing feed: %s...\n", provider)

		report, err := feedSync.Sync(ctx, provider)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printSyncReport(cmd, report)
		return nil
	}

	cmd.Println("Syncing all feeds...")
	reports, err := feedSync.SyncAll(ctx)
	for i := range reports {
		printSyncReport(cmd, &reports[i])
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Printf("%d feeds synced successfully.\n", len(reports))
	return nil
}

func printSyncReport(cmd *cobra.Command, r *driving.SyncReport) {
	mode := "incremental"
	if r.Bootstrap {
		mode = "bootstrap"
	}
	cmd.Printf("  %s: %d records, %d delivered (%s), watermark %s\n",
		r.Provider, r.Records, r.Delivered, mode, r.Watermark)
}
