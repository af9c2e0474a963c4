package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var watermarkCmd = &cobra.Command{
	Use:   "watermark",
	Short: "Inspect or reset feed watermarks",
}

var watermarkGetCmd = &cobra.Command{
	Use:   "get <provider>",
	Short: "Show the stored watermark for a feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatermarkGet,
}

var watermarkResetCmd = &cobra.Command{
	Use:   "reset <provider>",
	Short: "Delete the stored watermark so the next sync bootstraps",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatermarkReset,
}

func init() {
	watermarkCmd.AddCommand(watermarkGetCmd)
	watermarkCmd.AddCommand(watermarkResetCmd)
	rootCmd.AddCommand(watermarkCmd)
}

func runWatermarkGet(cmd *cobra.Command, args []string) error {
	if feedSync == nil {
		return errors.New("sync service not configured")
	}
	provider := args[0]

	status, err := feedSync.Status(commandContext(cmd), provider)
	if err != nil {
		return fmt.Errorf("get watermark: %w", err)
	}

	if status.Watermark.IsZero() {
		cmd.Printf("%s: no watermark (next sync bootstraps)\n", provider)
	} else {
		cmd.Printf("%s: %s\n", provider, status.Watermark)
	}
	if !status.LastSync.IsZero() {
		cmd.Printf("  last sync: %s\n", status.LastSync.UTC().Format(time.RFC3339))
	}
	if status.Running {
		cmd.Println("  sync in progress")
	}
	return nil
}

func runWatermarkReset(cmd *cobra.Command, args []string) error {
	if feedSync == nil {
		return errors.New("sync service not configured")
	}
	provider := args[0]

	if err := feedSync.Reset(commandContext(cmd), provider); err != nil {
		return fmt.Errorf("reset watermark: %w", err)
	}
	cmd.Printf("Watermark for %s reset.\n", provider)
	return nil
}
