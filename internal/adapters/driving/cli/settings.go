package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show effective settings",
	Long: `Shows the settings in effect after defaults are applied to config.toml.
API keys are never stored in settings; see "sercha-intel providers".`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	RunE:  runSettingsShow,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[HTTP]")
	cmd.Printf("  Timeout: %s\n", settings.HTTP.Timeout)
	cmd.Printf("  Rate: %g req/s (burst %d)\n", settings.HTTP.RatePerSecond, settings.HTTP.Burst)
	cmd.Printf("  Concurrency: %d\n", settings.HTTP.Concurrency)
	cmd.Printf("  User-Agent: %s\n", settings.HTTP.UserAgent)
	cmd.Println()

	cmd.Println("[Retry]")
	cmd.Printf("  Attempts: %d\n", settings.Retry.MaxAttempts)
	cmd.Printf("  Backoff: %s to %s\n", settings.Retry.InitialInterval, settings.Retry.MaxInterval)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	switch settings.Storage.Backend {
	case domain.StorageSQLite:
		dir := settings.Storage.DataDir
		if dir == "" {
			dir = "(default)"
		}
		cmd.Printf("  Data dir: %s\n", dir)
	case domain.StorageRedis:
		cmd.Printf("  Redis: %s db %d\n", settings.Storage.RedisAddr, settings.Storage.RedisDB)
	}
	cmd.Println()

	cmd.Println("[Scheduler]")
	cmd.Printf("  Enabled: %s\n", yesNo(settings.Scheduler.Enabled))
	cmd.Printf("  Interval: %s\n", settings.Scheduler.Interval)
	cmd.Println()

	cmd.Println("[Dedup]")
	cmd.Printf("  Enabled: %s\n", yesNo(settings.Dedup.Enabled))
	cmd.Printf("  Window: %d records\n", settings.Dedup.Size)
	cmd.Println()

	cmd.Println("[Providers]")
	if len(settings.Providers) == 0 {
		cmd.Println("  Enabled: all")
	} else {
		cmd.Printf("  Enabled: %s\n", strings.Join(settings.Providers, ", "))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
