// Package cli provides the sercha-intel command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-intel/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
)

// Services wired by the application before a command runs.
var (
	registry        driving.ConnectorRegistry
	enrichService   driving.EnrichmentService
	feedSync        driving.FeedSyncOrchestrator
	scheduler       driving.Scheduler
	settingsService driving.SettingsService
	recordService   driving.RecordService
	credentials     CredentialInspector
)

// CredentialInspector reports whether a provider has credentials without
// exposing them.
type CredentialInspector interface {
	Configured(ctx context.Context, provider string) bool
	APIKeyVar(provider string) string
}

// Services groups everything a command may need.
type Services struct {
	Registry    driving.ConnectorRegistry
	Enrichment  driving.EnrichmentService
	FeedSync    driving.FeedSyncOrchestrator
	Scheduler   driving.Scheduler
	Settings    driving.SettingsService
	Records     driving.RecordService
	Credentials CredentialInspector

	// Close releases storage handles. May be nil.
	Close func() error
}

// Options are the global flag values handed to the bootstrap function.
type Options struct {
	ConfigDir string
	Verbose   bool
}

// BootstrapFunc builds the services once flags are parsed.
type BootstrapFunc func(opts Options) (*Services, error)

var (
	bootstrap BootstrapFunc
	closer    func() error
)

// skipBootstrap marks commands that need no services.
const skipBootstrap = "skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "sercha-intel",
	Short: "Threat-intelligence enrichment and feed sync",
	Long: `sercha-intel looks up network artifacts (IPs, domains, hashes, URLs)
across threat-intelligence providers and keeps bulk IOC feeds in sync.

Every provider answer is normalised into one record shape with a
risk score between 0 and 100.

Provider API keys are read from SERCHA_INTEL_<PROVIDER>_API_KEY.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.sercha-intel)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "JSON layout: auto, pretty or compact")
}

// SetBootstrap registers the function that wires services after flag parsing.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	registry = s.Registry
	enrichService = s.Enrichment
	feedSync = s.FeedSync
	scheduler = s.Scheduler
	settingsService = s.Settings
	recordService = s.Records
	credentials = s.Credentials
	closer = s.Close
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases services afterwards,
// including when the command failed.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := closeServices(); err == nil {
		err = closeErr
	}
	return err
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	switch outputFormat {
	case "auto", "pretty", "compact":
	default:
		return fmt.Errorf("invalid --output %q: want auto, pretty or compact", outputFormat)
	}

	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}
	services, err := bootstrap(Options{ConfigDir: configDir, Verbose: verbose})
	if err != nil {
		return err
	}
	SetServices(services)
	return nil
}

func closeServices() error {
	if closer == nil {
		return nil
	}
	err := closer()
	closer = nil
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
