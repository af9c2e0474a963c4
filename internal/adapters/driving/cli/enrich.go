package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driving"
)

var (
	enrichType      string
	enrichProviders []string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <artifact>",
	Short: "Look up an artifact across providers",
	Long: `Looks up one artifact with every agent provider that supports its type,
or only the providers named with --provider. Prints one JSON result per
provider. A provider that could not be asked is reported with an error
rather than omitted.

Examples:
  sercha-intel enrich 203.0.113.7 --type ip
  sercha-intel enrich example.org --type domain --provider otx,urlhaus`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichType, "type", "t", "", "artifact type: ip, domain, hash or url (required)")
	enrichCmd.Flags().StringSliceVarP(&enrichProviders, "provider", "p", nil, "providers to ask (default: all supporting the type)")
	_ = enrichCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(enrichCmd)
}

// outcomeView is the JSON shape of one provider result.
type outcomeView struct {
	Provider   string         `json:"provider"`
	Available  bool           `json:"available"`
	Record     *domain.Record `json:"record,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorClass string         `json:"error_class,omitempty"`
	Attempts   int            `json:"attempts"`
	DurationMS int64          `json:"duration_ms"`
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if enrichService == nil {
		return errors.New("enrichment service not configured")
	}

	t, err := domain.ParseArtifactType(enrichType)
	if err != nil {
		return err
	}
	artifact, err := domain.NewArtifact(args[0], t)
	if err != nil {
		return err
	}

	outcomes, err := enrichService.Enrich(commandContext(cmd), artifact, enrichProviders...)
	if err != nil {
		return fmt.Errorf("enrich %s: %w", artifact, err)
	}

	views := make([]outcomeView, 0, len(outcomes))
	unavailable := 0
	for _, o := range outcomes {
		views = append(views, newOutcomeView(o))
		if o.Unavailable() {
			unavailable++
		}
	}
	if err := writeJSON(cmd.OutOrStdout(), views); err != nil {
		return err
	}

	if unavailable > 0 && unavailable == len(outcomes) {
		return fmt.Errorf("enrichment unavailable for all %d providers", unavailable)
	}
	return nil
}

func newOutcomeView(o driving.Outcome) outcomeView {
	v := outcomeView{
		Provider:   o.Provider,
		Available:  !o.Unavailable(),
		Record:     o.Record,
		Attempts:   o.Attempts,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		v.Error = fmt.Sprintf("enrichment unavailable for provider %s: %v", o.Provider, o.Err)
		switch {
		case domain.IsTransient(o.Err):
			v.ErrorClass = "transient"
		case domain.IsPermanent(o.Err):
			v.ErrorClass = "permanent"
		}
	}
	return v
}
