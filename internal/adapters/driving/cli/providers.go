package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-intel/internal/core/domain"
)

var providersJSON bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered providers",
	Long: `Lists every registered connector with its kind, the artifact types it
handles and whether its API key is present in the environment.`,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "print descriptors as JSON")
	rootCmd.AddCommand(providersCmd)
}

// providerView is the JSON shape of one provider listing.
type providerView struct {
	Name          string   `json:"name"`
	DisplayName   string   `json:"display_name"`
	Kind          string   `json:"kind"`
	ArtifactTypes []string `json:"artifact_types"`
	RequiresAuth  bool     `json:"requires_auth"`
	Configured    bool     `json:"configured"`
	APIKeyVar     string   `json:"api_key_var,omitempty"`
	Description   string   `json:"description,omitempty"`
	DocsURL       string   `json:"docs_url,omitempty"`
}

func runProviders(cmd *cobra.Command, _ []string) error {
	if registry == nil {
		return errors.New("provider registry not configured")
	}
	ctx := commandContext(cmd)

	descriptors := registry.Descriptors()
	views := make([]providerView, 0, len(descriptors))
	for _, d := range descriptors {
		v := providerView{
			Name:          d.Name,
			DisplayName:   d.DisplayName,
			Kind:          string(d.Kind),
			ArtifactTypes: typeNames(d.ArtifactTypes),
			RequiresAuth:  d.RequiresAuth,
			Description:   d.Description,
			DocsURL:       d.DocsURL,
		}
		if credentials != nil && len(d.CredentialKeys) > 0 {
			v.Configured = credentials.Configured(ctx, d.Name)
			v.APIKeyVar = credentials.APIKeyVar(d.Name)
		}
		views = append(views, v)
	}

	if providersJSON {
		return writeJSON(cmd.OutOrStdout(), views)
	}

	if len(views) == 0 {
		cmd.Println("No providers registered.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tTYPES\tAUTH\tKEY")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.Name, v.Kind, strings.Join(v.ArtifactTypes, ","), authLabel(v), keyLabel(v))
	}
	return tw.Flush()
}

func typeNames(types []domain.ArtifactType) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.String())
	}
	return names
}

func authLabel(v providerView) string {
	switch {
	case v.RequiresAuth:
		return "required"
	case v.APIKeyVar != "":
		return "optional"
	default:
		return "none"
	}
}

func keyLabel(v providerView) string {
	switch {
	case v.APIKeyVar == "":
		return "-"
	case v.Configured:
		return "set"
	default:
		return "missing (" + v.APIKeyVar + ")"
	}
}
