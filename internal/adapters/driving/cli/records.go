package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var recordsLimit int

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Browse records delivered by feed syncs",
}

var recordsListCmd = &cobra.Command{
	Use:   "list <provider>",
	Short: "List stored records for a feed, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsList,
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <provider> <key>",
	Short: "Show one stored record",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecordsGet,
}

func init() {
	recordsListCmd.Flags().IntVarP(&recordsLimit, "limit", "n", 20, "maximum records to print (0 for all)")
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsGetCmd)
	rootCmd.AddCommand(recordsCmd)
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	if recordService == nil {
		return errors.New("record service not configured")
	}
	if recordsLimit < 0 {
		return fmt.Errorf("invalid --limit %d", recordsLimit)
	}

	records, total, err := recordService.List(commandContext(cmd), args[0], recordsLimit)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if err := writeJSON(cmd.OutOrStdout(), records); err != nil {
		return err
	}
	cmd.PrintErrf("%d of %d records\n", len(records), total)
	return nil
}

func runRecordsGet(cmd *cobra.Command, args []string) error {
	if recordService == nil {
		return errors.New("record service not configured")
	}

	record, err := recordService.Get(commandContext(cmd), args[0], args[1])
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), record)
}
