package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pdfrag/internal/event"
	"github.com/kailas-cloud/pdfrag/internal/usecase/deletion"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <source-id>",
	Short: "Delete every chunk of a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := dispatch(cmd, event.NameDelete, map[string]any{"source_id": args[0]})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd, result)
		}
		res, ok := result.(deletion.Result)
		if !ok {
			return printJSON(cmd, result)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %d chunks of %s\n", success("✓"), res.DeleteCount, args[0])
		return err //nolint:wrapcheck // write to stdout
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
