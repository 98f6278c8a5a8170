package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if pipelines == nil {
			return errors.New("pipelines not configured")
		}
		n, err := pipelines.Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		if jsonOut {
			return printJSON(cmd, map[string]int{"count": n})
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
		return err //nolint:wrapcheck // write to stdout
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
}
