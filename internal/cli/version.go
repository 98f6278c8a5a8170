package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pdfrag/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{"offline": "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "pdfragctl", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
