package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pdfrag/internal/event"
	"github.com/kailas-cloud/pdfrag/internal/usecase/query"
)

var (
	queryTopK     int
	querySourceID string
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from the ingested documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().StringVar(&querySourceID, "source-id", "", "only search chunks of this source")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	payload := map[string]any{"question": strings.Join(args, " ")}
	if queryTopK != 0 {
		payload["top_k"] = queryTopK
	}
	if querySourceID != "" {
		payload["source_id"] = querySourceID
	}

	result, err := dispatch(cmd, event.NameQuery, payload)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd, result)
	}

	res, ok := result.(query.Result)
	if !ok {
		return printJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, res.Answer)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "%s %s\n", label("contexts:"), faint(fmt.Sprint(res.NumContext)))
	for _, src := range res.Sources {
		_, _ = fmt.Fprintf(out, "%s %s\n", label("source:"), src)
	}
	return nil
}
