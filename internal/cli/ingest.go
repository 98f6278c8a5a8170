package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pdfrag/internal/event"
	"github.com/kailas-cloud/pdfrag/internal/usecase/ingest"
)

var ingestSourceID string

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Chunk, embed and store a PDF",
	Long: `Loads the document page by page, splits it into overlapping chunks and
upserts their embeddings. Re-ingesting a file overwrites its chunks in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSourceID, "source-id", "", "source id stored with each chunk (default: the path)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	payload := map[string]any{"pdf_path": args[0]}
	if ingestSourceID != "" {
		payload["source_id"] = ingestSourceID
	}

	result, err := dispatch(cmd, event.NameIngestPDF, payload)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd, result)
	}

	res, ok := result.(ingest.Result)
	if !ok {
		return printJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s ingested %d chunks from %s\n", success("✓"), res.Ingested, args[0])
	if res.Pruned > 0 {
		_, _ = fmt.Fprintf(out, "  %s\n", faint(fmt.Sprintf("pruned %d stale chunks", res.Pruned)))
	}
	return nil
}
