package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pdfrag/internal/event"
)

// sendCmd replays a raw event envelope, the same body POST /events accepts.
var sendCmd = &cobra.Command{
	Use:   "send [file]",
	Short: "Dispatch a JSON event envelope from a file or stdin",
	Example: `  echo '{"name":"rag/query_pdf_ai","data":{"question":"What is covered?"}}' | pdfragctl send
  pdfragctl send event.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	if pipelines == nil {
		return errors.New("pipelines not configured")
	}

	var body []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		body, err = io.ReadAll(cmd.InOrStdin())
	} else {
		body, err = os.ReadFile(filepath.Clean(args[0]))
	}
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}

	var env event.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if env.ID == "" {
		env.ID = runID
	}
	req, err := pipelines.Decode(env)
	if err != nil {
		return err //nolint:wrapcheck // invalid request, printed as is
	}
	result, err := pipelines.Dispatch(cmd.Context(), req)
	if err != nil {
		return err //nolint:wrapcheck // StageError
	}
	return printJSON(cmd, result)
}
