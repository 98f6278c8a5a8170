package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed, color.Bold).SprintFunc()
	label   = color.New(color.FgCyan).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

func marshal(payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err //nolint:wrapcheck // write to stdout
}

func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "%s %s\n", failure("error:"), err)
	if domain.IsTransient(err) && runID != "" {
		_, _ = fmt.Fprintln(w, faint("rerun with --run-id "+runID+" to resume"))
	}
}
