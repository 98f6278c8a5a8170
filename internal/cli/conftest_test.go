package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/kailas-cloud/pdfrag/internal/event"
)

type mockPipelines struct {
	dispatchFn func(req event.Request) (any, error)
	count      int
	countErr   error

	last   event.Request
	closed bool
}

func (m *mockPipelines) Decode(env event.Envelope) (event.Request, error) {
	return event.NewDecoder(5, 100).Decode(env) //nolint:wrapcheck // test helper
}

func (m *mockPipelines) Dispatch(_ context.Context, req event.Request) (any, error) {
	m.last = req
	if m.dispatchFn != nil {
		return m.dispatchFn(req)
	}
	return map[string]string{"status": "ok"}, nil
}

func (m *mockPipelines) Count(context.Context) (int, error) { return m.count, m.countErr }

func (m *mockPipelines) Close() { m.closed = true }

// execute runs rootCmd with args against m and returns what it printed.
func execute(t *testing.T, m *mockPipelines, stdin string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	oldOpen := Open
	opened := 0
	Open = func(context.Context, string, string) (Pipelines, error) {
		opened++
		return m, nil
	}
	t.Cleanup(func() {
		Open = oldOpen
		pipelines = nil
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		runID, jsonOut = "", false
		ingestSourceID = ""
		queryTopK, querySourceID = 0, ""
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	if opened > 1 {
		t.Errorf("pipelines opened %d times", opened)
	}
	return buf.String(), err
}
