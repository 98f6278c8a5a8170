package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/event"
	"github.com/kailas-cloud/pdfrag/internal/usecase/deletion"
	"github.com/kailas-cloud/pdfrag/internal/usecase/ingest"
	"github.com/kailas-cloud/pdfrag/internal/usecase/query"
)

func TestIngestCmd(t *testing.T) {
	m := &mockPipelines{dispatchFn: func(event.Request) (any, error) {
		return ingest.Result{Ingested: 12}, nil
	}}

	out, err := execute(t, m, "", "ingest", "docs/manual.pdf", "--source-id", "manual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.last.Ingest == nil || m.last.Ingest.PDFPath != "docs/manual.pdf" || m.last.Ingest.SourceID != "manual" {
		t.Errorf("unexpected request: %+v", m.last.Ingest)
	}
	if !strings.Contains(out, "ingested 12 chunks from docs/manual.pdf") {
		t.Errorf("unexpected output: %q", out)
	}
	if !m.closed {
		t.Error("pipelines must be closed after the command")
	}
}

func TestIngestCmd_SourceDefaultsToPath(t *testing.T) {
	m := &mockPipelines{}
	if _, err := execute(t, m, "", "ingest", "a.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.last.Ingest.SourceID != "a.pdf" {
		t.Errorf("expected source id a.pdf, got %q", m.last.Ingest.SourceID)
	}
}

func TestIngestCmd_RequiresPath(t *testing.T) {
	_, err := execute(t, &mockPipelines{}, "", "ingest")
	if err == nil || !strings.Contains(err.Error(), "accepts 1 arg(s)") {
		t.Fatalf("expected arg error, got %v", err)
	}
}

func TestQueryCmd(t *testing.T) {
	m := &mockPipelines{dispatchFn: func(event.Request) (any, error) {
		return query.Result{Answer: "Paris.", Sources: []string{"geo.pdf"}, NumContext: 2}, nil
	}}

	out, err := execute(t, m, "", "query", "--top-k", "3", "What", "is", "the", "capital?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.last.Query == nil || m.last.Query.Question != "What is the capital?" || m.last.Query.TopK != 3 {
		t.Errorf("unexpected request: %+v", m.last.Query)
	}
	for _, want := range []string{"Paris.", "contexts: 2", "source: geo.pdf"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestQueryCmd_DefaultTopK(t *testing.T) {
	m := &mockPipelines{}
	if _, err := execute(t, m, "", "query", "anything"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.last.Query.TopK != 5 {
		t.Errorf("expected default top_k 5, got %d", m.last.Query.TopK)
	}
}

func TestQueryCmd_InvalidTopK(t *testing.T) {
	m := &mockPipelines{}
	_, err := execute(t, m, "", "query", "--top-k", "-1", "anything")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if m.last.Query != nil {
		t.Error("invalid request must not be dispatched")
	}
}

func TestQueryCmd_JSON(t *testing.T) {
	m := &mockPipelines{dispatchFn: func(event.Request) (any, error) {
		return query.Result{Answer: "x", Sources: []string{}}, nil
	}}
	out, err := execute(t, m, "", "query", "--json", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"answer": "x"`) || !strings.Contains(out, `"num_context": 0`) {
		t.Errorf("unexpected JSON output: %q", out)
	}
}

func TestDeleteCmd(t *testing.T) {
	m := &mockPipelines{dispatchFn: func(event.Request) (any, error) {
		return deletion.Result{DeleteCount: 4}, nil
	}}
	out, err := execute(t, m, "", "delete", "manual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.last.Delete == nil || m.last.Delete.SourceID != "manual" {
		t.Errorf("unexpected request: %+v", m.last.Delete)
	}
	if !strings.Contains(out, "deleted 4 chunks of manual") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestCountCmd(t *testing.T) {
	out, err := execute(t, &mockPipelines{count: 42}, "", "count")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "42" {
		t.Errorf("expected 42, got %q", out)
	}
}

func TestCountCmd_Error(t *testing.T) {
	_, err := execute(t, &mockPipelines{countErr: domain.ErrStoreUnavailable}, "", "count")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSendCmd_Stdin(t *testing.T) {
	m := &mockPipelines{}
	_, err := execute(t, m, `{"name":"rag/delete_pdf","data":{"source_id":"s"}}`, "send", "--run-id", "run-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.last.Name != event.NameDelete || m.last.ID != "run-7" {
		t.Errorf("unexpected request: %+v", m.last)
	}
}

func TestSendCmd_UnknownEvent(t *testing.T) {
	_, err := execute(t, &mockPipelines{}, `{"name":"rag/unknown","data":{}}`, "send")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRunID_PassedThrough(t *testing.T) {
	m := &mockPipelines{}
	if _, err := execute(t, m, "", "delete", "s", "--run-id", "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.last.ID != "abc" {
		t.Errorf("expected run id abc, got %q", m.last.ID)
	}
}

func TestVersionCmd_Offline(t *testing.T) {
	out, err := execute(t, &mockPipelines{}, "", "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "pdfragctl dev") {
		t.Errorf("unexpected version output: %q", out)
	}
	if pipelines != nil {
		t.Error("version must not open pipelines")
	}
}

func TestPrintError_TransientHint(t *testing.T) {
	runID = "r1"
	t.Cleanup(func() { runID = "" })

	buf := new(bytes.Buffer)
	printError(buf, domain.NewStageError("embed-and-upsert", domain.ErrAdapterUnavailable))
	out := buf.String()
	if !strings.Contains(out, "error: step embed-and-upsert") {
		t.Errorf("unexpected error line: %q", out)
	}
	if !strings.Contains(out, "--run-id r1") {
		t.Errorf("expected resume hint: %q", out)
	}
}
