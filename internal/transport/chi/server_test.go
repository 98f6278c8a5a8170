package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	gen "github.com/kailas-cloud/pdfrag/internal/transport/generated"
	"github.com/kailas-cloud/pdfrag/internal/usecase/deletion"
	healthuc "github.com/kailas-cloud/pdfrag/internal/usecase/health"
	"github.com/kailas-cloud/pdfrag/internal/usecase/ingest"
	"github.com/kailas-cloud/pdfrag/internal/usecase/query"
	"github.com/kailas-cloud/pdfrag/internal/workflow"
)

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) gen.ErrorResponse {
	t.Helper()
	var resp gen.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestPostEvent_IngestAlias(t *testing.T) {
	ts := newTestServer(t)
	ts.ingest.fn = func(_ context.Context, _ ingest.Request) (ingest.Result, error) {
		return ingest.Result{Ingested: 3}, nil
	}

	rr := do(t, ts.handler, http.MethodPost, "/events",
		`{"id":"evt-1","name":"rag/ingest_pdf","data":{"pdf_path":"docs/a.pdf"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}

	var resp struct {
		RunID  string         `json:"run_id"`
		Name   string         `json:"name"`
		Result map[string]int `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RunID != "evt-1" || resp.Name != "ingest-pdf" || resp.Result["ingested"] != 3 {
		t.Errorf("unexpected response %+v", resp)
	}
	if ts.ingest.last.SourceID != "docs/a.pdf" || ts.ingest.last.RunID != "evt-1" {
		t.Errorf("unexpected pipeline request %+v", ts.ingest.last)
	}
}

func TestPostEvent_GeneratesRunID(t *testing.T) {
	ts := newTestServer(t)
	runner := workflow.NewRunner(nil, workflow.Config{MaxAttempts: 1})
	var run *workflow.Run
	ts.delete.fn = func(ctx context.Context, req deletion.Request) (deletion.Result, error) {
		run = runner.Start(ctx, req.RunID)
		return deletion.Result{}, nil
	}

	rr := do(t, ts.handler, http.MethodPost, "/events", `{"name":"delete","data":{"source_id":"a"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}
	if ts.delete.last.RunID != "" {
		t.Errorf("generated id must not reach the pipeline as a caller id, got %q", ts.delete.last.RunID)
	}
	if rr.Header().Get("X-Run-ID") == "" || run.ID != rr.Header().Get("X-Run-ID") {
		t.Errorf("expected correlation id in header, got %q / %q", rr.Header().Get("X-Run-ID"), run.ID)
	}
	if !run.Ephemeral() {
		t.Error("run without caller id must be ephemeral")
	}
}

func TestPostEvent_Invalid(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{
		`{"name":"rag/unknown","data":{}}`,
		`{"name":"query","data":{"top_k":3}}`,
		`not json`,
	} {
		rr := do(t, ts.handler, http.MethodPost, "/events", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status %d, want 400", body, rr.Code)
			continue
		}
		if resp := decodeError(t, rr); resp.Code != gen.ErrorResponseCodeBadRequest {
			t.Errorf("body %s: code %s", body, resp.Code)
		}
	}
}

func TestQuery_Route(t *testing.T) {
	ts := newTestServer(t)
	ts.query.fn = func(_ context.Context, _ query.Request) (query.Result, error) {
		return query.Result{Answer: "42", Sources: []string{"a.pdf"}, NumContext: 2}, nil
	}

	rr := do(t, ts.handler, http.MethodPost, "/v1/query", `{"question":"meaning?"}`, "Idempotency-Key", "q-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}
	var res query.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Answer != "42" || res.NumContext != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if ts.query.last.TopK != 5 || ts.query.last.RunID != "q-1" {
		t.Errorf("unexpected pipeline request %+v", ts.query.last)
	}
	if rr.Header().Get("X-Run-ID") != "q-1" {
		t.Errorf("unexpected X-Run-ID %q", rr.Header().Get("X-Run-ID"))
	}
}

func TestDeleteSource_Route(t *testing.T) {
	ts := newTestServer(t)
	ts.delete.fn = func(_ context.Context, _ deletion.Request) (deletion.Result, error) {
		return deletion.Result{DeleteCount: 4}, nil
	}

	rr := do(t, ts.handler, http.MethodDelete, "/v1/sources/docs%2Fa.pdf", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body)
	}
	if ts.delete.last.SourceID != "docs/a.pdf" {
		t.Errorf("expected unescaped source id, got %q", ts.delete.last.SourceID)
	}
	if !strings.Contains(rr.Body.String(), `"delete_count":4`) {
		t.Errorf("unexpected body %s", rr.Body)
	}
}

func TestDeleteSource_MalformedEscape(t *testing.T) {
	ts := newTestServer(t)
	wrapper := gen.ServerInterfaceWrapper{Handler: ts.srv, ErrorHandlerFunc: invalidParam}

	// httptest rejects a bad escape in the URL, so the route param is injected directly.
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("source_id", "docs%zz")
	req := httptest.NewRequest(http.MethodDelete, "/v1/sources/x", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()
	wrapper.DeleteSource(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Code != gen.ErrorResponseCodeBadRequest || !strings.Contains(resp.Message, "source_id") {
		t.Errorf("unexpected error body %+v", resp)
	}
	if ts.delete.last.SourceID != "" {
		t.Errorf("pipeline must not run, got %+v", ts.delete.last)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       gen.ErrorResponseCode
		stage      string
		retryAfter bool
	}{
		{"store", domain.NewStageError("embed-and-upsert", domain.ErrStoreUnavailable),
			http.StatusServiceUnavailable, gen.ErrorResponseCodeStoreUnavailable, "embed-and-upsert", true},
		{"adapter", domain.NewStageError("llm-answer", domain.ErrAdapterUnavailable),
			http.StatusServiceUnavailable, gen.ErrorResponseCodeAdapterUnavailable, "llm-answer", true},
		{"configuration", domain.NewStageError("embed-and-upsert", domain.ErrConfiguration),
			http.StatusInternalServerError, gen.ErrorResponseCodeConfigurationError, "embed-and-upsert", false},
		{"unreadable", domain.NewStageError("load-and-chunk", domain.ErrDocumentUnreadable),
			http.StatusUnprocessableEntity, gen.ErrorResponseCodeDocumentUnreadable, "load-and-chunk", false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, gen.ErrorResponseCodeInternalError, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.ingest.fn = func(_ context.Context, _ ingest.Request) (ingest.Result, error) {
				return ingest.Result{}, tc.err
			}

			rr := do(t, ts.handler, http.MethodPost, "/v1/ingest", `{"pdf_path":"a.pdf"}`)
			if rr.Code != tc.status {
				t.Fatalf("status %d, want %d", rr.Code, tc.status)
			}
			if got := rr.Header().Get("Retry-After") != ""; got != tc.retryAfter {
				t.Errorf("Retry-After present=%v, want %v", got, tc.retryAfter)
			}
			resp := decodeError(t, rr)
			if resp.Code != tc.code || resp.Stage != tc.stage {
				t.Errorf("unexpected error body %+v", resp)
			}
			if tc.code == gen.ErrorResponseCodeInternalError && resp.Message != "internal error" {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rr := do(t, ts.handler, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body)
	}

	ts.health.report = healthuc.Report{Status: healthuc.Degraded}
	if rr := do(t, ts.handler, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("degraded should stay 200, got %d", rr.Code)
	}

	ts.health.report = healthuc.Report{Status: healthuc.Unhealthy}
	if rr := do(t, ts.handler, http.MethodGet, "/health", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy should be 503, got %d", rr.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t)
	rr := do(t, ts.handler, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestRouter_AuthAndExemptions(t *testing.T) {
	ts := newTestServer(t, "secret")

	if rr := do(t, ts.handler, http.MethodPost, "/v1/query", `{"question":"q"}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}
	rr := do(t, ts.handler, http.MethodPost, "/v1/query", `{"question":"q"}`, "Authorization", "Bearer secret")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rr.Code)
	}
	if rr := do(t, ts.handler, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health must be exempt, got %d", rr.Code)
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	ts := newTestServer(t)
	ts.query.fn = func(_ context.Context, _ query.Request) (query.Result, error) {
		panic("boom")
	}

	rr := do(t, ts.handler, http.MethodPost, "/v1/query", `{"question":"q"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != gen.ErrorResponseCodeInternalError {
		t.Errorf("unexpected code %s", resp.Code)
	}
}

func TestRouter_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t)
	big := `{"question":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	rr := do(t, ts.handler, http.MethodPost, "/v1/query", big)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestRouter_NotFound(t *testing.T) {
	ts := newTestServer(t)
	if rr := do(t, ts.handler, http.MethodGet, "/collections", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
