package chi

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/event"
	"github.com/kailas-cloud/pdfrag/internal/usecase/deletion"
	healthuc "github.com/kailas-cloud/pdfrag/internal/usecase/health"
	"github.com/kailas-cloud/pdfrag/internal/usecase/ingest"
	"github.com/kailas-cloud/pdfrag/internal/usecase/query"
)

type mockIngester struct {
	fn   func(ctx context.Context, req ingest.Request) (ingest.Result, error)
	last ingest.Request
}

func (m *mockIngester) Ingest(ctx context.Context, req ingest.Request) (ingest.Result, error) {
	m.last = req
	if m.fn != nil {
		return m.fn(ctx, req)
	}
	return ingest.Result{}, nil
}

type mockQuerier struct {
	fn   func(ctx context.Context, req query.Request) (query.Result, error)
	last query.Request
}

func (m *mockQuerier) Query(ctx context.Context, req query.Request) (query.Result, error) {
	m.last = req
	if m.fn != nil {
		return m.fn(ctx, req)
	}
	return query.Result{Sources: []string{}}, nil
}

type mockDeleter struct {
	fn   func(ctx context.Context, req deletion.Request) (deletion.Result, error)
	last deletion.Request
}

func (m *mockDeleter) Delete(ctx context.Context, req deletion.Request) (deletion.Result, error) {
	m.last = req
	if m.fn != nil {
		return m.fn(ctx, req)
	}
	return deletion.Result{}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type testServer struct {
	srv     *Server
	handler http.Handler
	ingest  *mockIngester
	query   *mockQuerier
	delete  *mockDeleter
	health  *mockHealth
}

func newTestServer(t *testing.T, apiKeys ...string) *testServer {
	t.Helper()
	ts := &testServer{
		ingest: &mockIngester{},
		query:  &mockQuerier{},
		delete: &mockDeleter{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	ts.srv = NewServer(ts.ingest, ts.query, ts.delete, ts.health, event.NewDecoder(5, 100), zap.NewNop())
	ts.handler = NewRouter(ts.srv, apiKeys, zap.NewNop())
	return ts
}
