package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/event"
	"github.com/kailas-cloud/pdfrag/internal/logger"
	gen "github.com/kailas-cloud/pdfrag/internal/transport/generated"
	"github.com/kailas-cloud/pdfrag/internal/usecase/deletion"
	healthuc "github.com/kailas-cloud/pdfrag/internal/usecase/health"
	"github.com/kailas-cloud/pdfrag/internal/usecase/ingest"
	"github.com/kailas-cloud/pdfrag/internal/usecase/query"
	"github.com/kailas-cloud/pdfrag/internal/workflow"
)

const maxBodyBytes = 1 << 20

// Ingester runs the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Result, error)
}

// Querier runs the query pipeline.
type Querier interface {
	Query(ctx context.Context, req query.Request) (query.Result, error)
}

// Deleter runs the deletion pipeline.
type Deleter interface {
	Delete(ctx context.Context, req deletion.Request) (deletion.Result, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// EventResponse is the body of a successful POST /events.
type EventResponse struct {
	RunID  string `json:"run_id"`
	Name   string `json:"name"`
	Result any    `json:"result"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

var _ gen.ServerInterface = (*Server)(nil)

// Server exposes the pipelines over HTTP.
type Server struct {
	ingest  Ingester
	query   Querier
	delete  Deleter
	health  HealthChecker
	decoder *event.Decoder
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	ing Ingester, q Querier, del Deleter, health HealthChecker,
	decoder *event.Decoder, log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		ingest:  ing,
		query:   q,
		delete:  del,
		health:  health,
		decoder: decoder,
		logger:  log,
	}
}

// PostEvent handles POST /events.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	req, err := s.decoder.DecodeEnvelope(body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.run(w, r, req, true)
}

// Ingest handles POST /v1/ingest. The body is the ingest-pdf payload.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	s.handleRoute(w, r, event.NameIngestPDF)
}

// Query handles POST /v1/query. The body is the query payload.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	s.handleRoute(w, r, event.NameQuery)
}

// DeleteSource handles DELETE /v1/sources/{source_id}. The router has
// already path-unescaped the id.
func (s *Server) DeleteSource(w http.ResponseWriter, r *http.Request, sourceID gen.SourceId) {
	data, err := json.Marshal(event.Delete{SourceID: sourceID})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	req, err := s.decoder.Decode(event.Envelope{
		ID:   r.Header.Get("Idempotency-Key"),
		Name: event.NameDelete,
		Data: data,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.run(w, r, req, false)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request, name string) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	req, err := s.decoder.Decode(event.Envelope{
		ID:   r.Header.Get("Idempotency-Key"),
		Name: name,
		Data: body,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.run(w, r, req, false)
}

// run executes a decoded event. Events without an id run ephemerally under
// a fresh correlation id, which the response reports in X-Run-ID.
func (s *Server) run(w http.ResponseWriter, r *http.Request, req event.Request, envelope bool) {
	runID := req.ID
	ctx := r.Context()
	if runID == "" {
		runID = uuid.NewString()
		ctx = workflow.WithCorrelationID(ctx, runID)
	}
	ctx = logger.With(ctx, zap.String("event", req.Name), zap.String("run_id", runID))

	result, err := Dispatch(ctx, s.ingest, s.query, s.delete, req)
	if err != nil {
		s.handleDomainError(w, r.WithContext(ctx), err)
		return
	}

	w.Header().Set("X-Run-ID", runID)
	if envelope {
		writeJSON(w, http.StatusOK, EventResponse{RunID: runID, Name: req.Name, Result: result})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Dispatch routes a decoded event to its pipeline.
func Dispatch(ctx context.Context, ing Ingester, q Querier, del Deleter, req event.Request) (any, error) {
	switch {
	case req.Ingest != nil:
		return ing.Ingest(ctx, ingest.Request{ //nolint:wrapcheck // StageError from the pipeline
			RunID:    req.ID,
			PDFPath:  req.Ingest.PDFPath,
			SourceID: req.Ingest.SourceID,
		})
	case req.Query != nil:
		return q.Query(ctx, query.Request{ //nolint:wrapcheck // StageError from the pipeline
			RunID:    req.ID,
			Question: req.Query.Question,
			TopK:     req.Query.TopK,
			SourceID: req.Query.SourceID,
		})
	case req.Delete != nil:
		return del.Delete(ctx, deletion.Request{ //nolint:wrapcheck // StageError from the pipeline
			RunID:    req.ID,
			SourceID: req.Delete.SourceID,
		})
	}
	return nil, fmt.Errorf("event %q has no payload: %w", req.Name, domain.ErrInvalidRequest)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	return body, true
}

func (s *Server) log(r *http.Request) *zap.Logger {
	if l := logger.FromContext(r.Context()); l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return s.logger
}
