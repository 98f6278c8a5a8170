package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a provider failure; stored data is still reachable.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentDatabase  = "database"
	ComponentEmbedding = "embedding"
	ComponentLLM       = "llm"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding ProviderChecker
	llm       ProviderChecker
}

// New creates a Service. embedding and llm can be nil.
func New(db DBPinger, embedding, llm ProviderChecker) *Service {
	return &Service{db: db, embedding: embedding, llm: llm}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)
	log := logger.FromContext(ctx)

	checks[ComponentDatabase] = result(s.db.Ping(ctx), ComponentDatabase, log)
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx), ComponentEmbedding, log)
	}
	if s.llm != nil {
		checks[ComponentLLM] = result(s.llm.HealthCheck(ctx), ComponentLLM, log)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentDatabase] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error, component string, log *zap.Logger) CheckResult {
	if err != nil {
		log.Warn("Health check failed", zap.String("component", component), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
