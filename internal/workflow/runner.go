// Package workflow runs pipeline steps with retries, per-attempt timeouts and
// memoized outputs keyed by run id.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/logger"
	"github.com/kailas-cloud/pdfrag/internal/metrics"
)

// Config controls retries and timeouts.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	StepTimeout     time.Duration
}

// Runner executes named steps. One instance serves the whole process.
type Runner struct {
	memo Memo
	cfg  Config

	mu    sync.Mutex
	locks map[string]*stepLock
}

type stepLock struct {
	mu   sync.Mutex
	refs int
}

// NewRunner creates a runner. A nil memo keeps outputs in process memory.
func NewRunner(memo Memo, cfg Config) *Runner {
	if memo == nil {
		memo = NewLocalMemo(0, 0)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	return &Runner{memo: memo, cfg: cfg, locks: make(map[string]*stepLock)}
}

// Run is one execution of a pipeline. Steps of a run share its id.
type Run struct {
	ID     string
	runner *Runner
	// ephemeral runs were started without a caller id; nobody can replay
	// them, so their outputs are neither loaded nor saved.
	ephemeral bool
}

type correlationKey struct{}

// WithCorrelationID attaches the id a run started without one reports in
// logs. Such a run is still ephemeral.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// Start opens a run. An empty id starts an ephemeral run named after the
// context's correlation id, or a fresh UUID.
func (r *Runner) Start(ctx context.Context, id string) *Run {
	if id != "" {
		return &Run{ID: id, runner: r}
	}
	id, _ = ctx.Value(correlationKey{}).(string)
	if id == "" {
		id = uuid.NewString()
	}
	return &Run{ID: id, runner: r, ephemeral: true}
}

// Ephemeral reports whether the run memoizes nothing.
func (run *Run) Ephemeral() bool { return run.ephemeral }

// Step runs fn under the step name, or returns its memoized output. Names of
// the form "base#n" share the metrics of base.
// Transient failures and attempt timeouts are retried with exponential backoff;
// anything else fails at once. The returned error is a *domain.StageError.
func Step[T any](ctx context.Context, run *Run, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	r := run.runner
	label := metricLabel(name)
	ctx = logger.With(ctx, zap.String("run_id", run.ID), zap.String("step", name))
	log := logger.FromContext(ctx)

	unlock := r.lock(run.ID, name)
	defer unlock()

	var out T
	if !run.ephemeral && r.loadMemo(ctx, run.ID, name, &out) {
		metrics.StepAttemptsTotal.WithLabelValues(label, "memoized").Inc()
		log.Debug("Step output memoized, skipping")
		return out, nil
	}

	log.Debug("Step started")
	start := time.Now()
	attempt := 0

	op := func() error {
		attempt++
		actx := ctx
		if r.cfg.StepTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, r.cfg.StepTimeout)
			defer cancel()
		}

		attemptStart := time.Now()
		res, err := fn(actx)
		metrics.StepDuration.WithLabelValues(label).Observe(time.Since(attemptStart).Seconds())
		if err == nil {
			out = res
			return nil
		}
		if !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.StepAttemptsTotal.WithLabelValues(label, "retry").Inc()
		log.Warn("Step attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, r.policy(ctx), notify); err != nil {
		metrics.StepAttemptsTotal.WithLabelValues(label, "failed").Inc()
		log.Error("Step failed",
			zap.Int("attempts", attempt),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		var zero T
		return zero, domain.NewStageError(name, err)
	}

	metrics.StepAttemptsTotal.WithLabelValues(label, "ok").Inc()
	log.Info("Step completed",
		zap.Int("attempts", attempt),
		zap.Duration("duration", time.Since(start)),
	)
	if !run.ephemeral {
		r.saveMemo(ctx, run.ID, name, out)
	}
	return out, nil
}

func metricLabel(name string) string {
	if i := strings.IndexByte(name, '#'); i >= 0 {
		return name[:i]
	}
	return name
}

func (r *Runner) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxAttempts-1)), ctx)
}

// retryable reports whether another attempt may succeed. An attempt deadline
// counts as transient while the caller's context is still alive.
func retryable(parent context.Context, err error) bool {
	if domain.IsTransient(err) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil
}

// loadMemo treats unreadable memo entries as missing; the step then reruns.
func (r *Runner) loadMemo(ctx context.Context, runID, step string, out any) bool {
	data, ok, err := r.memo.Load(ctx, runID, step)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to load step memo", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.FromContext(ctx).Warn("Failed to decode step memo", zap.Error(err))
		return false
	}
	return true
}

func (r *Runner) saveMemo(ctx context.Context, runID, step string, out any) {
	data, err := json.Marshal(out)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to encode step memo", zap.Error(err))
		return
	}
	if err := r.memo.Save(ctx, runID, step, data); err != nil {
		logger.FromContext(ctx).Warn("Failed to save step memo", zap.Error(err))
	}
}

// lock serializes executions of one step of one run within the process.
func (r *Runner) lock(runID, step string) func() {
	key := fmt.Sprintf("%s/%s", runID, step)

	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &stepLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}
