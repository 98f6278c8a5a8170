// Package app is the composition root: it builds every dependency explicitly
// from configuration, so both binaries share one wiring.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/chunker"
	"github.com/kailas-cloud/pdfrag/internal/config"
	"github.com/kailas-cloud/pdfrag/internal/db"
	dbRedis "github.com/kailas-cloud/pdfrag/internal/db/redis"
	dbValkey "github.com/kailas-cloud/pdfrag/internal/db/valkey"
	"github.com/kailas-cloud/pdfrag/internal/domain"
	"github.com/kailas-cloud/pdfrag/internal/event"
	"github.com/kailas-cloud/pdfrag/internal/metrics"
	"github.com/kailas-cloud/pdfrag/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/pdfrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/pdfrag/internal/transport/openai"
	"github.com/kailas-cloud/pdfrag/internal/transport/pdf"
	"github.com/kailas-cloud/pdfrag/internal/usecase/deletion"
	embeddinguc "github.com/kailas-cloud/pdfrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pdfrag/internal/usecase/health"
	"github.com/kailas-cloud/pdfrag/internal/usecase/ingest"
	"github.com/kailas-cloud/pdfrag/internal/usecase/query"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore/memory"
	"github.com/kailas-cloud/pdfrag/internal/vectorstore/redisearch"
	"github.com/kailas-cloud/pdfrag/internal/workflow"
)

// App holds the wired services of one process.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    vectorstore.Store
	Ingest   *ingest.Service
	Query    *query.Service
	Deletion *deletion.Service
	Health   *healthuc.Service
	Decoder  *event.Decoder

	db db.Store
}

// New connects to the configured engine and builds the pipelines.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Register()

	splitter, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	var memo workflow.Memo
	var pinger healthuc.DBPinger
	switch cfg.Database.Driver {
	case config.DriverMemory:
		a.Store = memory.New()
		memo = workflow.NewLocalMemo(cfg.Workflow.MemoTTL(), cfg.Workflow.MemoMaxEntries)
		pinger = noopPinger{}
	case config.DriverRedis, config.DriverValkey:
		store, err := openStore(cfg.Database)
		if err != nil {
			return nil, err
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		a.db = store
		a.Store = redisearch.New(store, cfg.Collection.Name).WithHNSW(redisearch.HNSWConfig{
			M:           cfg.Collection.HNSWM,
			EFConstruct: cfg.Collection.HNSWEFConstruct,
		})
		memo = workflow.NewKVMemo(store, cfg.Workflow.MemoTTL())
		pinger = store
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	embedder := a.buildEmbedder()
	generator := openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Logger:  logger,
	})

	runner := workflow.NewRunner(memo, workflow.Config{
		MaxAttempts:     cfg.Workflow.MaxAttempts,
		InitialInterval: cfg.Workflow.InitialInterval(),
		MaxInterval:     cfg.Workflow.MaxInterval(),
		StepTimeout:     cfg.Workflow.StepTimeout(),
	})

	a.Ingest = ingest.New(pdf.NewLoader(logger), splitter, embedder, a.Store, runner).
		WithPruneStale(cfg.Ingest.PruneStale).
		WithBatchSize(cfg.Ingest.BatchSize)
	a.Query = query.New(embedder, a.Store, generator, runner, query.GenerationConfig{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	a.Deletion = deletion.New(a.Store, runner)
	a.Health = healthuc.New(pinger, embedder, generator)
	a.Decoder = event.NewDecoder(cfg.Query.DefaultTopK, cfg.Query.MaxTopK)

	logger.Info("Pipelines ready",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("collection", cfg.Collection.Name),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Int("chunk_size", splitter.Size()),
		zap.Int("chunk_overlap", splitter.Overlap()),
	)
	return a, nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	server := chiTransport.NewServer(a.Ingest, a.Query, a.Deletion, a.Health, a.Decoder, a.Logger)
	return chiTransport.NewRouter(server, a.Config.Auth.APIKeys, a.Logger)
}

// Dispatch runs a decoded event through its pipeline.
func (a *App) Dispatch(ctx context.Context, req event.Request) (any, error) {
	return chiTransport.Dispatch(ctx, a.Ingest, a.Query, a.Deletion, req) //nolint:wrapcheck // StageError
}

// Decode validates an event envelope with the configured query limits.
func (a *App) Decode(env event.Envelope) (event.Request, error) {
	return a.Decoder.Decode(env) //nolint:wrapcheck // already wraps ErrInvalidRequest
}

// Count returns the number of stored chunks.
func (a *App) Count(ctx context.Context) (int, error) {
	return a.Store.Count(ctx) //nolint:wrapcheck // store errors carry their op
}

// Close releases the database connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	dbCfg := dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Driver == config.DriverValkey {
		s, err := dbValkey.NewStore(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect valkey: %w", err)
		}
		return s, nil
	}
	s, err := dbRedis.NewStore(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return s, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func (a *App) buildEmbedder() *embeddinguc.InstrumentedEmbedder {
	cfg := a.Config.Embedding
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     a.Logger,
	})

	var inner domain.Embedder = base
	if a.db != nil && !cfg.DisableCache {
		inner = embcache.New(base, a.db, embcache.Config{
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			TTL:        time.Duration(cfg.CacheTTL) * time.Second,
		}, metrics.EmbeddingCacheTotal, a.Logger)
	}
	return embeddinguc.NewInstrumentedEmbedder(inner, cfg.Provider, cfg.Model, a.Logger)
}

type noopPinger struct{}

func (noopPinger) Ping(context.Context) error { return nil }
