// Package cli implements pdfragctl, a command line front end that drives the
// ingest, query and delete pipelines directly against the configured store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/pdfrag/internal/app"
	"github.com/kailas-cloud/pdfrag/internal/config"
	"github.com/kailas-cloud/pdfrag/internal/event"
	logpkg "github.com/kailas-cloud/pdfrag/internal/logger"
)

// Pipelines is what the commands drive.
type Pipelines interface {
	Decode(env event.Envelope) (event.Request, error)
	Dispatch(ctx context.Context, req event.Request) (any, error)
	Count(ctx context.Context) (int, error)
	Close()
}

// Open builds the pipelines for an environment. Replaced in tests.
var Open = func(ctx context.Context, env, logLevel string) (Pipelines, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, err //nolint:wrapcheck // config errors name the file
	}
	if logLevel == "" {
		logLevel = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger(env, logLevel)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	return a, nil
}

var (
	envName   string
	logLevel  string
	runID     string
	jsonOut   bool
	pipelines Pipelines
)

var rootCmd = &cobra.Command{
	Use:           "pdfragctl",
	Short:         "pdfragctl ingests PDFs and answers questions about them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if !needsPipelines(cmd) {
			return nil
		}
		p, err := Open(cmd.Context(), envName, logLevel)
		if err != nil {
			return fmt.Errorf("open pipelines: %w", err)
		}
		pipelines = p
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if pipelines != nil {
			pipelines.Close()
			pipelines = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", config.GetEnv(), "config environment (config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&runID, "run-id", "", "run id; repeating a run id replays completed steps")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func needsPipelines(cmd *cobra.Command) bool {
	if cmd.Annotations["offline"] == "true" || cmd.Name() == "help" {
		return false
	}
	if p := cmd.Parent(); p != nil && p.Name() == "completion" {
		return false
	}
	return cmd.Name() != "completion"
}

func dispatch(cmd *cobra.Command, name string, payload map[string]any) (any, error) {
	if pipelines == nil {
		return nil, errors.New("pipelines not configured")
	}
	data, err := marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := pipelines.Decode(event.Envelope{ID: runID, Name: name, Data: data})
	if err != nil {
		return nil, err //nolint:wrapcheck // invalid request, printed as is
	}
	return pipelines.Dispatch(cmd.Context(), req) //nolint:wrapcheck // StageError
}
