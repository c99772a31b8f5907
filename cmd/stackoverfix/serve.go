package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/stackoverfix/internal/anthropic"
	"github.com/MikeSquared-Agency/stackoverfix/internal/api"
	"github.com/MikeSquared-Agency/stackoverfix/internal/classifier"
	"github.com/MikeSquared-Agency/stackoverfix/internal/config"
	"github.com/MikeSquared-Agency/stackoverfix/internal/gemini"
	"github.com/MikeSquared-Agency/stackoverfix/internal/hermes"
	"github.com/MikeSquared-Agency/stackoverfix/internal/llm"
	"github.com/MikeSquared-Agency/stackoverfix/internal/metrics"
	"github.com/MikeSquared-Agency/stackoverfix/internal/processor"
	"github.com/MikeSquared-Agency/stackoverfix/internal/session"
	"github.com/MikeSquared-Agency/stackoverfix/internal/store"
	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the NATS trace processor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	slog.Info("stackoverfix starting", "port", cfg.Port, "packages_root", cfg.PackagesRoot)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	normalizer := trace.New(cfg.PackagesRoot, trace.WithRecursionKind(cfg.RecursionKind))

	// Database (optional; backs postgres sessions, report storage and the doc index)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database connected")
	}

	sessions, err := openSessions(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer sessions.Close()
	slog.Info("session store ready", "backend", cfg.SessionBackend)

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	var cls api.Classifier
	if completer != nil {
		cls = classifier.New(completer, slog.Default())
	} else {
		slog.Warn("no LLM API key configured, running without error classification")
	}

	// NATS/Hermes (optional; without it only the HTTP API runs)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return fmt.Errorf("connect NATS: %w", err)
		}
		defer hermesClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)

		var reports processor.ReportWriter
		if db != nil {
			reports = db
		}
		proc := processor.New(normalizer, hermesClient, reports, slog.Default())
		goNormalizer := trace.New(config.DefaultGoPackagesRoot())
		if err := hermesClient.Subscribe(hermes.SubjectTraceRaw, proc.Guard(goNormalizer, proc.HandleRawTrace)); err != nil {
			return fmt.Errorf("subscribe to raw traces: %w", err)
		}

		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"port":          cfg.Port,
			"packages_root": cfg.PackagesRoot,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	} else {
		slog.Warn("NATS_URL not set, running without trace processor")
	}

	deps := api.Deps{
		Normalizer: normalizer,
		Classifier: cls,
		Sessions:   sessions,
		Gatherer:   prometheus.DefaultGatherer,
		Logger:     slog.Default(),
	}
	if db != nil {
		deps.Docs = db
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, deps)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	slog.Info("stackoverfix ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	}
	slog.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	cancel()
	slog.Info("stackoverfix stopped")
	return nil
}

func openSessions(ctx context.Context, cfg config.Config, db *store.Store) (session.Store, error) {
	switch cfg.SessionBackend {
	case "sqlite":
		s, err := session.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite sessions: %w", err)
		}
		return s, nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres session backend requires DATABASE_URL")
		}
		// The pool is closed by serve; the session view must not close it twice.
		return nopCloser{db}, nil
	default:
		return session.NewMemory(), nil
	}
}

type nopCloser struct {
	*store.Store
}

func (nopCloser) Close() error { return nil }

// newCompleter returns nil when the selected provider has no API key.
func newCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, nil
		}
		slog.Info("anthropic client ready", "model", cfg.AnthropicModel)
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		slog.Info("gemini client ready", "model", cfg.GeminiModel)
		return c, nil
	}
}
