// Command reportflow serves the report pipeline over HTTP: report
// generation as a server-sent event stream plus document ingestion
// endpoints feeding the retrieval index.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reportflow/pkg/agents"
	"reportflow/pkg/docindex"
	"reportflow/pkg/fetch"
	"reportflow/pkg/provider"
	"reportflow/pkg/reportflow"
	"reportflow/pkg/reportflow/checkpoint"
	"reportflow/pkg/reportflow/config"
	"reportflow/pkg/reportflow/observability"
	"reportflow/pkg/stream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reportflow:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to config file (yaml or json)")
		addr       = flag.String("addr", "", "listen address (overrides config)")
	)
	flag.Parse()

	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.New(nil)
	if *configPath != "" {
		loaded, err := config.FromFile(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	pool, err := buildPool(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("provider pool ready", slog.Any("providers", pool.Names()))

	index, err := buildIndex(cfg)
	if err != nil {
		return err
	}
	defer index.Close()

	var store checkpoint.Store
	if path := cfg.String("checkpoint_db", ""); path != "" {
		store, err = checkpoint.NewSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		defer store.Close()
	}

	steps := &agents.Steps{
		Index:      index,
		Collection: cfg.String("collection", agents.DefaultCollection),
		TopK:       cfg.Int("top_k", 3),
		Preferred:  cfg.String("preferred_provider", ""),
	}
	graph, err := agents.BuildGraph(steps)
	if err != nil {
		return fmt.Errorf("build pipeline graph: %w", err)
	}

	runOpts := []reportflow.RunOption{
		reportflow.WithMaxIterations(cfg.Int("max_iterations", 12)),
	}
	if cfg.Bool("metrics", false) {
		runOpts = append(runOpts, reportflow.WithMetrics(observability.NewMetricsRecorder()))
	}
	if cfg.Bool("tracing", false) {
		runOpts = append(runOpts, reportflow.WithTracing())
	}
	if store != nil {
		runOpts = append(runOpts, reportflow.WithCheckpointing(store))
	}

	bridge := stream.New(graph,
		stream.WithLogger(logger),
		stream.WithBuffer(cfg.Int("event_buffer", 16)),
		stream.WithContextOptions(
			reportflow.WithProviders(pool),
		),
		stream.WithRunOptions(runOpts...),
	)

	srv := newServer(serverDeps{
		bridge:     bridge,
		index:      index,
		fetcher:    fetch.New(),
		collection: steps.Collection,
		logger:     logger,
	})

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = cfg.String("addr", ":8080")
	}
	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", listenAddr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.String("log_level", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.String("log_format", "json") == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildPool constructs providers from whichever API keys are present.
// Registration order is fallback order: gemini first to match the
// pipeline's historical default, then OpenAI-compatible backends.
func buildPool(cfg config.Config, logger *slog.Logger) (*provider.Pool, error) {
	var providers []provider.Provider

	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		gemini := cfg.Sub("gemini")
		providers = append(providers, provider.NewGemini(key,
			provider.WithGeminiModel(gemini.String("model", "gemini-2.0-flash")),
		))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		openai := cfg.Sub("openai")
		providers = append(providers, provider.NewOpenAI(key,
			provider.WithOpenAIModel(openai.String("model", "gpt-4o-mini")),
		))
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		groq := cfg.Sub("groq")
		providers = append(providers, provider.NewOpenAI(key,
			provider.WithOpenAIName("groq"),
			provider.WithOpenAIBaseURL(groq.String("base_url", "https://api.groq.com/openai/v1")),
			provider.WithOpenAIModel(groq.String("model", "llama-3.3-70b-versatile")),
		))
	}

	if len(providers) == 0 {
		return nil, errors.New("no providers configured: set GOOGLE_API_KEY, OPENAI_API_KEY, or GROQ_API_KEY")
	}

	return provider.NewPool(providers,
		provider.WithPoolLogger(logger),
		provider.WithPoolMetrics(observability.NewMetricsRecorder()),
	), nil
}

func buildIndex(cfg config.Config) (docindex.Index, error) {
	if path := cfg.String("document_db", ""); path != "" {
		idx, err := docindex.NewSQLiteIndex(path)
		if err != nil {
			return nil, fmt.Errorf("open document index: %w", err)
		}
		return idx, nil
	}
	return docindex.NewMemoryIndex(), nil
}
