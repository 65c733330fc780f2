// Package cli wires configured providers into a running agent and hosts the
// long-running command bodies (serve, chat).
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/companion"
	"github.com/aretw0/companion/internal/config"
	"github.com/aretw0/companion/internal/logging"
	"github.com/aretw0/companion/pkg/adapters/edgetts"
	"github.com/aretw0/companion/pkg/adapters/file"
	"github.com/aretw0/companion/pkg/adapters/flux"
	"github.com/aretw0/companion/pkg/adapters/gemini"
	"github.com/aretw0/companion/pkg/adapters/groq"
	inmemory "github.com/aretw0/companion/pkg/adapters/memory"
	"github.com/aretw0/companion/pkg/adapters/ollama"
	"github.com/aretw0/companion/pkg/adapters/redis"
	"github.com/aretw0/companion/pkg/adapters/sqlite"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/memory"
	"github.com/aretw0/companion/pkg/observability"
	"github.com/aretw0/companion/pkg/persistence/middleware"
	"github.com/aretw0/companion/pkg/ports"
)

// App is a fully wired agent plus the resources it holds open.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Agent   *companion.Agent
	Metrics *observability.Metrics

	closers []io.Closer
}

// Close releases databases and connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level, logging.Format(cfg.Format)), nil
}

// Build wires every collaborator named by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	app := &App{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	completer, err := NewCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mem, closer, err := NewMemory(ctx, cfg, completer, logger)
	if err != nil {
		return nil, err
	}
	app.track(closer)

	store, locker, closer, err := OpenStore(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.track(closer)

	deps := companion.Dependencies{
		Completer: completer,
		Memory:    mem,
		Images: flux.New(flux.Config{
			APIKey:  cfg.Image.APIKey,
			URL:     cfg.Image.URL,
			Host:    cfg.Image.Host,
			Timeout: cfg.Image.Timeout,
		}),
		Speech: edgetts.New(edgetts.Config{
			Endpoint: cfg.Speech.Endpoint,
			Voice:    cfg.Speech.Voice,
		}),
	}

	opts := []companion.Option{
		companion.WithSettings(cfg.Settings()),
		companion.WithStore(store),
		companion.WithLogger(logger),
		companion.WithLifecycleHooks(domain.ChainHooks(
			observability.LoggingHooks(logger),
			app.Metrics.Hooks(),
		)),
	}
	if locker != nil {
		opts = append(opts, companion.WithLocker(locker, cfg.Store.LockTTL))
	}

	app.Agent, err = companion.New(deps, opts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	logger.Debug("agent ready",
		"llm", cfg.LLM.Provider,
		"embedding", cfg.Embedding.Provider,
		"store", cfg.Store.Backend,
	)
	return app, nil
}

func (a *App) track(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// NewCompleter returns the chat completion client for llm.provider.
func NewCompleter(ctx context.Context, cfg *config.Config) (ports.Completer, error) {
	switch cfg.LLM.Provider {
	case "groq":
		if cfg.LLM.APIKey == "" {
			return nil, errors.New("llm.api_key (or GROQ_API_KEY) is required for groq")
		}
		return groq.New(groq.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}), nil
	case "ollama":
		return ollama.New(ollama.Config{
			BaseURL:   cfg.LLM.BaseURL,
			ChatModel: cfg.LLM.Model,
			Timeout:   cfg.LLM.Timeout,
		}), nil
	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey:    cfg.LLM.APIKey,
			ChatModel: cfg.LLM.Model,
		})
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
}

// NewEmbedder returns the embedding client for embedding.provider, or nil
// for "none".
func NewEmbedder(ctx context.Context, cfg *config.Config) (ports.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "none":
		return nil, nil
	case "ollama":
		return ollama.New(ollama.Config{
			BaseURL:        cfg.Embedding.BaseURL,
			EmbeddingModel: cfg.Embedding.Model,
		}), nil
	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey:         cfg.Embedding.APIKey,
			EmbeddingModel: cfg.Embedding.Model,
		})
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
}

// NewMemory builds long-term memory over the SQLite vector index. Without an
// embedder memory is disabled and nothing is opened.
func NewMemory(ctx context.Context, cfg *config.Config, analyzer ports.Completer, logger *slog.Logger) (ports.MemoryStore, io.Closer, error) {
	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if embedder == nil {
		logger.Info("long-term memory disabled", "embedding", cfg.Embedding.Provider)
		return memory.Disabled{}, nil, nil
	}

	if err := ensureParent(cfg.Memory.Path); err != nil {
		return nil, nil, err
	}
	index, err := sqlite.Open(cfg.Memory.Path)
	if err != nil {
		return nil, nil, err
	}
	mgr := memory.NewManager(analyzer, embedder, index,
		memory.WithConfig(cfg.MemoryManagerConfig()),
		memory.WithLogger(logger),
	)
	return mgr, index, nil
}

// OpenStore builds the conversation store for store.backend and wraps it
// with the configured persistence middleware. The locker is non-nil only
// for shared backends.
func OpenStore(cfg *config.Config) (ports.ConversationStore, ports.DistributedLocker, io.Closer, error) {
	var (
		store  ports.ConversationStore
		locker ports.DistributedLocker
		closer io.Closer
	)
	switch cfg.Store.Backend {
	case "memory":
		store = inmemory.NewStore()
	case "file":
		store = file.New(cfg.Store.Path)
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		store = redis.NewFromClient(client,
			redis.WithPrefix(cfg.Store.Redis.Prefix),
			redis.WithTTL(cfg.Store.Redis.TTL),
		)
		locker = redis.NewLocker(client, cfg.Store.Redis.Prefix)
		closer = client
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	mws, err := storeMiddleware(cfg.Store)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, nil, err
	}
	return middleware.Chain(store, mws...), locker, closer, nil
}

// storeMiddleware orders redaction before encryption so that masked text is
// what gets sealed.
func storeMiddleware(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.Redact {
		patterns := cfg.RedactPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("store.redact_patterns: %w", err)
			}
		}
		mws = append(mws, middleware.NewPIIMiddleware(patterns))
	}
	if cfg.EncryptionKey != "" {
		active, err := config.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("store.encryption_key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for i, k := range cfg.PreviousKeys {
			key, err := config.DecodeKey(k)
			if err != nil {
				return nil, fmt.Errorf("store.previous_keys[%d]: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	return mws, nil
}

func ensureParent(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create memory directory: %w", err)
	}
	return nil
}
