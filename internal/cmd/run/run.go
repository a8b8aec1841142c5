// Package run wires the conversation-memory engine's plugins together and
// runs its background services (indexer, eviction, task processor) until the
// process is asked to stop. It is the headless core entrypoint; any request
// transport (REST, gRPC, a message bus) is a separate shell that embeds this
// package's wiring rather than living inside it.
package run

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chirino/memory-service-sub009/internal/config"
	"github.com/chirino/memory-service-sub009/internal/dataencryption"
	registrycache "github.com/chirino/memory-service-sub009/internal/registry/cache"
	registryembed "github.com/chirino/memory-service-sub009/internal/registry/embed"
	registrymigrate "github.com/chirino/memory-service-sub009/internal/registry/migrate"
	registrystore "github.com/chirino/memory-service-sub009/internal/registry/store"
	registryvector "github.com/chirino/memory-service-sub009/internal/registry/vector"
	"github.com/chirino/memory-service-sub009/internal/resumer"
	"github.com/chirino/memory-service-sub009/internal/security"
	"github.com/chirino/memory-service-sub009/internal/service"
	"github.com/urfave/cli/v3"

	// Import plugins to trigger init() registration.
	_ "github.com/chirino/memory-service-sub009/internal/plugin/cache/redis"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/cache/ristretto"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/embed/local"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/encrypt/dek"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/encrypt/kms"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/encrypt/plain"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/encrypt/vault"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/store/postgres"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/vector/pgvector"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/vector/qdrant"
)

// Engine bundles everything the wiring produced, for callers (or tests) that
// want to drive the store directly instead of only running the background
// loop.
type Engine struct {
	Config  *config.Config
	Store   registrystore.MemoryStore
	Resumer *resumer.Store
	Locator resumer.LocatorStore
	Indexer *service.BackgroundIndexer
	Evictor *service.EvictionService
	Tasks   *service.TaskProcessor
}

// Build constructs every plugin named by cfg and returns the wired Engine.
// The returned context carries the config, cache, encryption service, and
// vector/embedder instances so store methods called against it behave the
// same way the background services do.
func Build(ctx context.Context, cfg *config.Config) (context.Context, *Engine, error) {
	ctx = config.WithContext(ctx, cfg)

	cacheLoader, err := registrycache.Select(cfg.CacheType)
	if err != nil {
		return ctx, nil, err
	}
	entriesCache, err := cacheLoader(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("cache %q: %w", cfg.CacheType, err)
	}
	ctx = registrycache.WithEntriesCacheContext(ctx, entriesCache)

	encSvc, err := dataencryption.New(ctx, cfg)
	if err != nil {
		return ctx, nil, err
	}
	ctx = dataencryption.WithContext(ctx, encSvc)

	var vectorStore registryvector.VectorStore
	if cfg.VectorType != "" && cfg.VectorType != "none" {
		vectorLoader, err := registryvector.Select(cfg.VectorType)
		if err != nil {
			return ctx, nil, err
		}
		vectorStore, err = vectorLoader(ctx)
		if err != nil {
			return ctx, nil, fmt.Errorf("vector store %q: %w", cfg.VectorType, err)
		}
		ctx = registryvector.WithVectorStoreContext(ctx, vectorStore)
	}

	var embedder registryembed.Embedder
	if cfg.EmbedType != "" && cfg.EmbedType != "none" {
		embedLoader, err := registryembed.Select(cfg.EmbedType)
		if err != nil {
			return ctx, nil, err
		}
		embedder, err = embedLoader(ctx)
		if err != nil {
			return ctx, nil, fmt.Errorf("embedder %q: %w", cfg.EmbedType, err)
		}
		ctx = registryembed.WithEmbedderContext(ctx, embedder)
	}

	if err := registrymigrate.RunAll(ctx); err != nil {
		return ctx, nil, fmt.Errorf("running migrations: %w", err)
	}

	storeLoader, err := registrystore.Select("postgres")
	if err != nil {
		return ctx, nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("store: %w", err)
	}

	locatorStore, err := resumer.NewLocatorStore(ctx, cfg)
	if err != nil {
		return ctx, nil, fmt.Errorf("response resumer locator: %w", err)
	}
	resumerStore := resumer.NewTempFileStore(cfg.ResolvedTempDir(), cfg.ResumerTempFileRetention, locatorStore)

	return ctx, &Engine{
		Config:  cfg,
		Store:   store,
		Resumer: resumerStore,
		Locator: locatorStore,
		Indexer: service.NewBackgroundIndexer(store, embedder, vectorStore, cfg.VectorIndexerBatchSize),
		Evictor: service.NewEvictionService(store, cfg.EvictionBatchSize, cfg.EvictionBatchDelay),
		Tasks:   service.NewTaskProcessor(store, vectorStore),
	}, nil
}

// Run starts all background services and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	go e.Indexer.Start(ctx)
	go e.Evictor.Start(ctx)
	go e.Tasks.Start(ctx)
	<-ctx.Done()
}

// Command returns the "run" sub-command: wire every plugin from config and
// run the background services until interrupted.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the memory-service engine and its background workers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-url", Sources: cli.EnvVars("MEMORY_SERVICE_DB_URL"), Required: true},
			&cli.IntFlag{Name: "db-max-open-conns", Sources: cli.EnvVars("MEMORY_SERVICE_DB_MAX_OPEN_CONNS"), Value: 25},
			&cli.IntFlag{Name: "db-max-idle-conns", Sources: cli.EnvVars("MEMORY_SERVICE_DB_MAX_IDLE_CONNS"), Value: 5},
			&cli.StringFlag{Name: "cache-type", Sources: cli.EnvVars("MEMORY_SERVICE_CACHE_TYPE"), Value: "none"},
			&cli.StringFlag{Name: "redis-url", Sources: cli.EnvVars("MEMORY_SERVICE_REDIS_URL")},
			&cli.StringFlag{Name: "vector-type", Sources: cli.EnvVars("MEMORY_SERVICE_VECTOR_TYPE"), Value: "none"},
			&cli.StringFlag{Name: "embed-type", Sources: cli.EnvVars("MEMORY_SERVICE_EMBED_TYPE"), Value: "local"},
			&cli.StringFlag{Name: "encryption-kind", Sources: cli.EnvVars("MEMORY_SERVICE_ENCRYPTION_KIND"), Value: "plain"},
			&cli.StringFlag{Name: "encryption-key", Sources: cli.EnvVars("MEMORY_SERVICE_ENCRYPTION_KEY")},
			&cli.StringFlag{Name: "temp-dir", Sources: cli.EnvVars("MEMORY_SERVICE_TEMP_DIR")},
			&cli.StringFlag{Name: "resumer-advertised-address", Sources: cli.EnvVars("MEMORY_SERVICE_RESUMER_ADVERTISED_ADDRESS")},
			&cli.StringFlag{Name: "metrics-labels", Sources: cli.EnvVars("MEMORY_SERVICE_METRICS_LABELS")},
			&cli.BoolFlag{Name: "require-justification", Sources: cli.EnvVars("MEMORY_SERVICE_ADMIN_REQUIRE_JUSTIFICATION")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DBURL = cmd.String("db-url")
			cfg.DBMaxOpenConns = int(cmd.Int("db-max-open-conns"))
			cfg.DBMaxIdleConns = int(cmd.Int("db-max-idle-conns"))
			cfg.CacheType = cmd.String("cache-type")
			cfg.RedisURL = cmd.String("redis-url")
			cfg.VectorType = cmd.String("vector-type")
			cfg.EmbedType = cmd.String("embed-type")
			cfg.EncryptionProviders = cmd.String("encryption-kind")
			cfg.EncryptionKey = cmd.String("encryption-key")
			cfg.TempDir = cmd.String("temp-dir")
			cfg.ResumerAdvertisedAddress = cmd.String("resumer-advertised-address")
			cfg.RequireJustification = cmd.Bool("require-justification")
			if err := cfg.ApplyJavaCompatFromEnv(); err != nil {
				return err
			}

			metricsLabels, err := security.ParseMetricsLabels(cmd.String("metrics-labels"))
			if err != nil {
				return err
			}
			security.InitMetrics(metricsLabels)

			builtCtx, engine, err := Build(ctx, &cfg)
			if err != nil {
				return err
			}

			log.Info("Memory service engine started",
				"cache", cfg.CacheType, "vector", cfg.VectorType, "embed", cfg.EmbedType,
				"encryption", cfg.EncryptionProviders)
			engine.Run(builtCtx)
			log.Info("Memory service engine stopped")
			return nil
		},
	}
}
