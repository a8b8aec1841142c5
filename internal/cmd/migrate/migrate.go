package migrate

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/chirino/memory-service-sub009/internal/config"
	registrymigrate "github.com/chirino/memory-service-sub009/internal/registry/migrate"
	"github.com/urfave/cli/v3"

	// Import plugins to trigger init() registration of their migrators.
	_ "github.com/chirino/memory-service-sub009/internal/plugin/store/postgres"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/vector/pgvector"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/vector/qdrant"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database and vector store migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Sources:  cli.EnvVars("MEMORY_SERVICE_DB_URL"),
				Usage:    "Database connection URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "vector-type",
				Sources: cli.EnvVars("MEMORY_SERVICE_VECTOR_TYPE"),
				Usage:   "Vector store backend (pgvector|qdrant|none)",
				Value:   "none",
			},
			&cli.StringFlag{
				Name:    "vector-qdrant-host",
				Sources: cli.EnvVars("MEMORY_SERVICE_QDRANT_HOST"),
				Usage:   "Qdrant host",
				Value:   "localhost",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DBURL = cmd.String("db-url")
			cfg.VectorType = cmd.String("vector-type")
			cfg.QdrantHost = cmd.String("vector-qdrant-host")
			ctx = config.WithContext(ctx, &cfg)

			log.Info("Running migrations...")
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("All migrations completed successfully")
			return nil
		},
	}
}
