package cli

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mathe-challenge-service/internal/app"
	"mathe-challenge-service/internal/catalog"
	"mathe-challenge-service/internal/config"
	"mathe-challenge-service/internal/docstore"
	"mathe-challenge-service/internal/infra/memory"
	"mathe-challenge-service/internal/infra/postgres"
)

// NewSeedCmd creates the built-in catalog challenges if they are missing.
// The server also seeds on boot; this command exists for provisioning a
// database ahead of the first deploy.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the built-in challenges if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logrus.New()

	var store docstore.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	} else {
		log.Warn("no postgres url configured, seeding an in-memory store is a no-op after exit")
	}

	repo := app.NewChallengeRepository(store, log)
	ids, err := repo.EnsureSeeded(ctx, catalog.Challenges())
	if err != nil {
		return err
	}
	log.WithField("ids", ids).Info("catalog seeded")
	return nil
}
