package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mathe-challenge-service/internal/app"
	"mathe-challenge-service/internal/catalog"
	"mathe-challenge-service/internal/config"
	"mathe-challenge-service/internal/docstore"
	"mathe-challenge-service/internal/infra/memory"
	"mathe-challenge-service/internal/infra/postgres"
	redisinfra "mathe-challenge-service/internal/infra/redis"
	transport "mathe-challenge-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the challenge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store docstore.Store = memory.NewStore()
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	}

	repo := app.NewChallengeRepository(store, log)
	submissions := app.NewSubmissionService(store, log)

	boardOpts := []app.LeaderboardOption{}
	if cfg.Leaderboard.Retries > 0 {
		boardOpts = append(boardOpts, app.WithRetries(cfg.Leaderboard.Retries))
	}
	if base := config.TTLDuration(cfg.Leaderboard.RetryBase, 0); base > 0 {
		boardOpts = append(boardOpts, app.WithRetryBase(base))
	}
	board := app.NewLeaderboardService(store, log, boardOpts...)

	cacheTTL := config.TTLDuration(cfg.Challenge.CacheTTL, 10*time.Minute)
	var source app.ChallengeSource = memory.NewChallengeCache(repo, cacheTTL)
	if cfg.Redis.Addr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		source = redisinfra.NewChallengeCache(redisClient, repo, cacheTTL)
	}

	coordinator := app.NewCoordinator(app.CoordinatorConfig{
		Challenges:  source,
		Lister:      repo,
		Leaderboard: board,
		Seeder:      repo,
		Catalog:     catalog.Challenges(),
		Limit:       cfg.Leaderboard.Limit,
		Logger:      log,
	})

	ids, err := coordinator.EnsureSeeded(ctx)
	if err != nil {
		return err
	}
	log.WithField("challenges", len(ids)).Info("catalog seeded")

	api := transport.NewAPIHandler(repo, board, log)
	wsHandler := transport.NewWSHandler(source, submissions, coordinator, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting challenge service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
