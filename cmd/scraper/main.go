// Command scraper runs one NHL career ingestion pass: it walks every active
// franchise, reconciles each player's season records into team tenures, and
// upserts the resulting documents into Redis. Interrupt it at any point; the
// checkpoint makes the next run resume from the last completed team.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pucklines/nhl-ingest/pkg/config"
	"github.com/pucklines/nhl-ingest/pkg/logging"
	"github.com/pucklines/nhl-ingest/pkg/metrics"
	"github.com/pucklines/nhl-ingest/pkg/nhlapi"
	"github.com/pucklines/nhl-ingest/pkg/ratelimit"
	"github.com/pucklines/nhl-ingest/pkg/scraper"
	"github.com/pucklines/nhl-ingest/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		fallback := logging.Setup(logging.DefaultConfig())
		fallback.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		return err
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	go serveMetrics(cfg.Scraper.MetricsAddr, logger)

	apiClient := nhlapi.New(nhlapi.Config{
		StatsBaseURL: cfg.NHLAPI.StatsBaseURL,
		WebBaseURL:   cfg.NHLAPI.WebBaseURL,
		MaxAttempts:  cfg.NHLAPI.MaxAttempts,
	})

	sched := ratelimit.New(cfg.NHLAPI.RequestsPerMinute)
	defer sched.Close()

	orchestrator := scraper.New(
		apiClient,
		sched,
		storage.NewPlayerStore(redisClient),
		storage.NewCheckpointStore(redisClient),
		scraper.Config{
			League:     cfg.Scraper.League,
			PageSize:   cfg.Scraper.PageSize,
			BatchSize:  cfg.Scraper.BatchSize,
			GraceYears: cfg.Scraper.ActiveGraceYears,
		},
	)

	if err := orchestrator.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Ingestion run failed")
		return err
	}

	return nil
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}
