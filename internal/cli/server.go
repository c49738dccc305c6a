package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"stress-check-service/internal/app"
	"stress-check-service/internal/config"
	"stress-check-service/internal/infra/memory"
	pgloader "stress-check-service/internal/infra/postgres"
	redisstore "stress-check-service/internal/infra/redis"
	"stress-check-service/internal/observability"
	transport "stress-check-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the stress check server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func stdout() io.Writer { return os.Stdout }

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	logger := observability.Configure(stdout(), cfg.Log.Level)

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

	metrics := observability.NewMetrics()
	deps, err := buildService(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(deps.service, metrics.Handler(), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting stress check service", slog.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type serviceDeps struct {
	service *app.AssessmentService
	redis   *redis.Client
	pool    *pgxpool.Pool
}

func (d serviceDeps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// buildService picks Redis or in-process storage for progress and the survey
// cache, and Postgres or the built-in definitions for surveys.
func buildService(ctx context.Context, cfg config.Config, recorder app.Recorder, logger *slog.Logger) (serviceDeps, error) {
	var deps serviceDeps
	if cfg.Redis.Addr != "" {
		deps.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			deps.Close()
			return serviceDeps{}, err
		}
		deps.pool = pool
	}

	var loader memory.SurveyLoader = memory.NewBuiltinSurveyLoader()
	if deps.pool != nil {
		loader = pgloader.NewSurveyLoader(deps.pool)
	}

	surveyTTL := config.TTLDuration(cfg.Survey.TTL, 10*time.Minute)
	progressTTL := config.TTLDuration(cfg.Progress.TTL, 30*time.Minute)

	var surveys app.SurveyRepository
	var progress app.ProgressRepository
	if deps.redis != nil {
		surveys = redisstore.NewSurveyRepository(deps.redis, loader, surveyTTL)
		progress = redisstore.NewProgressStore(deps.redis, progressTTL)
	} else {
		surveys = memory.NewSurveyRepository(loader, surveyTTL)
		progress = memory.NewProgressStore(progressTTL)
	}

	defaults := app.DefaultRoundConfig()
	round := app.RoundConfig{
		Countdown: cfg.Countdown(defaults.Countdown),
		MinDelay:  config.TTLDuration(cfg.Reaction.MinDelay, defaults.MinDelay),
		MaxDelay:  config.TTLDuration(cfg.Reaction.MaxDelay, defaults.MaxDelay),
	}

	deps.service = app.NewAssessmentService(progress, surveys,
		app.WithRecorder(recorder),
		app.WithLogger(logger),
		app.WithRoundConfig(round),
	)
	return deps, nil
}
