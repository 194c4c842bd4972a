package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lindenlearn/mastery-api/internal/config"
	"github.com/lindenlearn/mastery-api/internal/domain/fire"
	"github.com/lindenlearn/mastery-api/internal/platform/cache"
	"github.com/lindenlearn/mastery-api/internal/platform/postgres"
	"github.com/lindenlearn/mastery-api/internal/service/diagnostic"
	"github.com/lindenlearn/mastery-api/internal/service/frontier"
	"github.com/lindenlearn/mastery-api/internal/service/review"
	"github.com/lindenlearn/mastery-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	// Stores (interfaces so tests can swap in memory implementations)
	graph   store.TopicGraph
	mastery store.MasteryStore
	seen    cache.SeenTopics

	// Services
	fireService       fire.Service
	frontierCalc      *frontier.Calculator
	diagnosticService *diagnostic.Service
	reviewService     *review.Service
}

// newApplication creates a new application instance with all dependencies
// initialized. The prerequisite graph is validated for cycles here so a
// broken curriculum aborts startup instead of failing per-request.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	topicGraph := postgres.NewPostgresTopicGraph(db, logger)
	if err := topicGraph.ValidateAcyclic(ctx); err != nil {
		return nil, fmt.Errorf("curriculum validation failed: %w", err)
	}
	app.graph = topicGraph
	app.mastery = postgres.NewPostgresMasteryStore(db, logger)
	logger.Info("Stores initialized")

	seen, err := setupSeenCache(ctx, app)
	if err != nil {
		return nil, err
	}
	app.seen = seen

	app.fireService = fire.NewServiceWithParams(fire.NewParams(fire.ParamsConfig{
		MinIntervalDays: cfg.Engine.MinIntervalDays,
		MaxIntervalDays: cfg.Engine.MaxIntervalDays,
	}))

	app.frontierCalc = frontier.NewCalculator(app.graph, app.mastery, logger)
	app.diagnosticService = diagnostic.NewService(app.graph, app.mastery, app.frontierCalc, app.seen, logger).
		WithQuestionBounds(cfg.Engine.MinQuestions, cfg.Engine.MaxQuestions)
	app.reviewService = review.NewService(app.graph, app.mastery, app.fireService, logger)

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupSeenCache selects the diagnostic dedup cache backend: Redis when
// configured, in-process otherwise.
func setupSeenCache(ctx context.Context, app *application) (cache.SeenTopics, error) {
	ttl := time.Duration(app.config.Cache.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}

	if app.config.Cache.RedisURL == "" {
		app.logger.Info("Using in-process seen-topic cache")
		return cache.NewMemorySeenTopics(ttl), nil
	}

	client, err := cache.NewRedisClient(ctx, app.config.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = client
	app.logger.Info("Using redis seen-topic cache")
	return cache.NewRedisSeenTopics(client, ttl), nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
