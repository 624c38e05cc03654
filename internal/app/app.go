package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/config"
	"github.com/temcen/mealrec/internal/database"
	"github.com/temcen/mealrec/internal/handlers"
	"github.com/temcen/mealrec/internal/middleware"
	"github.com/temcen/mealrec/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine

	stopConsumer context.CancelFunc
	consumerDone chan struct{}
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(context.Background(), cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := services.New(cfg, app.logger, db, registry)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	app.handlers = handlers.New(app.logger, svc, registry)

	var limiter middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = svc.RateLimit
	}
	app.router = newRouter(cfg, app.logger, app.handlers, limiter)

	app.startConsumer()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// startConsumer drops cached rankings when another service reports a
// profile change.
func (a *App) startConsumer() {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopConsumer = cancel
	a.consumerDone = make(chan struct{})

	go func() {
		defer close(a.consumerDone)
		err := a.services.EventBus.ConsumeProfileChanges(ctx, a.services.Recommendation.HandleProfileChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.WithError(err).Error("Profile change consumer stopped")
		}
	}()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	a.stopConsumer()
	select {
	case <-a.consumerDone:
	case <-ctx.Done():
		a.logger.Warn("Profile change consumer did not stop before shutdown deadline")
	}

	a.services.Recommendation.Wait()

	var errs []error
	if err := a.services.EventBus.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing event bus")
		errs = append(errs, err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// newRouter mounts the API. A nil limiter disables rate limiting.
func newRouter(cfg *config.Config, logger *logrus.Logger, h *handlers.Handlers, limiter middleware.RateLimiter) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.Security.CORS))

	router.GET("/health", h.Health.Check)

	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.MetricsPath, h.Metrics)
	}

	api := router.Group("/api/v1")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter, logger))
	}

	members := api.Group("/members/:memberId")
	{
		members.GET("/recommendations", h.Recommendation.List)
		members.GET("/recommendations/stores/:storeId/score-detail", h.Recommendation.ScoreDetail)
		members.PUT("/recommendation-type", h.Recommendation.UpdateRecommendationType)
	}

	return router
}
