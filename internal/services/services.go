package services

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/cache"
	"github.com/temcen/mealrec/internal/config"
	"github.com/temcen/mealrec/internal/database"
	"github.com/temcen/mealrec/internal/messaging"
	"github.com/temcen/mealrec/internal/repository"
	"github.com/temcen/mealrec/internal/scoring"
	"github.com/temcen/mealrec/internal/validation"
	"github.com/temcen/mealrec/pkg/models"
)

type Services struct {
	Health         *HealthService
	RateLimit      *RateLimitService
	Metrics        *MetricsCollector
	EventBus       *messaging.EventBus
	Engine         *scoring.Engine
	Recommendation *RecommendationService
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, reg prometheus.Registerer) (*Services, error) {
	weights, err := LoadWeightTable(cfg.Recommendation)
	if err != nil {
		return nil, err
	}

	metrics := NewMetricsCollector(reg)

	engine, err := scoring.NewEngine(weights, logger,
		scoring.WithWorkers(cfg.Recommendation.Workers),
		scoring.WithObserver(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build scoring engine: %w", err)
	}

	visits := repository.NewVisitHistoryRepository(db.Neo4j, logger)
	profiles := repository.NewProfileRepository(
		db.PG, visits,
		cfg.Recommendation.DefaultLocation.Latitude,
		cfg.Recommendation.DefaultLocation.Longitude,
		logger,
	)
	stores := repository.NewStoreRepository(db.PG, logger)
	rankings := cache.NewRankingCache(db.Redis.Warm, cfg.Recommendation.CacheTTL, logger)
	eventBus := messaging.NewEventBus(cfg, logger)

	critical, nonCritical := DatabaseChecks(db)
	healthService := NewHealthService(critical, nonCritical, reg, logger)

	recommendation := NewRecommendationService(
		profiles, stores, engine, rankings, eventBus, metrics,
		cfg.Recommendation, logger,
	)

	return &Services{
		Health:         healthService,
		RateLimit:      NewRateLimitService(cfg.RateLimit, logger, db.Redis.Hot),
		Metrics:        metrics,
		EventBus:       eventBus,
		Engine:         engine,
		Recommendation: recommendation,
	}, nil
}

// LoadWeightTable builds the weight table from the JSON document named by
// profiles_file, or from the configured rows when no file is set.
func LoadWeightTable(cfg config.RecommendationConfig) (*scoring.WeightTable, error) {
	var rows map[models.RecommendationType]scoring.WeightProfile

	if cfg.ProfilesFile != "" {
		validator, err := validation.NewSchemaValidator()
		if err != nil {
			return nil, err
		}
		rows, err = validator.LoadWeightProfiles(cfg.ProfilesFile)
		if err != nil {
			return nil, err
		}
	} else {
		rows = cfg.Weights.Table()
	}

	table, err := scoring.NewWeightTable(rows)
	if err != nil {
		return nil, fmt.Errorf("invalid weight profiles: %w", err)
	}
	return table, nil
}
