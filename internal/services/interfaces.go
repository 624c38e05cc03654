package services

import (
	"context"

	"github.com/temcen/mealrec/internal/cache"
	"github.com/temcen/mealrec/internal/messaging"
	"github.com/temcen/mealrec/internal/repository"
	"github.com/temcen/mealrec/internal/scoring"
	"github.com/temcen/mealrec/pkg/models"
)

// RecommendationServiceInterface is what the HTTP layer depends on.
type RecommendationServiceInterface interface {
	GetRecommendations(ctx context.Context, memberID int64, req models.RecommendationRequest) (*models.RecommendationPage, error)
	GetScoreDetail(ctx context.Context, memberID, storeID int64, latitude, longitude *float64) (*models.ScoreDetailResponse, error)
	UpdateRecommendationType(ctx context.Context, memberID int64, recommendationType string) error
}

type ProfileStore interface {
	LoadUserProfile(ctx context.Context, memberID int64) (*scoring.UserProfile, error)
	UpdateRecommendationType(ctx context.Context, memberID int64, rt models.RecommendationType) error
}

type StoreFinder interface {
	FindStoresInRadius(ctx context.Context, search repository.StoreSearch) ([]models.Store, error)
	FindByID(ctx context.Context, storeID int64) (*models.Store, error)
}

type Ranker interface {
	Rank(ctx context.Context, candidates []models.Store, profile *scoring.UserProfile) ([]models.CompositeScore, error)
	Score(ctx context.Context, store models.Store, profile *scoring.UserProfile) (models.CompositeScore, error)
	Supports(rt models.RecommendationType) bool
}

type RankingCache interface {
	Get(ctx context.Context, key cache.RankingKey) (*cache.CachedRanking, error)
	Set(ctx context.Context, key cache.RankingKey, ranking *cache.CachedRanking) error
	InvalidateMember(ctx context.Context, memberID int64) (int, error)
}

type EventPublisher interface {
	PublishRecommendationServed(ctx context.Context, event messaging.RecommendationServedEvent) error
	PublishProfileChanged(ctx context.Context, event messaging.ProfileChangedEvent) error
}
