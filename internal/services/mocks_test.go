package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/temcen/mealrec/internal/cache"
	"github.com/temcen/mealrec/internal/messaging"
	"github.com/temcen/mealrec/internal/repository"
	"github.com/temcen/mealrec/internal/scoring"
	"github.com/temcen/mealrec/pkg/models"
)

type mockProfileStore struct {
	mock.Mock
}

func (m *mockProfileStore) LoadUserProfile(ctx context.Context, memberID int64) (*scoring.UserProfile, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scoring.UserProfile), args.Error(1)
}

func (m *mockProfileStore) UpdateRecommendationType(ctx context.Context, memberID int64, rt models.RecommendationType) error {
	args := m.Called(ctx, memberID, rt)
	return args.Error(0)
}

type mockStoreFinder struct {
	mock.Mock
}

func (m *mockStoreFinder) FindStoresInRadius(ctx context.Context, search repository.StoreSearch) ([]models.Store, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Store), args.Error(1)
}

func (m *mockStoreFinder) FindByID(ctx context.Context, storeID int64) (*models.Store, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

type mockRanker struct {
	mock.Mock
}

func (m *mockRanker) Rank(ctx context.Context, candidates []models.Store, profile *scoring.UserProfile) ([]models.CompositeScore, error) {
	args := m.Called(ctx, candidates, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CompositeScore), args.Error(1)
}

func (m *mockRanker) Supports(rt models.RecommendationType) bool {
	return m.Called(rt).Bool(0)
}

func (m *mockRanker) Score(ctx context.Context, store models.Store, profile *scoring.UserProfile) (models.CompositeScore, error) {
	args := m.Called(ctx, store, profile)
	return args.Get(0).(models.CompositeScore), args.Error(1)
}

type mockRankingCache struct {
	mock.Mock
}

func (m *mockRankingCache) Get(ctx context.Context, key cache.RankingKey) (*cache.CachedRanking, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.CachedRanking), args.Error(1)
}

func (m *mockRankingCache) Set(ctx context.Context, key cache.RankingKey, ranking *cache.CachedRanking) error {
	args := m.Called(ctx, key, ranking)
	return args.Error(0)
}

func (m *mockRankingCache) InvalidateMember(ctx context.Context, memberID int64) (int, error) {
	args := m.Called(ctx, memberID)
	return args.Int(0), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishRecommendationServed(ctx context.Context, event messaging.RecommendationServedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventPublisher) PublishProfileChanged(ctx context.Context, event messaging.ProfileChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
