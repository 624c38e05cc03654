package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/cache"
	"github.com/temcen/mealrec/internal/config"
	"github.com/temcen/mealrec/internal/messaging"
	"github.com/temcen/mealrec/internal/repository"
	"github.com/temcen/mealrec/internal/scoring"
	"github.com/temcen/mealrec/pkg/models"
)

// RecommendationService runs the member-facing recommendation flow: load the
// profile, fetch candidates, rank, sort, page, cache and announce.
type RecommendationService struct {
	profiles ProfileStore
	stores   StoreFinder
	ranker   Ranker
	cache    RankingCache
	events   EventPublisher
	metrics  *MetricsCollector
	config   config.RecommendationConfig
	clock    func() time.Time
	logger   *logrus.Logger

	publishing sync.WaitGroup
}

// NewRecommendationService wires the flow. cache, events and metrics may be
// nil.
func NewRecommendationService(
	profiles ProfileStore,
	stores StoreFinder,
	ranker Ranker,
	rankingCache RankingCache,
	events EventPublisher,
	metrics *MetricsCollector,
	cfg config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		profiles: profiles,
		stores:   stores,
		ranker:   ranker,
		cache:    rankingCache,
		events:   events,
		metrics:  metrics,
		config:   cfg,
		clock:    time.Now,
		logger:   logger,
	}
}

func (s *RecommendationService) GetRecommendations(ctx context.Context, memberID int64, req models.RecommendationRequest) (*models.RecommendationPage, error) {
	req, err := s.normalizeRequest(req)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	profile, err := s.loadProfile(ctx, memberID, req.Latitude, req.Longitude)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	key := cache.RankingKey{
		MemberID:        memberID,
		Latitude:        profile.CurrentLatitude,
		Longitude:       profile.CurrentLongitude,
		RadiusKm:        req.RadiusKm,
		SortBy:          req.SortBy,
		IncludeDisliked: req.IncludeDisliked,
		OpenNow:         req.OpenNow,
		StoreType:       req.StoreType,
		Keyword:         req.Keyword,
	}

	var (
		results     []models.RecommendationResult
		rt          = profile.RecommendationType
		generatedAt time.Time
		cacheHit    bool
		partial     bool
	)

	if cached := s.cachedRanking(ctx, key); cached != nil {
		results, rt, generatedAt, cacheHit = cached.Results, cached.RecommendationType, cached.GeneratedAt, true
	} else {
		results, partial, err = s.rank(ctx, profile, req)
		if err != nil {
			s.recordError(err)
			return nil, err
		}
		generatedAt = s.clock()

		// a partial ranking would pin the gap for the whole TTL
		if !partial && s.cache != nil {
			ranking := &cache.CachedRanking{RecommendationType: rt, Results: results, GeneratedAt: generatedAt}
			if err := s.cache.Set(ctx, key, ranking); err != nil {
				s.logger.WithError(err).WithField("member_id", memberID).Warn("Failed to cache ranking")
			}
		}
	}

	pageResults := scoring.Paginate(results, req.Page, req.Size)
	page := &models.RecommendationPage{
		RecommendationID:   uuid.New(),
		MemberID:           memberID,
		RecommendationType: rt,
		Results:            pageResults,
		Page:               req.Page,
		Size:               req.Size,
		Total:              len(results),
		HasMore:            (req.Page+1)*req.Size < len(results),
		Partial:            partial,
		GeneratedAt:        generatedAt,
		CacheHit:           cacheHit,
	}

	s.publishServed(ctx, page)

	s.logger.WithFields(logrus.Fields{
		"member_id":           memberID,
		"recommendation_type": rt,
		"total":               page.Total,
		"returned":            len(page.Results),
		"cache_hit":           cacheHit,
		"partial":             partial,
	}).Info("Recommendations served")

	return page, nil
}

func (s *RecommendationService) GetScoreDetail(ctx context.Context, memberID, storeID int64, latitude, longitude *float64) (*models.ScoreDetailResponse, error) {
	if err := validateLocationPair(latitude, longitude); err != nil {
		return nil, err
	}

	profile, err := s.loadProfile(ctx, memberID, latitude, longitude)
	if err != nil {
		return nil, err
	}

	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}

	detail, err := s.ranker.Score(ctx, *store, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to score store %d: %w", storeID, err)
	}

	return &models.ScoreDetailResponse{
		StoreID:   store.StoreID,
		StoreName: store.Name,
		Distance:  detail.Distance,
		Detail:    detail,
	}, nil
}

// UpdateRecommendationType changes a member's style, drops their cached
// rankings and announces the change.
func (s *RecommendationService) UpdateRecommendationType(ctx context.Context, memberID int64, recommendationType string) error {
	rt, err := models.ParseRecommendationType(recommendationType)
	if err != nil {
		return &scoring.InvalidInputError{Field: "recommendationType", Reason: err.Error()}
	}
	if !s.ranker.Supports(rt) {
		return &scoring.InvalidInputError{
			Field:  "recommendationType",
			Reason: fmt.Sprintf("no weight profile for %q", rt),
		}
	}

	if err := s.profiles.UpdateRecommendationType(ctx, memberID, rt); err != nil {
		return err
	}

	s.invalidate(ctx, memberID)

	if s.events != nil {
		event := messaging.ProfileChangedEvent{
			MemberID:           memberID,
			Field:              "recommendation_type",
			RecommendationType: rt,
			ChangedAt:          s.clock(),
		}
		if err := s.events.PublishProfileChanged(ctx, event); err != nil {
			s.logger.WithError(err).WithField("member_id", memberID).Warn("Failed to publish profile change")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"member_id":           memberID,
		"recommendation_type": rt,
	}).Info("Recommendation type updated")

	return nil
}

// HandleProfileChanged consumes profile change events from other services.
func (s *RecommendationService) HandleProfileChanged(ctx context.Context, event messaging.ProfileChangedEvent) error {
	if s.cache == nil {
		return nil
	}
	if _, err := s.cache.InvalidateMember(ctx, event.MemberID); err != nil {
		return fmt.Errorf("failed to invalidate rankings for member %d: %w", event.MemberID, err)
	}
	return nil
}

// Wait blocks until in-flight event publishing finishes.
func (s *RecommendationService) Wait() {
	s.publishing.Wait()
}

func (s *RecommendationService) rank(ctx context.Context, profile *scoring.UserProfile, req models.RecommendationRequest) ([]models.RecommendationResult, bool, error) {
	search := repository.StoreSearch{
		Latitude:  profile.CurrentLatitude,
		Longitude: profile.CurrentLongitude,
		RadiusKm:  req.RadiusKm,
		Keyword:   req.Keyword,
		OpenOnly:  req.OpenNow,
		StoreType: req.StoreType,
	}
	if !req.IncludeDisliked {
		search.ExcludedCategoryIDs = profile.DislikedCategoryIDs()
	}

	candidates, err := s.stores.FindStoresInRadius(ctx, search)
	if err != nil {
		return nil, false, err
	}

	scoreCtx := ctx
	if s.config.ScoreTimeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, s.config.ScoreTimeout)
		defer cancel()
	}

	partial := false
	scores, err := s.ranker.Rank(scoreCtx, candidates, profile)
	if err != nil {
		// the scoring budget ran out but the caller is still waiting
		if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, false, err
		}
		partial = true
		s.logger.WithFields(logrus.Fields{
			"member_id":  profile.MemberID,
			"candidates": len(candidates),
			"scored":     len(scores),
		}).Warn("Scoring timed out, serving partial ranking")
	}

	byID := make(map[int64]*models.Store, len(candidates))
	for i := range candidates {
		byID[candidates[i].StoreID] = &candidates[i]
	}

	results := make([]models.RecommendationResult, 0, len(scores))
	for _, score := range scores {
		store := byID[score.StoreID]
		if store == nil {
			continue
		}
		results = append(results, toResult(store, score))
	}

	scoring.SortResults(results, req.SortBy)
	return results, partial, nil
}

func toResult(store *models.Store, score models.CompositeScore) models.RecommendationResult {
	result := models.RecommendationResult{
		StoreID:      store.StoreID,
		StoreName:    store.Name,
		Score:        score.Score,
		Distance:     score.Distance,
		AveragePrice: store.AveragePrice,
		ReviewCount:  store.ReviewCount,
		ImageURL:     store.ImageURL,
		Latitude:     store.Latitude,
		Longitude:    store.Longitude,
		Detail:       score,
	}
	if primary, ok := store.PrimaryCategoryID(); ok {
		result.CategoryID = &primary
	}
	return result
}

func (s *RecommendationService) loadProfile(ctx context.Context, memberID int64, latitude, longitude *float64) (*scoring.UserProfile, error) {
	profile, err := s.profiles.LoadUserProfile(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if latitude != nil && longitude != nil {
		profile = profile.WithLocation(*latitude, *longitude)
	}
	return profile, nil
}

func (s *RecommendationService) cachedRanking(ctx context.Context, key cache.RankingKey) *cache.CachedRanking {
	if s.cache == nil {
		return nil
	}

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WithError(err).Warn("Ranking cache unavailable")
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss()
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordCacheHit()
	}
	return cached
}

func (s *RecommendationService) invalidate(ctx context.Context, memberID int64) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.InvalidateMember(ctx, memberID); err != nil {
		s.logger.WithError(err).WithField("member_id", memberID).Warn("Failed to invalidate cached rankings")
	}
}

func (s *RecommendationService) publishServed(ctx context.Context, page *models.RecommendationPage) {
	if s.events == nil {
		return
	}

	event := messaging.RecommendationServedEvent{
		RecommendationID:   page.RecommendationID,
		MemberID:           page.MemberID,
		RecommendationType: page.RecommendationType,
		StoreIDs:           make([]int64, len(page.Results)),
		Scores:             make([]float64, len(page.Results)),
		Page:               page.Page,
		Size:               page.Size,
		Total:              page.Total,
		CacheHit:           page.CacheHit,
		Partial:            page.Partial,
		ServedAt:           s.clock(),
	}
	for i, r := range page.Results {
		event.StoreIDs[i] = r.StoreID
		event.Scores[i] = r.Score
	}

	// the response must not wait on the broker
	publishCtx := context.WithoutCancel(ctx)
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		if err := s.events.PublishRecommendationServed(publishCtx, event); err != nil {
			s.logger.WithError(err).WithField("member_id", event.MemberID).Warn("Failed to publish recommendation-served event")
		}
	}()
}

func (s *RecommendationService) recordError(err error) {
	if s.metrics != nil {
		s.metrics.RecordError(errorKind(err))
	}
}

func (s *RecommendationService) normalizeRequest(req models.RecommendationRequest) (models.RecommendationRequest, error) {
	if err := validateLocationPair(req.Latitude, req.Longitude); err != nil {
		return req, err
	}

	if req.RadiusKm == 0 {
		req.RadiusKm = s.config.DefaultRadiusKm
	}
	if req.RadiusKm < s.config.MinRadiusKm || req.RadiusKm > s.config.MaxRadiusKm {
		return req, &scoring.InvalidInputError{
			Field:  "radius",
			Reason: fmt.Sprintf("must be within [%v, %v] km", s.config.MinRadiusKm, s.config.MaxRadiusKm),
		}
	}

	switch req.SortBy {
	case "":
		req.SortBy = models.SortByScore
	case models.SortByScore, models.SortByDistance, models.SortByReview, models.SortByPriceLow, models.SortByPriceHigh:
	default:
		return req, &scoring.InvalidInputError{Field: "sortBy", Reason: fmt.Sprintf("unsupported value %q", req.SortBy)}
	}

	switch req.StoreType {
	case "":
		req.StoreType = models.StoreTypeAll
	case models.StoreTypeAll, models.StoreTypeCampusRestaurant, models.StoreTypeRestaurant:
	default:
		return req, &scoring.InvalidInputError{Field: "storeType", Reason: fmt.Sprintf("unsupported value %q", req.StoreType)}
	}

	if req.Page < 0 {
		return req, &scoring.InvalidInputError{Field: "page", Reason: "must not be negative"}
	}
	if req.Size == 0 {
		req.Size = s.config.DefaultPageSize
	}
	if req.Size < 1 || req.Size > s.config.MaxPageSize {
		return req, &scoring.InvalidInputError{
			Field:  "size",
			Reason: fmt.Sprintf("must be within [1, %d]", s.config.MaxPageSize),
		}
	}

	return req, nil
}

func validateLocationPair(latitude, longitude *float64) error {
	if (latitude == nil) != (longitude == nil) {
		return &scoring.InvalidInputError{Field: "location", Reason: "latitude and longitude must be given together"}
	}
	if latitude != nil {
		return scoring.ValidateCoordinates("location", *latitude, *longitude)
	}
	return nil
}

func errorKind(err error) string {
	var invalid *scoring.InvalidInputError
	var cfgErr *scoring.ConfigurationError
	switch {
	case errors.As(err, &invalid):
		return "invalid_input"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
