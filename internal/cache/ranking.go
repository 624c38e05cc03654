// Package cache keeps full rankings in Redis so that paging through a
// recommendation list does not rescore the candidates.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/pkg/models"
)

const keyPrefix = "recommendations"

// ErrMiss is returned by Get when no ranking is cached for the key.
var ErrMiss = errors.New("ranking cache miss")

// RankingKey identifies a ranking by member and request shape. Page and
// size are not part of the key.
type RankingKey struct {
	MemberID        int64
	Latitude        float64
	Longitude       float64
	RadiusKm        float64
	SortBy          models.SortBy
	IncludeDisliked bool
	OpenNow         bool
	StoreType       models.StoreType
	Keyword         string
}

func (k RankingKey) String() string {
	return fmt.Sprintf("%s:%d:%s,%s:%s:%s:%t:%t:%s:%s",
		keyPrefix,
		k.MemberID,
		// ~11 m grid so jittery GPS fixes share an entry
		strconv.FormatFloat(k.Latitude, 'f', 4, 64),
		strconv.FormatFloat(k.Longitude, 'f', 4, 64),
		strconv.FormatFloat(k.RadiusKm, 'f', 2, 64),
		k.SortBy,
		k.IncludeDisliked,
		k.OpenNow,
		k.StoreType,
		strings.ToLower(k.Keyword),
	)
}

// CachedRanking is a complete sorted result list.
type CachedRanking struct {
	RecommendationType models.RecommendationType     `json:"recommendation_type"`
	Results            []models.RecommendationResult `json:"results"`
	GeneratedAt        time.Time                     `json:"generated_at"`
}

type RankingCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRankingCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RankingCache {
	return &RankingCache{
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RankingCache) Get(ctx context.Context, key RankingKey) (*CachedRanking, error) {
	data, err := c.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("ranking cache get failed: %w", err)
	}

	var ranking CachedRanking
	if err := json.Unmarshal(data, &ranking); err != nil {
		return nil, fmt.Errorf("corrupt cached ranking: %w", err)
	}
	return &ranking, nil
}

func (c *RankingCache) Set(ctx context.Context, key RankingKey, ranking *CachedRanking) error {
	data, err := json.Marshal(ranking)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key.String(), data, c.ttl).Err()
}

// InvalidateMember drops every cached ranking of a member and returns how
// many entries were removed.
func (c *RankingCache) InvalidateMember(ctx context.Context, memberID int64) (int, error) {
	pattern := fmt.Sprintf("%s:%d:*", keyPrefix, memberID)

	var removed int
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.redis.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return removed, fmt.Errorf("ranking cache invalidation failed: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("ranking cache scan failed: %w", err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("ranking cache invalidation failed: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"member_id": memberID,
		"removed":   removed,
	}).Debug("Invalidated cached rankings")

	return removed, nil
}

// Ping reports whether the cache backend is reachable.
func (c *RankingCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
