package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/config"
	"github.com/temcen/mealrec/pkg/models"
)

const rateLimitTimeout = time.Second

// RateLimitService is a sliding-window limiter over Redis sorted sets.
type RateLimitService struct {
	config      config.RateLimitConfig
	logger      *logrus.Logger
	redisClient *redis.Client
	clock       func() time.Time
}

func NewRateLimitService(cfg config.RateLimitConfig, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		clock:       time.Now,
	}
}

// CheckLimit records a request from clientID and reports the window state
// before it. When Redis is unavailable the request is let through.
func (s *RateLimitService) CheckLimit(ctx context.Context, clientID string) *models.RateLimitInfo {
	limit := s.config.Requests
	window := s.config.Window

	key := fmt.Sprintf("rate_limit:client:%s", clientID)

	now := s.clock()
	windowStart := now.Add(-window)

	ctx, cancel := context.WithTimeout(ctx, rateLimitTimeout)
	defer cancel()

	pipe := s.redisClient.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, window)

	resetTime := now.Add(window).Unix()

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to execute rate limit pipeline")
		return &models.RateLimitInfo{
			Limit:     limit,
			Remaining: limit - 1,
			ResetTime: resetTime,
		}
	}

	remaining := limit - int(countCmd.Val())
	if remaining < 0 {
		remaining = 0
	}

	return &models.RateLimitInfo{
		Limit:     limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}
}

func (s *RateLimitService) IsAllowed(ctx context.Context, clientID string) (bool, *models.RateLimitInfo) {
	info := s.CheckLimit(ctx, clientID)
	return info.Remaining > 0, info
}
