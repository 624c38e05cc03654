package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/config"
)

const defaultConnectTimeout = 10 * time.Second

// Database owns the connections behind the recommendation service: stores
// and member profiles in PostgreSQL, visit history in Neo4j, rate limits and
// cached rankings in Redis.
type Database struct {
	PG     *pgxpool.Pool
	Neo4j  neo4j.DriverWithContext
	Redis  *RedisClients
	logger *logrus.Logger
}

type RedisClients struct {
	// Hot serves per-request counters such as rate limits.
	Hot *redis.Client
	// Warm holds cached rankings.
	Warm *redis.Client
}

// New connects every backend in turn, bounded by the configured connect
// timeout. Anything already opened is closed again when a later backend
// fails.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Database, error) {
	timeout := cfg.Database.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db := &Database{logger: logger}

	steps := []struct {
		backend string
		connect func(context.Context, *config.Config) error
	}{
		{"PostgreSQL", db.connectPostgres},
		{"Neo4j", db.connectNeo4j},
		{"Redis", db.connectRedis},
	}

	for _, step := range steps {
		if err := step.connect(ctx, cfg); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				logger.WithError(closeErr).Warn("Failed to release partially opened connections")
			}
			return nil, fmt.Errorf("failed to initialize %s: %w", step.backend, err)
		}
		logger.WithField("backend", step.backend).Info("Connection established")
	}

	return db, nil
}

func (db *Database) connectPostgres(ctx context.Context, cfg *config.Config) error {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("invalid PostgreSQL URL: %w", err)
	}
	if cfg.Database.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxConnections)
	}
	poolConfig.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolConfig.MaxConnLifetime = cfg.Database.MaxLifetime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Database.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping failed: %w", err)
	}

	db.PG = pool
	return nil
}

func (db *Database) connectNeo4j(ctx context.Context, cfg *config.Config) error {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4j.URL,
		neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""),
		func(c *neo4j.Config) {
			if cfg.Neo4j.PoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.Neo4j.PoolSize
			}
			if cfg.Neo4j.AcquireTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.Neo4j.AcquireTimeout
			}
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return fmt.Errorf("connectivity check failed: %w", err)
	}

	db.Neo4j = driver
	return nil
}

func (db *Database) connectRedis(ctx context.Context, cfg *config.Config) error {
	db.Redis = &RedisClients{
		Hot:  newRedisClient(cfg.Redis.Hot),
		Warm: newRedisClient(cfg.Redis.Warm),
	}
	for _, instance := range db.Redis.named() {
		if err := instance.client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping %s instance at %s failed: %w", instance.role, instance.client.Options().Addr, err)
		}
	}
	return nil
}

func newRedisClient(cfg config.RedisInstanceConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
}

type namedRedis struct {
	role   string
	client *redis.Client
}

func (r *RedisClients) named() []namedRedis {
	var out []namedRedis
	if r.Hot != nil {
		out = append(out, namedRedis{"hot", r.Hot})
	}
	if r.Warm != nil {
		out = append(out, namedRedis{"warm", r.Warm})
	}
	return out
}

// Close releases every open connection and reports all failures together.
// It is safe on a partially initialized Database.
func (db *Database) Close() error {
	var errs []error

	if db.PG != nil {
		db.PG.Close()
		db.PG = nil
	}

	if db.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
		if err := db.Neo4j.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close Neo4j: %w", err))
		}
		cancel()
		db.Neo4j = nil
	}

	if db.Redis != nil {
		for _, instance := range db.Redis.named() {
			if err := instance.client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close Redis %s: %w", instance.role, err))
			}
		}
		db.Redis = nil
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	db.logger.Info("Database connections closed")
	return nil
}
