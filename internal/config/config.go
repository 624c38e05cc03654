package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/temcen/mealrec/internal/scoring"
	"github.com/temcen/mealrec/pkg/models"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig splits Redis by access pattern: hot for rate limiting, warm
// for cached rankings.
type RedisConfig struct {
	Hot  RedisInstanceConfig `mapstructure:"hot"`
	Warm RedisInstanceConfig `mapstructure:"warm"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URL            string        `mapstructure:"url"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	PoolSize       int           `mapstructure:"pool_size"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	Topics  struct {
		RecommendationServed string `mapstructure:"recommendation_served"`
		MemberProfileChanged string `mapstructure:"member_profile_changed"`
	} `mapstructure:"topics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RecommendationConfig struct {
	Workers         int            `mapstructure:"workers"`
	DefaultRadiusKm float64        `mapstructure:"default_radius_km"`
	MinRadiusKm     float64        `mapstructure:"min_radius_km"`
	MaxRadiusKm     float64        `mapstructure:"max_radius_km"`
	DefaultPageSize int            `mapstructure:"default_page_size"`
	MaxPageSize     int            `mapstructure:"max_page_size"`
	ScoreTimeout    time.Duration  `mapstructure:"score_timeout"`
	CacheTTL        time.Duration  `mapstructure:"cache_ttl"`
	DefaultLocation LocationConfig `mapstructure:"default_location"`

	// ProfilesFile optionally points at a JSON weight document that replaces
	// Weights after schema validation.
	ProfilesFile string        `mapstructure:"profiles_file"`
	Weights      WeightsConfig `mapstructure:"weights"`
}

type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

type WeightsConfig struct {
	Saver      scoring.WeightProfile `mapstructure:"saver"`
	Adventurer scoring.WeightProfile `mapstructure:"adventurer"`
	Balanced   scoring.WeightProfile `mapstructure:"balanced"`
}

// Table returns the weight rows keyed by recommendation type.
func (w WeightsConfig) Table() map[models.RecommendationType]scoring.WeightProfile {
	return map[models.RecommendationType]scoring.WeightProfile{
		models.RecommendationTypeSaver:      w.Saver,
		models.RecommendationTypeAdventurer: w.Adventurer,
		models.RecommendationTypeBalanced:   w.Balanced,
	}
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	return load(v)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	r := c.Recommendation
	if r.MinRadiusKm <= 0 || r.MaxRadiusKm < r.MinRadiusKm {
		return fmt.Errorf("recommendation radius bounds [%v, %v] are invalid", r.MinRadiusKm, r.MaxRadiusKm)
	}
	if r.DefaultRadiusKm < r.MinRadiusKm || r.DefaultRadiusKm > r.MaxRadiusKm {
		return fmt.Errorf("recommendation.default_radius_km %v outside [%v, %v]", r.DefaultRadiusKm, r.MinRadiusKm, r.MaxRadiusKm)
	}
	if r.MaxPageSize <= 0 || r.DefaultPageSize <= 0 || r.DefaultPageSize > r.MaxPageSize {
		return fmt.Errorf("recommendation page size %d must be within [1, %d]", r.DefaultPageSize, r.MaxPageSize)
	}
	if r.Workers < 0 {
		return fmt.Errorf("recommendation.workers must not be negative")
	}
	if err := scoring.ValidateCoordinates("recommendation.default_location", r.DefaultLocation.Latitude, r.DefaultLocation.Longitude); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle_time", "15m")
	v.SetDefault("database.max_lifetime", "1h")
	v.SetDefault("database.connect_timeout", "10s")

	// Neo4j defaults
	v.SetDefault("neo4j.pool_size", 10)
	v.SetDefault("neo4j.acquire_timeout", "30s")

	// Redis defaults
	v.SetDefault("redis.hot.url", "localhost:6379")
	v.SetDefault("redis.hot.max_retries", 3)
	v.SetDefault("redis.hot.pool_size", 10)
	v.SetDefault("redis.hot.timeout", "5s")
	v.SetDefault("redis.warm.url", "localhost:6379")
	v.SetDefault("redis.warm.max_retries", 3)
	v.SetDefault("redis.warm.pool_size", 5)
	v.SetDefault("redis.warm.timeout", "10s")

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "mealrec")
	v.SetDefault("kafka.topics.recommendation_served", "recommendation-served")
	v.SetDefault("kafka.topics.member_profile_changed", "member-profile-changed")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Recommendation defaults
	v.SetDefault("recommendation.workers", 0)
	v.SetDefault("recommendation.default_radius_km", 0.5)
	v.SetDefault("recommendation.min_radius_km", 0.1)
	v.SetDefault("recommendation.max_radius_km", 10.0)
	v.SetDefault("recommendation.default_page_size", 20)
	v.SetDefault("recommendation.max_page_size", 100)
	v.SetDefault("recommendation.score_timeout", "2s")
	v.SetDefault("recommendation.cache_ttl", "15m")
	// Seoul City Hall
	v.SetDefault("recommendation.default_location.latitude", 37.5665)
	v.SetDefault("recommendation.default_location.longitude", 126.9780)

	for rt, w := range scoring.DefaultWeightProfiles() {
		prefix := "recommendation.weights." + strings.ToLower(string(rt))
		v.SetDefault(prefix+".accessibility", w.Accessibility)
		v.SetDefault(prefix+".budget_efficiency", w.BudgetEfficiency)
		v.SetDefault(prefix+".exploration", w.Exploration)
		v.SetDefault(prefix+".stability", w.Stability)
	}

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 120)
	v.SetDefault("rate_limit.window", "1m")

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "PUT", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"*"})
}
