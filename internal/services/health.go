package services

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/database"
)

const healthCheckTimeout = 5 * time.Second

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type HealthService struct {
	critical    map[string]CheckFunc
	nonCritical map[string]CheckFunc
	clock       func() time.Time
	logger      *logrus.Logger

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
	Latency     time.Duration     `json:"latency,omitempty"`
}

// NewHealthService reports unhealthy when any critical check fails and
// degraded when only non-critical checks fail.
func NewHealthService(critical, nonCritical map[string]CheckFunc, reg prometheus.Registerer, logger *logrus.Logger) *HealthService {
	factory := promauto.With(reg)

	return &HealthService{
		critical:    critical,
		nonCritical: nonCritical,
		clock:       time.Now,
		logger:      logger,
		healthCheckStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_status",
			Help: "Health check status (1 = healthy, 0 = unhealthy)",
		}, []string{"service"}),
		lastHealthCheck: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_timestamp",
			Help: "Timestamp of last health check",
		}, []string{"service"}),
	}
}

// DatabaseChecks returns the probes for the connections in db. Postgres and
// the hot Redis are required to serve; Neo4j and the ranking cache only
// degrade results.
func DatabaseChecks(db *database.Database) (critical, nonCritical map[string]CheckFunc) {
	critical = map[string]CheckFunc{
		"postgresql": func(ctx context.Context) error { return db.PG.Ping(ctx) },
		"redis_hot":  func(ctx context.Context) error { return db.Redis.Hot.Ping(ctx).Err() },
	}
	nonCritical = map[string]CheckFunc{
		"neo4j":      func(ctx context.Context) error { return db.Neo4j.VerifyConnectivity(ctx) },
		"redis_warm": func(ctx context.Context) error { return db.Redis.Warm.Ping(ctx).Err() },
	}
	return critical, nonCritical
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	start := s.clock()
	status := &HealthStatus{
		Timestamp: start,
		Services:  make(map[string]string),
	}

	for _, name := range sortedNames(s.critical) {
		if err := s.run(ctx, s.critical[name]); err != nil {
			status.Services[name] = "unhealthy"
			status.Critical = append(status.Critical, name)
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", name)
			s.UpdateHealthMetrics(name, false)
			continue
		}
		status.Services[name] = "healthy"
		s.UpdateHealthMetrics(name, true)
	}

	for _, name := range sortedNames(s.nonCritical) {
		if err := s.run(ctx, s.nonCritical[name]); err != nil {
			status.Services[name] = "unhealthy"
			status.NonCritical = append(status.NonCritical, name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", name)
			s.UpdateHealthMetrics(name, false)
			continue
		}
		status.Services[name] = "healthy"
		s.UpdateHealthMetrics(name, true)
	}

	switch {
	case len(status.Critical) > 0:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}
	status.Latency = s.clock().Sub(start)

	return status
}

func (s *HealthService) run(ctx context.Context, check CheckFunc) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return check(ctx)
}

func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(s.clock().Unix()))
}

func sortedNames(checks map[string]CheckFunc) []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
