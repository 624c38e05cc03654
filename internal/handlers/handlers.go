package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Metrics        gin.HandlerFunc
}

func New(logger *logrus.Logger, services *services.Services, gatherer prometheus.Gatherer) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Recommendation: NewRecommendationHandler(services.Recommendation, logger),
		Metrics:        gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
	}
}
