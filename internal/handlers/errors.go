package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/repository"
	"github.com/temcen/mealrec/internal/scoring"
	"github.com/temcen/mealrec/pkg/models"
)

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorBody{Code: code, Message: message},
	})
}

// respondError maps domain errors onto the error envelope.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		invalid    *scoring.InvalidInputError
		validation validator.ValidationErrors
		cfgErr     *scoring.ConfigurationError
	)

	switch {
	case errors.As(err, &invalid):
		abortWithError(c, http.StatusBadRequest, "INVALID_INPUT", invalid.Error())
	case errors.As(err, &validation):
		abortWithError(c, http.StatusBadRequest, "VALIDATION_FAILED", validation.Error())
	case errors.Is(err, repository.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logger.WithError(err).Warn("Request timed out")
		abortWithError(c, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out")
	case errors.As(err, &cfgErr):
		logger.WithError(err).Error("Scoring misconfigured")
		abortWithError(c, http.StatusInternalServerError, "CONFIGURATION_ERROR", "Recommendation service is misconfigured")
	default:
		logger.WithError(err).Error("Request failed")
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	}
}
