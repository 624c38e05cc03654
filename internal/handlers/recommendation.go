package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/services"
	"github.com/temcen/mealrec/pkg/models"
)

// RecommendationQuery is the query string of the recommendation listing.
// Radius bounds are enforced by the service from configuration.
type RecommendationQuery struct {
	Latitude        *float64 `form:"latitude" validate:"required_with=Longitude,omitempty,gte=-90,lte=90"`
	Longitude       *float64 `form:"longitude" validate:"required_with=Latitude,omitempty,gte=-180,lte=180"`
	Radius          float64  `form:"radius" validate:"omitempty,gt=0"`
	SortBy          string   `form:"sortBy" validate:"omitempty,oneof=SCORE DISTANCE REVIEW PRICE_LOW PRICE_HIGH"`
	IncludeDisliked bool     `form:"includeDisliked"`
	OpenNow         bool     `form:"openNow"`
	StoreType       string   `form:"storeType" validate:"omitempty,oneof=ALL CAMPUS_RESTAURANT RESTAURANT"`
	Keyword         string   `form:"keyword" validate:"max=100"`
	Page            int      `form:"page" validate:"min=0"`
	Size            int      `form:"size" validate:"omitempty,min=1,max=100"`
}

func (q RecommendationQuery) toRequest() models.RecommendationRequest {
	return models.RecommendationRequest{
		Latitude:        q.Latitude,
		Longitude:       q.Longitude,
		RadiusKm:        q.Radius,
		SortBy:          models.SortBy(q.SortBy),
		IncludeDisliked: q.IncludeDisliked,
		OpenNow:         q.OpenNow,
		StoreType:       models.StoreType(q.StoreType),
		Keyword:         q.Keyword,
		Page:            q.Page,
		Size:            q.Size,
	}
}

type ScoreDetailQuery struct {
	Latitude  *float64 `form:"latitude" validate:"required_with=Longitude,omitempty,gte=-90,lte=90"`
	Longitude *float64 `form:"longitude" validate:"required_with=Latitude,omitempty,gte=-180,lte=180"`
}

type RecommendationHandler struct {
	service   services.RecommendationServiceInterface
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewRecommendationHandler(service services.RecommendationServiceInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// List handles GET /api/v1/members/:memberId/recommendations.
func (h *RecommendationHandler) List(c *gin.Context) {
	memberID, ok := parseIDParam(c, "memberId", "INVALID_MEMBER_ID")
	if !ok {
		return
	}

	var query RecommendationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	if err := h.validator.Struct(&query); err != nil {
		h.logger.WithError(err).Debug("Recommendation query validation failed")
		respondError(c, h.logger, err)
		return
	}

	page, err := h.service.GetRecommendations(c.Request.Context(), memberID, query.toRequest())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// ScoreDetail handles GET /api/v1/members/:memberId/recommendations/stores/:storeId/score-detail.
func (h *RecommendationHandler) ScoreDetail(c *gin.Context) {
	memberID, ok := parseIDParam(c, "memberId", "INVALID_MEMBER_ID")
	if !ok {
		return
	}
	storeID, ok := parseIDParam(c, "storeId", "INVALID_STORE_ID")
	if !ok {
		return
	}

	var query ScoreDetailQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	if err := h.validator.Struct(&query); err != nil {
		respondError(c, h.logger, err)
		return
	}

	detail, err := h.service.GetScoreDetail(c.Request.Context(), memberID, storeID, query.Latitude, query.Longitude)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// UpdateRecommendationType handles PUT /api/v1/members/:memberId/recommendation-type.
func (h *RecommendationHandler) UpdateRecommendationType(c *gin.Context) {
	memberID, ok := parseIDParam(c, "memberId", "INVALID_MEMBER_ID")
	if !ok {
		return
	}

	var request models.UpdateRecommendationTypeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}
	if err := h.validator.Struct(&request); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.service.UpdateRecommendationType(c.Request.Context(), memberID, request.RecommendationType); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member_id":           memberID,
		"recommendation_type": request.RecommendationType,
	})
}

func parseIDParam(c *gin.Context, name, code string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, code, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
