package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecommendationType is a member's recommendation style. It selects the
// weight profile used to combine criterion scores.
type RecommendationType string

const (
	RecommendationTypeSaver      RecommendationType = "SAVER"
	RecommendationTypeAdventurer RecommendationType = "ADVENTURER"
	RecommendationTypeBalanced   RecommendationType = "BALANCED"
)

// RecommendationTypes lists the built-in recommendation styles.
func RecommendationTypes() []RecommendationType {
	return []RecommendationType{
		RecommendationTypeSaver,
		RecommendationTypeAdventurer,
		RecommendationTypeBalanced,
	}
}

var recommendationTypePattern = regexp.MustCompile(`^[A-Z][A-Z_]*$`)

// ParseRecommendationType normalizes a style name case-insensitively. Any
// well-formed name is accepted; whether a weight profile exists for it is
// decided by the weight table.
func ParseRecommendationType(s string) (RecommendationType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !recommendationTypePattern.MatchString(name) {
		return "", fmt.Errorf("malformed recommendation type %q", s)
	}
	return RecommendationType(name), nil
}

// Criterion names one of the four scoring dimensions.
type Criterion string

const (
	CriterionAccessibility    Criterion = "accessibility"
	CriterionBudgetEfficiency Criterion = "budget_efficiency"
	CriterionExploration      Criterion = "exploration"
	CriterionStability        Criterion = "stability"
)

// Criteria returns the criteria in their canonical order.
func Criteria() []Criterion {
	return []Criterion{
		CriterionAccessibility,
		CriterionBudgetEfficiency,
		CriterionExploration,
		CriterionStability,
	}
}

// CriterionScore is one row of a score breakdown.
type CriterionScore struct {
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// CompositeScore is the ranking score of a single store.
type CompositeScore struct {
	StoreID            int64                        `json:"store_id"`
	Score              float64                      `json:"score"`
	Distance           float64                      `json:"distance_km"`
	RecommendationType RecommendationType           `json:"recommendation_type"`
	Breakdown          map[Criterion]CriterionScore `json:"breakdown"`
}

// CriterionValue returns the raw criterion score, or 0 when absent.
func (c CompositeScore) CriterionValue(criterion Criterion) float64 {
	return c.Breakdown[criterion].Score
}

// ExpenditureRecord is a single spend event of a member.
type ExpenditureRecord struct {
	CategoryID int64     `json:"category_id" db:"category_id"`
	Amount     int       `json:"amount" db:"amount"`
	ExpendedAt time.Time `json:"expended_at" db:"expended_date"`
}

// SortBy selects the ordering of a recommendation page.
type SortBy string

const (
	SortByScore     SortBy = "SCORE"
	SortByDistance  SortBy = "DISTANCE"
	SortByReview    SortBy = "REVIEW"
	SortByPriceLow  SortBy = "PRICE_LOW"
	SortByPriceHigh SortBy = "PRICE_HIGH"
)

type RecommendationRequest struct {
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	RadiusKm        float64   `json:"radius"`
	SortBy          SortBy    `json:"sort_by"`
	IncludeDisliked bool      `json:"include_disliked"`
	OpenNow         bool      `json:"open_now"`
	StoreType       StoreType `json:"store_type"`
	Keyword         string    `json:"keyword,omitempty"`
	Page            int       `json:"page"`
	Size            int       `json:"size"`
}

// RecommendationResult joins a scored store with the fields shown in listings.
type RecommendationResult struct {
	StoreID      int64          `json:"store_id"`
	StoreName    string         `json:"store_name"`
	CategoryID   *int64         `json:"category_id,omitempty"`
	Score        float64        `json:"score"`
	Distance     float64        `json:"distance_km"`
	AveragePrice int            `json:"average_price"`
	ReviewCount  int            `json:"review_count"`
	ImageURL     string         `json:"image_url,omitempty"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Detail       CompositeScore `json:"score_detail"`
}

type RecommendationPage struct {
	RecommendationID   uuid.UUID              `json:"recommendation_id"`
	MemberID           int64                  `json:"member_id"`
	RecommendationType RecommendationType     `json:"recommendation_type"`
	Results            []RecommendationResult `json:"results"`
	Page               int                    `json:"page"`
	Size               int                    `json:"size"`
	Total              int                    `json:"total"`
	HasMore            bool                   `json:"has_more"`
	Partial            bool                   `json:"partial"`
	GeneratedAt        time.Time              `json:"generated_at"`
	CacheHit           bool                   `json:"cache_hit"`
}

type ScoreDetailResponse struct {
	StoreID   int64          `json:"store_id"`
	StoreName string         `json:"store_name"`
	Distance  float64        `json:"distance_km"`
	Detail    CompositeScore `json:"score_detail"`
}

type UpdateRecommendationTypeRequest struct {
	RecommendationType string `json:"recommendationType" validate:"required,max=64"`
}
