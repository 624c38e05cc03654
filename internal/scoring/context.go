package scoring

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/temcen/mealrec/pkg/models"
)

// CalculationContext holds the batch statistics every calculator normalizes
// against. It is computed once per request and never mutated afterwards.
type CalculationContext struct {
	MinDistance      float64
	MaxDistance      float64
	MinValueForMoney float64
	MaxValueForMoney float64
	MinViews7Days    float64
	MaxViews7Days    float64
	MinReviews       float64
	MaxReviews       float64

	// Now is the evaluation instant shared by all time-based signals.
	Now time.Time
}

// NewCalculationContext reduces the candidate batch to its min/max bounds.
// An empty batch yields all-zero bounds.
func NewCalculationContext(stores []models.Store, profile *UserProfile, now time.Time) CalculationContext {
	cc := CalculationContext{Now: now}
	if len(stores) == 0 {
		return cc
	}

	distances := make([]float64, len(stores))
	values := make([]float64, len(stores))
	views := make([]float64, len(stores))
	reviews := make([]float64, len(stores))

	for i := range stores {
		s := &stores[i]
		distances[i] = HaversineKm(profile.CurrentLatitude, profile.CurrentLongitude, s.Latitude, s.Longitude)
		values[i] = valueForMoney(s)
		views[i] = float64(s.ViewCount)
		reviews[i] = float64(s.ReviewCount)
	}

	cc.MinDistance, cc.MaxDistance = floats.Min(distances), floats.Max(distances)
	cc.MinValueForMoney, cc.MaxValueForMoney = floats.Min(values), floats.Max(values)
	cc.MinViews7Days, cc.MaxViews7Days = floats.Min(views), floats.Max(views)
	cc.MinReviews, cc.MaxReviews = floats.Min(reviews), floats.Max(reviews)

	return cc
}

// DegenerateBounds names the bound pairs that collapsed to a single value.
// Calculators fall back to NeutralScore for those signals.
func (c CalculationContext) DegenerateBounds() []string {
	var collapsed []string
	if c.MinDistance == c.MaxDistance {
		collapsed = append(collapsed, "distance")
	}
	if c.MinValueForMoney == c.MaxValueForMoney {
		collapsed = append(collapsed, "value_for_money")
	}
	if c.MinViews7Days == c.MaxViews7Days {
		collapsed = append(collapsed, "views_7_days")
	}
	if c.MinReviews == c.MaxReviews {
		collapsed = append(collapsed, "reviews")
	}
	return collapsed
}

// valueForMoney is log(1+reviews)/price. Non-positive prices count as 1 so
// the context bounds and the calculator agree on every candidate.
func valueForMoney(s *models.Store) float64 {
	price := s.AveragePrice
	if price <= 0 {
		price = 1
	}
	reviews := s.ReviewCount
	if reviews < 0 {
		reviews = 0
	}
	return math.Log1p(float64(reviews)) / float64(price)
}
