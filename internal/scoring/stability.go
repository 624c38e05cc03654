package scoring

import (
	"math"

	"github.com/temcen/mealrec/pkg/models"
)

const (
	preferenceWeight  = 0.4
	expenditureWeight = 0.4
	reviewWeight      = 0.2

	// TimeDecayLambda discounts an expenditure by exp(-lambda * daysAgo).
	TimeDecayLambda = 0.01

	stabilityWindowDays     = 180
	minimumExpenditureCount = 3
)

// StabilityCalculator favours stores in categories the member likes and
// habitually spends on, backed by review volume.
type StabilityCalculator struct{}

func (StabilityCalculator) Criterion() models.Criterion {
	return models.CriterionStability
}

func (c StabilityCalculator) Calculate(store *models.Store, profile *UserProfile, cc *CalculationContext) float64 {
	return c.preferenceScore(store, profile)*preferenceWeight +
		c.expenditureHistoryScore(store, profile, cc)*expenditureWeight +
		c.reviewTrustScore(store, cc)*reviewWeight
}

func (StabilityCalculator) preferenceScore(store *models.Store, profile *UserProfile) float64 {
	primary, ok := store.PrimaryCategoryID()
	if !ok {
		return NeutralScore
	}
	weight, ok := profile.CategoryPreference(primary)
	if !ok {
		return NeutralScore
	}
	return Normalize(float64(weight), DislikedPreference, LikedPreference)
}

// expenditureHistoryScore is the time-decayed share of spend that went to
// the store's primary category. Members with thin history get 0, not a
// neutral score.
func (StabilityCalculator) expenditureHistoryScore(store *models.Store, profile *UserProfile, cc *CalculationContext) float64 {
	recent := profile.RecentExpenditures(cc.Now, stabilityWindowDays)
	if len(recent) < minimumExpenditureCount {
		return 0
	}

	primary, ok := store.PrimaryCategoryID()
	if !ok {
		return 0
	}

	var total, inCategory float64
	for _, rec := range recent {
		daysAgo := float64(daysBetween(rec.ExpendedAt, cc.Now))
		weighted := float64(rec.Amount) * math.Exp(-TimeDecayLambda*daysAgo)

		total += weighted
		if rec.CategoryID == primary {
			inCategory += weighted
		}
	}

	if total == 0 {
		return 0
	}
	return clampScore(inCategory / total * ScoreMax)
}

func (StabilityCalculator) reviewTrustScore(store *models.Store, cc *CalculationContext) float64 {
	return NormalizeMinMax(float64(store.ReviewCount), cc.MinReviews, cc.MaxReviews)
}
