package scoring

import "github.com/temcen/mealrec/pkg/models"

// AccessibilityCalculator favours stores close to the member. The nearest
// store of the batch scores 100 and the farthest scores 0.
type AccessibilityCalculator struct{}

func (AccessibilityCalculator) Criterion() models.Criterion {
	return models.CriterionAccessibility
}

func (AccessibilityCalculator) Calculate(store *models.Store, profile *UserProfile, cc *CalculationContext) float64 {
	distance := HaversineKm(profile.CurrentLatitude, profile.CurrentLongitude, store.Latitude, store.Longitude)
	return ScoreMax - NormalizeMinMax(distance, cc.MinDistance, cc.MaxDistance)
}
