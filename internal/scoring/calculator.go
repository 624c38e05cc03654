package scoring

import "github.com/temcen/mealrec/pkg/models"

// ScoreCalculator produces a 0-100 score for one criterion. Implementations
// are stateless and safe for concurrent use.
type ScoreCalculator interface {
	Criterion() models.Criterion
	Calculate(store *models.Store, profile *UserProfile, cc *CalculationContext) float64
}

// DefaultCalculators returns one calculator per criterion.
func DefaultCalculators() []ScoreCalculator {
	return []ScoreCalculator{
		AccessibilityCalculator{},
		BudgetEfficiencyCalculator{},
		ExplorationCalculator{},
		StabilityCalculator{},
	}
}
