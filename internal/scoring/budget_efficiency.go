package scoring

import "github.com/temcen/mealrec/pkg/models"

const (
	valueForMoneyWeight = 0.6
	budgetFitWeight     = 0.4

	budgetFitFullPrice = 10000
	budgetFitZeroPrice = 20000
)

// BudgetEfficiencyCalculator combines review-per-price value with a fixed
// price ladder.
type BudgetEfficiencyCalculator struct{}

func (BudgetEfficiencyCalculator) Criterion() models.Criterion {
	return models.CriterionBudgetEfficiency
}

func (c BudgetEfficiencyCalculator) Calculate(store *models.Store, profile *UserProfile, cc *CalculationContext) float64 {
	return c.valueForMoneyScore(store, cc)*valueForMoneyWeight +
		c.budgetFitScore(store, profile)*budgetFitWeight
}

func (BudgetEfficiencyCalculator) valueForMoneyScore(store *models.Store, cc *CalculationContext) float64 {
	return NormalizeMinMax(valueForMoney(store), cc.MinValueForMoney, cc.MaxValueForMoney)
}

// budgetFitScore only looks at the store price for now.
// TODO: compare against the member's per-meal budget once the budget service feeds UserProfile.
func (BudgetEfficiencyCalculator) budgetFitScore(store *models.Store, _ *UserProfile) float64 {
	price := store.AveragePrice
	switch {
	case price <= budgetFitFullPrice:
		return ScoreMax
	case price >= budgetFitZeroPrice:
		return ScoreMin
	default:
		return ScoreMax - float64(price-budgetFitFullPrice)/100.0
	}
}
