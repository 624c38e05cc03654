package scoring

import "github.com/temcen/mealrec/pkg/models"

const (
	categoryFreshnessWeight = 0.4
	storeNewnessWeight      = 0.3
	recentInterestWeight    = 0.3

	freshnessWindowDays = 30

	visitRecencyWeight        = 0.6
	registrationRecencyWeight = 0.4
	visitSaturationDays       = 180.0
)

// ExplorationCalculator rewards categories the member rarely eats, stores
// not visited lately, newly registered stores and recent popularity.
type ExplorationCalculator struct{}

func (ExplorationCalculator) Criterion() models.Criterion {
	return models.CriterionExploration
}

func (c ExplorationCalculator) Calculate(store *models.Store, profile *UserProfile, cc *CalculationContext) float64 {
	return c.categoryFreshnessScore(store, profile, cc)*categoryFreshnessWeight +
		c.storeNewnessScore(store, profile, cc)*storeNewnessWeight +
		c.recentInterestScore(store, cc)*recentInterestWeight
}

func (ExplorationCalculator) categoryFreshnessScore(store *models.Store, profile *UserProfile, cc *CalculationContext) float64 {
	recent := profile.RecentExpenditures(cc.Now, freshnessWindowDays)
	if len(recent) == 0 {
		// new members are not penalized
		return NeutralScore
	}

	primary, ok := store.PrimaryCategoryID()
	if !ok {
		return NeutralScore
	}

	matches := 0
	for _, rec := range recent {
		if rec.CategoryID == primary {
			matches++
		}
	}

	proportion := float64(matches) / float64(len(recent))
	return (1 - proportion) * ScoreMax
}

func (ExplorationCalculator) storeNewnessScore(store *models.Store, profile *UserProfile, cc *CalculationContext) float64 {
	visitScore := ScoreMax
	if lastVisit, ok := profile.LastVisitDate(store.StoreID); ok {
		days := float64(daysBetween(lastVisit, cc.Now))
		visitScore = clampScore(days / visitSaturationDays * ScoreMax)
	}

	registrationScore := NeutralScore
	if store.RegisteredAt != nil {
		days := float64(daysBetween(*store.RegisteredAt, cc.Now))
		// loses 10 points per 30 days on the platform
		registrationScore = clampScore(ScoreMax - days/30.0*10)
	}

	return visitScore*visitRecencyWeight + registrationScore*registrationRecencyWeight
}

func (ExplorationCalculator) recentInterestScore(store *models.Store, cc *CalculationContext) float64 {
	return NormalizeLog(float64(store.ViewCount), cc.MinViews7Days, cc.MaxViews7Days)
}
