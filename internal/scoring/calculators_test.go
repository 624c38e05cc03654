package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/mealrec/pkg/models"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func testProfile() *UserProfile {
	return &UserProfile{
		MemberID:            1,
		RecommendationType:  models.RecommendationTypeSaver,
		CurrentLatitude:     37.5665,
		CurrentLongitude:    126.9780,
		CategoryPreferences: map[int64]int{},
		LastVisits:          map[int64]time.Time{},
	}
}

func testStore(id int64, categoryIDs ...int64) models.Store {
	return models.Store{
		StoreID:      id,
		Name:         "store",
		CategoryIDs:  categoryIDs,
		Latitude:     37.5665,
		Longitude:    126.9780,
		AveragePrice: 8000,
		ReviewCount:  10,
		ViewCount:    100,
		StoreType:    models.StoreTypeRestaurant,
	}
}

func daysAgo(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

func TestAccessibilityCalculator_NearestAndFarthest(t *testing.T) {
	profile := testProfile()

	near := testStore(1, 10)
	far := testStore(2, 10)
	// due north along the meridian, 10 km away
	far.Latitude = profile.CurrentLatitude + 10/EarthRadiusKm*180/math.Pi

	stores := []models.Store{near, far}
	cc := NewCalculationContext(stores, profile, testNow)
	calc := AccessibilityCalculator{}

	assert.InDelta(t, 0.0, cc.MinDistance, 1e-9)
	assert.InDelta(t, 10.0, cc.MaxDistance, 1e-9)
	assert.InDelta(t, 100.0, calc.Calculate(&stores[0], profile, &cc), 1e-9)
	assert.InDelta(t, 0.0, calc.Calculate(&stores[1], profile, &cc), 1e-9)
}

func TestAccessibilityCalculator_CloserScoresHigher(t *testing.T) {
	profile := testProfile()

	stores := make([]models.Store, 5)
	for i := range stores {
		stores[i] = testStore(int64(i+1), 10)
		stores[i].Latitude += float64(i) * 0.002
	}
	cc := NewCalculationContext(stores, profile, testNow)
	calc := AccessibilityCalculator{}

	prev := ScoreMax + 1
	for i := range stores {
		score := calc.Calculate(&stores[i], profile, &cc)
		assert.Less(t, score, prev)
		prev = score
	}
}

func TestAccessibilityCalculator_SingleStoreIsNeutral(t *testing.T) {
	profile := testProfile()
	stores := []models.Store{testStore(1, 10)}
	cc := NewCalculationContext(stores, profile, testNow)

	assert.Equal(t, NeutralScore, AccessibilityCalculator{}.Calculate(&stores[0], profile, &cc))
}

func TestBudgetEfficiencyCalculator_BudgetFit(t *testing.T) {
	calc := BudgetEfficiencyCalculator{}
	profile := testProfile()

	tests := []struct {
		price    int
		expected float64
	}{
		{5000, 100},
		{8000, 100},
		{10000, 100},
		{12500, 75},
		{15000, 50},
		{20000, 0},
		{25000, 0},
	}

	for _, tt := range tests {
		store := testStore(1, 10)
		store.AveragePrice = tt.price
		assert.InDelta(t, tt.expected, calc.budgetFitScore(&store, profile), 1e-9, "price %d", tt.price)
	}
}

func TestBudgetEfficiencyCalculator_ValueForMoney(t *testing.T) {
	profile := testProfile()

	cheapPopular := testStore(1, 10)
	cheapPopular.AveragePrice = 8000
	cheapPopular.ReviewCount = 500

	pricey := testStore(2, 10)
	pricey.AveragePrice = 30000
	pricey.ReviewCount = 5

	stores := []models.Store{cheapPopular, pricey}
	cc := NewCalculationContext(stores, profile, testNow)
	calc := BudgetEfficiencyCalculator{}

	// best value and full budget fit versus worst value and no budget fit
	assert.InDelta(t, 100.0, calc.Calculate(&stores[0], profile, &cc), 1e-9)
	assert.InDelta(t, 0.0, calc.Calculate(&stores[1], profile, &cc), 1e-9)
}

func TestBudgetEfficiencyCalculator_ZeroPriceStaysInRange(t *testing.T) {
	profile := testProfile()

	free := testStore(1, 10)
	free.AveragePrice = 0
	normal := testStore(2, 10)

	stores := []models.Store{free, normal}
	cc := NewCalculationContext(stores, profile, testNow)

	for i := range stores {
		score := BudgetEfficiencyCalculator{}.Calculate(&stores[i], profile, &cc)
		assert.GreaterOrEqual(t, score, ScoreMin)
		assert.LessOrEqual(t, score, ScoreMax)
	}
}

func TestExplorationCalculator_NewnessOfUnvisitedUnregisteredStore(t *testing.T) {
	profile := testProfile()
	store := testStore(1, 10)
	cc := CalculationContext{Now: testNow}

	// never visited (100) blended with unknown registration date (50)
	assert.InDelta(t, 80.0, ExplorationCalculator{}.storeNewnessScore(&store, profile, &cc), 1e-9)
}

func TestExplorationCalculator_StoreNewness(t *testing.T) {
	cc := CalculationContext{Now: testNow}
	calc := ExplorationCalculator{}

	t.Run("visited today, registered today", func(t *testing.T) {
		profile := testProfile()
		profile.LastVisits[1] = testNow
		store := testStore(1, 10)
		registered := testNow
		store.RegisteredAt = &registered

		// 0*0.6 + 100*0.4
		assert.InDelta(t, 40.0, calc.storeNewnessScore(&store, profile, &cc), 1e-9)
	})

	t.Run("visited 90 days ago, registered 60 days ago", func(t *testing.T) {
		profile := testProfile()
		profile.LastVisits[1] = daysAgo(90)
		store := testStore(1, 10)
		registered := daysAgo(60)
		store.RegisteredAt = &registered

		// 50*0.6 + 80*0.4
		assert.InDelta(t, 62.0, calc.storeNewnessScore(&store, profile, &cc), 1e-9)
	})

	t.Run("long-standing store not visited for a year", func(t *testing.T) {
		profile := testProfile()
		profile.LastVisits[1] = daysAgo(365)
		store := testStore(1, 10)
		registered := daysAgo(3650)
		store.RegisteredAt = &registered

		assert.InDelta(t, 60.0, calc.storeNewnessScore(&store, profile, &cc), 1e-9)
	})
}

func TestExplorationCalculator_CategoryFreshness(t *testing.T) {
	cc := CalculationContext{Now: testNow}
	calc := ExplorationCalculator{}
	store := testStore(1, 10)

	t.Run("no history is neutral", func(t *testing.T) {
		assert.Equal(t, NeutralScore, calc.categoryFreshnessScore(&store, testProfile(), &cc))
	})

	t.Run("quarter of recent meals in category", func(t *testing.T) {
		profile := testProfile()
		profile.Expenditures = []models.ExpenditureRecord{
			{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(1)},
			{CategoryID: 20, Amount: 9000, ExpendedAt: daysAgo(2)},
			{CategoryID: 20, Amount: 9000, ExpendedAt: daysAgo(3)},
			{CategoryID: 30, Amount: 9000, ExpendedAt: daysAgo(4)},
			// outside the 30 day window
			{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(45)},
		}
		assert.InDelta(t, 75.0, calc.categoryFreshnessScore(&store, profile, &cc), 1e-9)
	})

	t.Run("store without category is neutral", func(t *testing.T) {
		profile := testProfile()
		profile.Expenditures = []models.ExpenditureRecord{{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(1)}}
		bare := testStore(2)
		assert.Equal(t, NeutralScore, calc.categoryFreshnessScore(&bare, profile, &cc))
	})
}

func TestStabilityCalculator_Preference(t *testing.T) {
	calc := StabilityCalculator{}
	store := testStore(1, 10)

	tests := []struct {
		name     string
		prefs    map[int64]int
		expected float64
	}{
		{"liked", map[int64]int{10: LikedPreference}, 100},
		{"disliked", map[int64]int{10: DislikedPreference}, 0},
		{"indifferent", map[int64]int{10: 0}, 50},
		{"no preference on record", map[int64]int{20: LikedPreference}, NeutralScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := testProfile()
			profile.CategoryPreferences = tt.prefs
			assert.InDelta(t, tt.expected, calc.preferenceScore(&store, profile), 1e-9)
		})
	}
}

func TestStabilityCalculator_ExpenditureHistory(t *testing.T) {
	cc := CalculationContext{Now: testNow}
	calc := StabilityCalculator{}
	store := testStore(1, 10)

	t.Run("fewer than three records scores zero", func(t *testing.T) {
		profile := testProfile()
		profile.Expenditures = []models.ExpenditureRecord{
			{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(1)},
			{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(2)},
		}
		assert.Equal(t, 0.0, calc.expenditureHistoryScore(&store, profile, &cc))
	})

	t.Run("all spend in category", func(t *testing.T) {
		profile := testProfile()
		profile.Expenditures = []models.ExpenditureRecord{
			{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(1)},
			{CategoryID: 10, Amount: 7000, ExpendedAt: daysAgo(20)},
			{CategoryID: 10, Amount: 12000, ExpendedAt: daysAgo(100)},
		}
		assert.InDelta(t, 100.0, calc.expenditureHistoryScore(&store, profile, &cc), 1e-9)
	})

	t.Run("same day spend splits evenly", func(t *testing.T) {
		profile := testProfile()
		profile.Expenditures = []models.ExpenditureRecord{
			{CategoryID: 10, Amount: 1000, ExpendedAt: testNow},
			{CategoryID: 10, Amount: 1000, ExpendedAt: testNow},
			{CategoryID: 20, Amount: 1000, ExpendedAt: testNow},
		}
		assert.InDelta(t, 200.0/3.0, calc.expenditureHistoryScore(&store, profile, &cc), 1e-9)
	})

	t.Run("recent spend outweighs old spend", func(t *testing.T) {
		recent := testProfile()
		recent.Expenditures = []models.ExpenditureRecord{
			{CategoryID: 10, Amount: 1000, ExpendedAt: daysAgo(1)},
			{CategoryID: 20, Amount: 1000, ExpendedAt: daysAgo(150)},
			{CategoryID: 30, Amount: 1000, ExpendedAt: daysAgo(150)},
		}
		old := testProfile()
		old.Expenditures = []models.ExpenditureRecord{
			{CategoryID: 10, Amount: 1000, ExpendedAt: daysAgo(150)},
			{CategoryID: 20, Amount: 1000, ExpendedAt: daysAgo(1)},
			{CategoryID: 30, Amount: 1000, ExpendedAt: daysAgo(1)},
		}
		assert.Greater(t,
			calc.expenditureHistoryScore(&store, recent, &cc),
			calc.expenditureHistoryScore(&store, old, &cc))
	})

	t.Run("records older than the window are ignored", func(t *testing.T) {
		profile := testProfile()
		profile.Expenditures = []models.ExpenditureRecord{
			{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(1)},
			{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(2)},
			{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(200)},
		}
		assert.Equal(t, 0.0, calc.expenditureHistoryScore(&store, profile, &cc))
	})
}

func TestCalculators_StayWithinRange(t *testing.T) {
	profile := testProfile()
	profile.CategoryPreferences = map[int64]int{10: 100, 20: -100, 30: 40}
	profile.Expenditures = []models.ExpenditureRecord{
		{CategoryID: 10, Amount: 9000, ExpendedAt: daysAgo(1)},
		{CategoryID: 20, Amount: 15000, ExpendedAt: daysAgo(10)},
		{CategoryID: 30, Amount: 6000, ExpendedAt: daysAgo(40)},
		{CategoryID: 10, Amount: 11000, ExpendedAt: daysAgo(170)},
	}
	profile.LastVisits[2] = daysAgo(3)

	registered := daysAgo(15)
	stores := []models.Store{
		{StoreID: 1, CategoryIDs: []int64{10}, Latitude: 37.5670, Longitude: 126.9790, AveragePrice: 0, ReviewCount: 0, ViewCount: 0},
		{StoreID: 2, CategoryIDs: []int64{20, 10}, Latitude: 37.5600, Longitude: 126.9700, AveragePrice: 45000, ReviewCount: 2000, ViewCount: 50000, RegisteredAt: &registered},
		{StoreID: 3, Latitude: 37.5800, Longitude: 126.9900, AveragePrice: 12000, ReviewCount: 37, ViewCount: 12},
		{StoreID: 4, CategoryIDs: []int64{99}, Latitude: 37.5665, Longitude: 126.9780, AveragePrice: 9500, ReviewCount: -1, ViewCount: 3},
	}
	cc := NewCalculationContext(stores, profile, testNow)

	for _, calc := range DefaultCalculators() {
		for i := range stores {
			score := calc.Calculate(&stores[i], profile, &cc)
			assert.GreaterOrEqual(t, score, ScoreMin, "%s store %d", calc.Criterion(), stores[i].StoreID)
			assert.LessOrEqual(t, score, ScoreMax, "%s store %d", calc.Criterion(), stores[i].StoreID)
		}
	}
}

func TestDefaultCalculators_CoverEveryCriterion(t *testing.T) {
	seen := make(map[models.Criterion]bool)
	for _, calc := range DefaultCalculators() {
		seen[calc.Criterion()] = true
	}
	require.Len(t, seen, len(models.Criteria()))
	for _, c := range models.Criteria() {
		assert.True(t, seen[c], "missing calculator for %s", c)
	}
}

func TestCalculationContext(t *testing.T) {
	profile := testProfile()

	t.Run("empty batch has zero bounds", func(t *testing.T) {
		cc := NewCalculationContext(nil, profile, testNow)
		assert.Equal(t, CalculationContext{Now: testNow}, cc)
	})

	t.Run("bounds span the batch", func(t *testing.T) {
		a := testStore(1, 10)
		a.ReviewCount = 3
		a.ViewCount = 10
		b := testStore(2, 10)
		b.ReviewCount = 300
		b.ViewCount = 1000
		b.Latitude = 37.5755

		cc := NewCalculationContext([]models.Store{a, b}, profile, testNow)
		assert.InDelta(t, 0.0, cc.MinDistance, 1e-9)
		assert.InDelta(t, 1.0, cc.MaxDistance, 0.05)
		assert.Equal(t, 3.0, cc.MinReviews)
		assert.Equal(t, 300.0, cc.MaxReviews)
		assert.Equal(t, 10.0, cc.MinViews7Days)
		assert.Equal(t, 1000.0, cc.MaxViews7Days)
		assert.LessOrEqual(t, cc.MinValueForMoney, cc.MaxValueForMoney)
		assert.Empty(t, cc.DegenerateBounds())
	})

	t.Run("identical stores collapse every bound", func(t *testing.T) {
		cc := NewCalculationContext([]models.Store{testStore(1, 10), testStore(2, 10)}, profile, testNow)
		assert.ElementsMatch(t,
			[]string{"distance", "value_for_money", "views_7_days", "reviews"},
			cc.DegenerateBounds())
	})
}
