package scoring

import (
	"cmp"
	"sort"

	"github.com/temcen/mealrec/pkg/models"
)

// SortByScore orders scores descending, breaking ties by ascending store id.
func SortByScore(scores []models.CompositeScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].StoreID < scores[j].StoreID
	})
}

// SortResults orders listing results by the requested key. Every key falls
// back to ascending store id so repeated requests page identically.
func SortResults(results []models.RecommendationResult, by models.SortBy) {
	var primary func(a, b *models.RecommendationResult) int

	switch by {
	case models.SortByDistance:
		primary = func(a, b *models.RecommendationResult) int { return cmp.Compare(a.Distance, b.Distance) }
	case models.SortByReview:
		primary = func(a, b *models.RecommendationResult) int { return -cmp.Compare(a.ReviewCount, b.ReviewCount) }
	case models.SortByPriceLow:
		primary = func(a, b *models.RecommendationResult) int { return cmp.Compare(a.AveragePrice, b.AveragePrice) }
	case models.SortByPriceHigh:
		primary = func(a, b *models.RecommendationResult) int { return -cmp.Compare(a.AveragePrice, b.AveragePrice) }
	default:
		primary = func(a, b *models.RecommendationResult) int { return -cmp.Compare(a.Score, b.Score) }
	}

	sort.SliceStable(results, func(i, j int) bool {
		if c := primary(&results[i], &results[j]); c != 0 {
			return c < 0
		}
		return results[i].StoreID < results[j].StoreID
	})
}

// Paginate returns the zero-based page of items. A page past the end is
// empty.
func Paginate[T any](items []T, page, size int) []T {
	if page < 0 || size <= 0 {
		return []T{}
	}
	from := page * size
	if from >= len(items) {
		return []T{}
	}
	to := from + size
	if to > len(items) {
		to = len(items)
	}
	return items[from:to]
}
