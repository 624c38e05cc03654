package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/temcen/mealrec/pkg/models"
)

// WeightTolerance bounds how far a weight row may drift from summing to 1.
const WeightTolerance = 1e-9

// WeightProfile holds the per-criterion weights of one recommendation type.
type WeightProfile struct {
	Accessibility    float64 `json:"accessibility" mapstructure:"accessibility"`
	BudgetEfficiency float64 `json:"budget_efficiency" mapstructure:"budget_efficiency"`
	Exploration      float64 `json:"exploration" mapstructure:"exploration"`
	Stability        float64 `json:"stability" mapstructure:"stability"`
}

// Sum returns the total of all weights.
func (w WeightProfile) Sum() float64 {
	return floats.Sum(w.vector())
}

// Validate checks that weights are non-negative and sum to 1.
func (w WeightProfile) Validate() error {
	for i, v := range w.vector() {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s is %v, must be non-negative", models.Criteria()[i], v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("weights sum to %.12f, must sum to 1.0", sum)
	}
	return nil
}

// Weight returns the weight assigned to a criterion.
func (w WeightProfile) Weight(c models.Criterion) float64 {
	switch c {
	case models.CriterionAccessibility:
		return w.Accessibility
	case models.CriterionBudgetEfficiency:
		return w.BudgetEfficiency
	case models.CriterionExploration:
		return w.Exploration
	case models.CriterionStability:
		return w.Stability
	default:
		return 0
	}
}

// vector lays weights out in models.Criteria order.
func (w WeightProfile) vector() []float64 {
	return []float64{w.Accessibility, w.BudgetEfficiency, w.Exploration, w.Stability}
}

// DefaultWeightProfiles returns the product policy table.
func DefaultWeightProfiles() map[models.RecommendationType]WeightProfile {
	return map[models.RecommendationType]WeightProfile{
		models.RecommendationTypeSaver: {
			Accessibility:    0.05,
			BudgetEfficiency: 0.50,
			Exploration:      0.15,
			Stability:        0.30,
		},
		models.RecommendationTypeAdventurer: {
			Accessibility:    0.10,
			BudgetEfficiency: 0.10,
			Exploration:      0.50,
			Stability:        0.30,
		},
		models.RecommendationTypeBalanced: {
			Accessibility:    0.15,
			BudgetEfficiency: 0.30,
			Exploration:      0.25,
			Stability:        0.30,
		},
	}
}

// WeightTable is the immutable recommendation type to weights mapping.
type WeightTable struct {
	rows map[models.RecommendationType]WeightProfile
}

// NewWeightTable validates every row and requires one row per built-in
// recommendation type. Extra rows are accepted so new styles only need
// configuration.
func NewWeightTable(rows map[models.RecommendationType]WeightProfile) (*WeightTable, error) {
	for _, rt := range models.RecommendationTypes() {
		if _, ok := rows[rt]; !ok {
			return nil, &ConfigurationError{
				RecommendationType: rt,
				Reason:             "missing weight profile",
				Err:                ErrUnknownRecommendationType,
			}
		}
	}

	copied := make(map[models.RecommendationType]WeightProfile, len(rows))
	for rt, profile := range rows {
		if err := profile.Validate(); err != nil {
			return nil, &ConfigurationError{RecommendationType: rt, Reason: err.Error()}
		}
		copied[rt] = profile
	}

	return &WeightTable{rows: copied}, nil
}

// Lookup returns the weights of a recommendation type.
func (t *WeightTable) Lookup(rt models.RecommendationType) (WeightProfile, error) {
	profile, ok := t.rows[rt]
	if !ok {
		return WeightProfile{}, &ConfigurationError{
			RecommendationType: rt,
			Reason:             "no weight profile",
			Err:                ErrUnknownRecommendationType,
		}
	}
	return profile, nil
}

// CriterionScores are the four raw 0-100 scores of a store.
type CriterionScores struct {
	Accessibility    float64
	BudgetEfficiency float64
	Exploration      float64
	Stability        float64
}

func (s CriterionScores) vector() []float64 {
	return []float64{s.Accessibility, s.BudgetEfficiency, s.Exploration, s.Stability}
}

// Set stores the score of a criterion.
func (s *CriterionScores) Set(c models.Criterion, score float64) {
	switch c {
	case models.CriterionAccessibility:
		s.Accessibility = score
	case models.CriterionBudgetEfficiency:
		s.BudgetEfficiency = score
	case models.CriterionExploration:
		s.Exploration = score
	case models.CriterionStability:
		s.Stability = score
	}
}

// Aggregate returns the weighted sum of the scores and its breakdown.
func (t *WeightTable) Aggregate(rt models.RecommendationType, scores CriterionScores) (float64, map[models.Criterion]models.CriterionScore, error) {
	profile, err := t.Lookup(rt)
	if err != nil {
		return 0, nil, err
	}

	weights := profile.vector()
	raw := scores.vector()

	breakdown := make(map[models.Criterion]models.CriterionScore, len(raw))
	for i, c := range models.Criteria() {
		breakdown[c] = models.CriterionScore{Score: raw[i], Weight: weights[i], Weighted: raw[i] * weights[i]}
	}

	return floats.Dot(weights, raw), breakdown, nil
}
