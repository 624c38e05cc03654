package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/mealrec/pkg/models"
)

func TestDefaultWeightProfiles_AreValid(t *testing.T) {
	rows := DefaultWeightProfiles()
	require.Len(t, rows, 3)

	for rt, profile := range rows {
		assert.NoError(t, profile.Validate(), "profile %s", rt)
		assert.InDelta(t, 1.0, profile.Sum(), WeightTolerance)
	}

	saver := rows[models.RecommendationTypeSaver]
	assert.Equal(t, 0.05, saver.Accessibility)
	assert.Equal(t, 0.50, saver.BudgetEfficiency)
	assert.Equal(t, 0.15, saver.Exploration)
	assert.Equal(t, 0.30, saver.Stability)
}

func TestWeightProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile WeightProfile
		wantErr bool
	}{
		{"sums to one", WeightProfile{0.25, 0.25, 0.25, 0.25}, false},
		{"single criterion", WeightProfile{0, 0, 1, 0}, false},
		{"sums below one", WeightProfile{0.2, 0.2, 0.2, 0.3}, true},
		{"sums above one", WeightProfile{0.5, 0.5, 0.5, 0}, true},
		{"negative weight", WeightProfile{-0.1, 0.6, 0.3, 0.2}, true},
		{"all zero", WeightProfile{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewWeightTable(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		table, err := NewWeightTable(DefaultWeightProfiles())
		require.NoError(t, err)

		for _, rt := range models.RecommendationTypes() {
			_, err := table.Lookup(rt)
			assert.NoError(t, err)
		}
	})

	t.Run("missing built-in type", func(t *testing.T) {
		rows := DefaultWeightProfiles()
		delete(rows, models.RecommendationTypeAdventurer)

		_, err := NewWeightTable(rows)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, models.RecommendationTypeAdventurer, cfgErr.RecommendationType)
		assert.True(t, errors.Is(err, ErrUnknownRecommendationType))
	})

	t.Run("invalid row", func(t *testing.T) {
		rows := DefaultWeightProfiles()
		rows[models.RecommendationTypeBalanced] = WeightProfile{0.5, 0.5, 0.5, 0.5}

		_, err := NewWeightTable(rows)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, models.RecommendationTypeBalanced, cfgErr.RecommendationType)
	})

	t.Run("extra type is accepted", func(t *testing.T) {
		rows := DefaultWeightProfiles()
		rows["GOURMET"] = WeightProfile{0.1, 0.1, 0.2, 0.6}

		table, err := NewWeightTable(rows)
		require.NoError(t, err)
		_, err = table.Lookup("GOURMET")
		assert.NoError(t, err)
	})

	t.Run("input map is copied", func(t *testing.T) {
		rows := DefaultWeightProfiles()
		table, err := NewWeightTable(rows)
		require.NoError(t, err)

		rows[models.RecommendationTypeSaver] = WeightProfile{1, 0, 0, 0}
		saver, err := table.Lookup(models.RecommendationTypeSaver)
		require.NoError(t, err)
		assert.Equal(t, 0.50, saver.BudgetEfficiency)
	})
}

func TestWeightTable_LookupUnknown(t *testing.T) {
	table, err := NewWeightTable(DefaultWeightProfiles())
	require.NoError(t, err)

	_, err = table.Lookup("GOURMET")
	assert.ErrorIs(t, err, ErrUnknownRecommendationType)
}

func TestWeightTable_Aggregate(t *testing.T) {
	table, err := NewWeightTable(DefaultWeightProfiles())
	require.NoError(t, err)

	scores := CriterionScores{Accessibility: 80, BudgetEfficiency: 60, Exploration: 40, Stability: 20}

	t.Run("saver", func(t *testing.T) {
		composite, breakdown, err := table.Aggregate(models.RecommendationTypeSaver, scores)
		require.NoError(t, err)

		// 0.05*80 + 0.50*60 + 0.15*40 + 0.30*20
		assert.InDelta(t, 46.0, composite, 1e-9)
		require.Len(t, breakdown, 4)
		assert.InDelta(t, 30.0, breakdown[models.CriterionBudgetEfficiency].Weighted, 1e-9)
		assert.Equal(t, 60.0, breakdown[models.CriterionBudgetEfficiency].Score)
		assert.Equal(t, 0.50, breakdown[models.CriterionBudgetEfficiency].Weight)

		var sum float64
		for _, row := range breakdown {
			sum += row.Weighted
		}
		assert.InDelta(t, composite, sum, 1e-9)
	})

	t.Run("adventurer", func(t *testing.T) {
		composite, _, err := table.Aggregate(models.RecommendationTypeAdventurer, scores)
		require.NoError(t, err)
		// 0.10*80 + 0.10*60 + 0.50*40 + 0.30*20
		assert.InDelta(t, 40.0, composite, 1e-9)
	})

	t.Run("balanced", func(t *testing.T) {
		composite, _, err := table.Aggregate(models.RecommendationTypeBalanced, scores)
		require.NoError(t, err)
		// 0.15*80 + 0.30*60 + 0.25*40 + 0.30*20
		assert.InDelta(t, 46.0, composite, 1e-9)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, _, err := table.Aggregate("GOURMET", scores)
		assert.ErrorIs(t, err, ErrUnknownRecommendationType)
	})
}

func TestWeightProfile_Weight(t *testing.T) {
	profile := DefaultWeightProfiles()[models.RecommendationTypeAdventurer]
	assert.Equal(t, 0.10, profile.Weight(models.CriterionAccessibility))
	assert.Equal(t, 0.50, profile.Weight(models.CriterionExploration))
	assert.Equal(t, 0.0, profile.Weight("unknown"))
}
