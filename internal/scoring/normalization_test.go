package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMinMax(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		lo, hi   float64
		expected float64
	}{
		{"midpoint", 5, 0, 10, 50},
		{"lower bound", 0, 0, 10, 0},
		{"upper bound", 10, 0, 10, 100},
		{"above range clamps", 15, 0, 10, 100},
		{"below range clamps", -5, 0, 10, 0},
		{"collapsed bounds", 3, 3, 3, NeutralScore},
		{"collapsed bounds ignore value", 42, 7, 7, NeutralScore},
		{"negative range", -50, -100, 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, NormalizeMinMax(tt.value, tt.lo, tt.hi), 1e-9)
		})
	}
}

func TestNormalizeLog(t *testing.T) {
	assert.Equal(t, NeutralScore, NormalizeLog(10, 10, 10))
	assert.InDelta(t, 0.0, NormalizeLog(0, 0, 1000), 1e-9)
	assert.InDelta(t, 100.0, NormalizeLog(1000, 0, 1000), 1e-9)

	// log compression lifts small values above their linear position
	linear := NormalizeMinMax(10, 0, 1000)
	logged := NormalizeLog(10, 0, 1000)
	assert.Greater(t, logged, linear)

	expected := math.Log1p(10) / math.Log1p(1000) * 100
	assert.InDelta(t, expected, logged, 1e-9)

	// negative counts sit at the bottom instead of producing NaN
	assert.InDelta(t, 0.0, NormalizeLog(-5, -5, 1000), 1e-9)
	assert.InDelta(t, 0.0, NormalizeLog(-5, 0, 1000), 1e-9)
	assert.Equal(t, NeutralScore, NormalizeLog(-3, -7, 0))
}

func TestNormalize(t *testing.T) {
	assert.InDelta(t, 50.0, Normalize(0, DislikedPreference, LikedPreference), 1e-9)
	assert.InDelta(t, 100.0, Normalize(100, DislikedPreference, LikedPreference), 1e-9)
	assert.InDelta(t, 0.0, Normalize(-100, DislikedPreference, LikedPreference), 1e-9)
	assert.InDelta(t, 75.0, Normalize(50, DislikedPreference, LikedPreference), 1e-9)
	assert.Equal(t, NeutralScore, Normalize(1, 1, 1))
}

func TestNormalizeMinMax_Monotonic(t *testing.T) {
	prev := -1.0
	for v := 0.0; v <= 20; v += 0.5 {
		got := NormalizeMinMax(v, 2, 18)
		assert.GreaterOrEqual(t, got, prev)
		assert.GreaterOrEqual(t, got, ScoreMin)
		assert.LessOrEqual(t, got, ScoreMax)
		prev = got
	}
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0.0, HaversineKm(37.5665, 126.9780, 37.5665, 126.9780), 1e-9)

	// one degree of latitude along a meridian
	oneDegree := 2 * math.Pi * EarthRadiusKm / 360
	assert.InDelta(t, oneDegree, HaversineKm(0, 0, 1, 0), 1e-6)

	// symmetric
	a := HaversineKm(37.5665, 126.9780, 37.4979, 127.0276)
	b := HaversineKm(37.4979, 127.0276, 37.5665, 126.9780)
	assert.InDelta(t, a, b, 1e-9)
	assert.InDelta(t, 8.8, a, 0.5)
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		valid    bool
	}{
		{"seoul", 37.5665, 126.9780, true},
		{"poles", -90, 180, true},
		{"latitude too high", 90.1, 0, false},
		{"longitude too low", 0, -180.5, false},
		{"nan latitude", math.NaN(), 0, false},
		{"infinite longitude", 0, math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates("location", tt.lat, tt.lon)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var invalid *InvalidInputError
			assert.ErrorAs(t, err, &invalid)
			assert.Equal(t, "location", invalid.Field)
		})
	}
}
