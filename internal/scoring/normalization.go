package scoring

import "math"

const (
	ScoreMin = 0.0
	ScoreMax = 100.0

	// NeutralScore is returned whenever a signal cannot discriminate between
	// stores, e.g. a batch whose bounds collapse to a single value.
	NeutralScore = 50.0
)

// NormalizeMinMax maps value linearly from [lo, hi] onto [0, 100].
// Values outside the range are clamped. When lo == hi the result is
// always NeutralScore.
func NormalizeMinMax(value, lo, hi float64) float64 {
	if hi == lo {
		return NeutralScore
	}
	return clampScore((value - lo) / (hi - lo) * ScoreMax)
}

// NormalizeLog applies log(1+x) to value and both bounds before the
// min-max mapping, compressing long-tailed counts such as view counts.
// Negative counts are treated as zero.
func NormalizeLog(value, lo, hi float64) float64 {
	value, lo, hi = math.Max(value, 0), math.Max(lo, 0), math.Max(hi, 0)
	if hi == lo {
		return NeutralScore
	}
	return NormalizeMinMax(math.Log1p(value), math.Log1p(lo), math.Log1p(hi))
}

// Normalize rescales a value from a fixed range such as [-100, 100] onto
// [0, 100]. Unlike NormalizeMinMax the bounds are not batch-relative.
func Normalize(value, lo, hi float64) float64 {
	if hi == lo {
		return NeutralScore
	}
	return clampScore((value - lo) / (hi - lo) * ScoreMax)
}

func clampScore(score float64) float64 {
	return math.Max(ScoreMin, math.Min(ScoreMax, score))
}
