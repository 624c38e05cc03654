package scoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/pkg/models"
)

// Observer receives one callback per ranking request.
type Observer interface {
	ObserveRanking(rt models.RecommendationType, candidates int, degenerate bool, latency time.Duration)
}

// Engine ranks candidate stores for a member. It holds no per-request state
// and may be shared by concurrent requests.
type Engine struct {
	calculators []ScoreCalculator
	weights     *WeightTable
	workers     int
	clock       func() time.Time
	observer    Observer
	logger      *logrus.Logger
}

type Option func(*Engine)

// WithWorkers bounds the scoring fan-out. Non-positive values mean one
// worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithClock overrides the evaluation instant used for time-based signals.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithCalculators(calculators ...ScoreCalculator) Option {
	return func(e *Engine) {
		if len(calculators) > 0 {
			e.calculators = calculators
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// NewEngine creates an engine over a validated weight table.
func NewEngine(weights *WeightTable, logger *logrus.Logger, opts ...Option) (*Engine, error) {
	if weights == nil {
		return nil, &ConfigurationError{Reason: "weight table is required"}
	}
	if logger == nil {
		logger = logrus.New()
	}

	e := &Engine{
		calculators: DefaultCalculators(),
		weights:     weights,
		workers:     runtime.NumCPU(),
		clock:       time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Rank scores every candidate and returns them best first. An empty
// candidate list yields an empty ranking.
//
// If ctx is cancelled while scoring, Rank returns the stores scored so far,
// ranked, together with ctx.Err().
func (e *Engine) Rank(ctx context.Context, candidates []models.Store, profile *UserProfile) ([]models.CompositeScore, error) {
	startTime := time.Now()

	if profile == nil {
		return nil, &InvalidInputError{Field: "profile", Reason: "user profile is required"}
	}
	if _, err := e.weights.Lookup(profile.RecommendationType); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []models.CompositeScore{}, nil
	}
	if err := e.validate(candidates, profile); err != nil {
		return nil, err
	}

	// Phase 1: the context must be complete before any calculator runs.
	cc := NewCalculationContext(candidates, profile, e.clock())

	degenerate := false
	if collapsed := cc.DegenerateBounds(); len(collapsed) > 0 {
		entry := e.logger.WithFields(logrus.Fields{
			"member_id":  profile.MemberID,
			"candidates": len(candidates),
			"bounds":     collapsed,
		})
		// a lone store always collapses every bound
		if len(candidates) == 1 {
			entry.Debug("DegenerateBatchWarning: single candidate, using neutral scores")
		} else {
			degenerate = true
			entry.Warn("DegenerateBatchWarning: candidate statistics collapsed, using neutral scores")
		}
	}

	// Phase 2: independent per-store scoring.
	scores, err := e.scoreParallel(ctx, candidates, profile, &cc)

	// Phase 3
	SortByScore(scores)

	latency := time.Since(startTime)
	if e.observer != nil {
		e.observer.ObserveRanking(profile.RecommendationType, len(candidates), degenerate, latency)
	}

	e.logger.WithFields(logrus.Fields{
		"member_id":           profile.MemberID,
		"recommendation_type": profile.RecommendationType,
		"candidates":          len(candidates),
		"scored":              len(scores),
		"latency":             latency,
	}).Debug("Ranking completed")

	return scores, err
}

// Score computes the composite score of a single store as a batch of one.
func (e *Engine) Score(ctx context.Context, store models.Store, profile *UserProfile) (models.CompositeScore, error) {
	scores, err := e.Rank(ctx, []models.Store{store}, profile)
	if err != nil {
		return models.CompositeScore{}, err
	}
	return scores[0], nil
}

// Supports reports whether a weight profile exists for the style.
func (e *Engine) Supports(rt models.RecommendationType) bool {
	_, err := e.weights.Lookup(rt)
	return err == nil
}

func (e *Engine) validate(candidates []models.Store, profile *UserProfile) error {
	if err := ValidateCoordinates("profile.location", profile.CurrentLatitude, profile.CurrentLongitude); err != nil {
		return err
	}
	for i := range candidates {
		if err := ValidateCoordinates("store.location", candidates[i].Latitude, candidates[i].Longitude); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scoreParallel(
	ctx context.Context,
	candidates []models.Store,
	profile *UserProfile,
	cc *CalculationContext,
) ([]models.CompositeScore, error) {
	workers := e.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	results := make([]models.CompositeScore, len(candidates))
	scored := make([]bool, len(candidates))

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// each index is written by exactly one worker
				results[i] = e.scoreStore(&candidates[i], profile, cc)
				scored[i] = true
			}
		}()
	}

	var cancelled error
feed:
	for i := range candidates {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled == nil {
		return results, nil
	}

	partial := make([]models.CompositeScore, 0, len(candidates))
	for i, ok := range scored {
		if ok {
			partial = append(partial, results[i])
		}
	}

	e.logger.WithFields(logrus.Fields{
		"member_id":  profile.MemberID,
		"candidates": len(candidates),
		"scored":     len(partial),
	}).Warn("Ranking cancelled, returning partial result")

	return partial, cancelled
}

func (e *Engine) scoreStore(store *models.Store, profile *UserProfile, cc *CalculationContext) models.CompositeScore {
	var scores CriterionScores
	for _, calc := range e.calculators {
		scores.Set(calc.Criterion(), calc.Calculate(store, profile, cc))
	}

	// Lookup already succeeded for this type in Rank.
	composite, breakdown, _ := e.weights.Aggregate(profile.RecommendationType, scores)

	return models.CompositeScore{
		StoreID:            store.StoreID,
		Score:              clampScore(composite),
		Distance:           HaversineKm(profile.CurrentLatitude, profile.CurrentLongitude, store.Latitude, store.Longitude),
		RecommendationType: profile.RecommendationType,
		Breakdown:          breakdown,
	}
}
