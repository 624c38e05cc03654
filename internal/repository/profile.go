package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/mealrec/internal/scoring"
	"github.com/temcen/mealrec/pkg/models"
)

// ExpenditureWindowDays is how much spend history a profile carries.
const ExpenditureWindowDays = 180

// VisitSource supplies the last visit date per store for a member.
type VisitSource interface {
	LastVisits(ctx context.Context, memberID int64) (map[int64]time.Time, error)
}

type ProfileRepository struct {
	db               DatabaseQuerier
	visits           VisitSource
	defaultLatitude  float64
	defaultLongitude float64
	clock            func() time.Time
	logger           *logrus.Logger
}

// NewProfileRepository creates a profile repository. Members without a
// primary address are placed at the default location. visits may be nil.
func NewProfileRepository(
	db DatabaseQuerier,
	visits VisitSource,
	defaultLatitude, defaultLongitude float64,
	logger *logrus.Logger,
) *ProfileRepository {
	return &ProfileRepository{
		db:               db,
		visits:           visits,
		defaultLatitude:  defaultLatitude,
		defaultLongitude: defaultLongitude,
		clock:            time.Now,
		logger:           logger,
	}
}

// LoadUserProfile assembles the scoring view of a member.
func (r *ProfileRepository) LoadUserProfile(ctx context.Context, memberID int64) (*scoring.UserProfile, error) {
	rt, err := r.recommendationType(ctx, memberID)
	if err != nil {
		return nil, err
	}

	preferences, err := r.categoryPreferences(ctx, memberID)
	if err != nil {
		return nil, err
	}

	expenditures, err := r.recentExpenditures(ctx, memberID)
	if err != nil {
		return nil, err
	}

	lat, lon, err := r.primaryLocation(ctx, memberID)
	if err != nil {
		return nil, err
	}

	lastVisits := make(map[int64]time.Time)
	if r.visits != nil {
		visits, err := r.visits.LastVisits(ctx, memberID)
		if err != nil {
			// visit history only sharpens exploration scores
			r.logger.WithError(err).WithField("member_id", memberID).Warn("Failed to load visit history, continuing without it")
		} else {
			lastVisits = visits
		}
	}

	return &scoring.UserProfile{
		MemberID:            memberID,
		RecommendationType:  rt,
		CurrentLatitude:     lat,
		CurrentLongitude:    lon,
		CategoryPreferences: preferences,
		Expenditures:        expenditures,
		LastVisits:          lastVisits,
	}, nil
}

// UpdateRecommendationType persists a member's recommendation style.
func (r *ProfileRepository) UpdateRecommendationType(ctx context.Context, memberID int64, rt models.RecommendationType) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE member
		SET recommendation_type = $2, updated_at = NOW()
		WHERE member_id = $1 AND deleted_at IS NULL`,
		memberID, string(rt))
	if err != nil {
		return fmt.Errorf("failed to update recommendation type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %d: %w", memberID, ErrNotFound)
	}
	return nil
}

func (r *ProfileRepository) recommendationType(ctx context.Context, memberID int64) (models.RecommendationType, error) {
	var stored *string
	err := r.db.QueryRow(ctx, `
		SELECT recommendation_type
		FROM member
		WHERE member_id = $1 AND deleted_at IS NULL`, memberID).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("member %d: %w", memberID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to load member %d: %w", memberID, err)
	}

	if stored == nil {
		return models.RecommendationTypeBalanced, nil
	}
	rt, err := models.ParseRecommendationType(*stored)
	if err != nil {
		// Kept as stored so ranking fails on the missing weight profile.
		r.logger.WithFields(logrus.Fields{
			"member_id":           memberID,
			"recommendation_type": *stored,
		}).Warn("Malformed stored recommendation type")
		return models.RecommendationType(*stored), nil
	}
	return rt, nil
}

func (r *ProfileRepository) categoryPreferences(ctx context.Context, memberID int64) (map[int64]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category_id, weight
		FROM preference
		WHERE member_id = $1`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	defer rows.Close()

	preferences := make(map[int64]int)
	for rows.Next() {
		var categoryID int64
		var weight int
		if err := rows.Scan(&categoryID, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		preferences[categoryID] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return preferences, nil
}

func (r *ProfileRepository) recentExpenditures(ctx context.Context, memberID int64) ([]models.ExpenditureRecord, error) {
	now := r.clock()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -ExpenditureWindowDays)

	rows, err := r.db.Query(ctx, `
		SELECT category_id, amount, expended_date
		FROM expenditure
		WHERE member_id = $1
			AND expended_date >= $2
			AND category_id IS NOT NULL
			AND deleted_at IS NULL
		ORDER BY expended_date, expenditure_id`, memberID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenditures: %w", err)
	}
	defer rows.Close()

	records := make([]models.ExpenditureRecord, 0)
	for rows.Next() {
		var rec models.ExpenditureRecord
		if err := rows.Scan(&rec.CategoryID, &rec.Amount, &rec.ExpendedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expenditure: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load expenditures: %w", err)
	}
	return records, nil
}

func (r *ProfileRepository) primaryLocation(ctx context.Context, memberID int64) (float64, float64, error) {
	var lat, lon float64
	err := r.db.QueryRow(ctx, `
		SELECT latitude, longitude
		FROM address_history
		WHERE member_id = $1
			AND is_primary = true
			AND latitude IS NOT NULL
			AND longitude IS NOT NULL
			AND deleted_at IS NULL
		ORDER BY registered_at DESC
		LIMIT 1`, memberID).Scan(&lat, &lon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.defaultLatitude, r.defaultLongitude, nil
		}
		return 0, 0, fmt.Errorf("failed to load primary address: %w", err)
	}
	return lat, lon, nil
}
