package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/temcen/mealrec/pkg/models"
)

// StoreSearch describes a radius search around a point.
type StoreSearch struct {
	Latitude            float64
	Longitude           float64
	RadiusKm            float64
	Keyword             string
	ExcludedCategoryIDs []int64
	OpenOnly            bool
	StoreType           models.StoreType
}

type StoreRepository struct {
	db     DatabaseQuerier
	clock  func() time.Time
	logger *logrus.Logger
}

func NewStoreRepository(db DatabaseQuerier, logger *logrus.Logger) *StoreRepository {
	return &StoreRepository{
		db:     db,
		clock:  time.Now,
		logger: logger,
	}
}

const storeColumns = `
			s.store_id,
			s.name,
			COALESCE(
				(SELECT array_agg(sc.category_id ORDER BY sc.display_order, sc.category_id)
				 FROM store_category sc WHERE sc.store_id = s.store_id),
				'{}'::bigint[]
			) AS category_ids,
			s.latitude,
			s.longitude,
			s.average_price,
			s.review_count,
			s.view_count,
			s.registered_at,
			s.image_url,
			s.store_type`

// FindStoresInRadius returns live stores within RadiusKm of the search point.
// Stores whose primary category is excluded are dropped after the query so
// that secondary categories never hide a store.
func (r *StoreRepository) FindStoresInRadius(ctx context.Context, search StoreSearch) ([]models.Store, error) {
	query := `
		SELECT` + storeColumns + `
		FROM store s
		WHERE s.deleted_at IS NULL
			AND 2 * 6371.0 * ASIN(SQRT(
				POWER(SIN(RADIANS(s.latitude - $1) / 2), 2) +
				COS(RADIANS($1)) * COS(RADIANS(s.latitude)) *
				POWER(SIN(RADIANS(s.longitude - $2) / 2), 2)
			)) <= $3`

	args := []interface{}{search.Latitude, search.Longitude, search.RadiusKm}
	argIndex := 4

	if keyword := normalizeKeyword(search.Keyword); keyword != "" {
		query += fmt.Sprintf(" AND s.name ILIKE '%%' || $%d || '%%'", argIndex)
		args = append(args, escapeLike(keyword))
		argIndex++
	}

	if search.StoreType != "" && search.StoreType != models.StoreTypeAll {
		query += fmt.Sprintf(" AND s.store_type = $%d", argIndex)
		args = append(args, string(search.StoreType))
		argIndex++
	}

	if search.OpenOnly {
		now := r.clock()
		query += fmt.Sprintf(`
			AND EXISTS (
				SELECT 1 FROM store_opening_hour oh
				WHERE oh.store_id = s.store_id
					AND oh.day_of_week = $%d
					AND oh.is_holiday = false
					AND oh.open_time <= $%d::time
					AND oh.close_time > $%d::time
			)`, argIndex, argIndex+1, argIndex+1)
		args = append(args, strings.ToUpper(now.Weekday().String()), now.Format("15:04:05"))
	}

	query += " ORDER BY s.store_id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store radius query failed: %w", err)
	}
	defer rows.Close()

	stores := make([]models.Store, 0)
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		if excludedByPrimaryCategory(&store, search.ExcludedCategoryIDs) {
			continue
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store radius query failed: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"radius_km": search.RadiusKm,
		"keyword":   search.Keyword,
		"excluded":  len(search.ExcludedCategoryIDs),
		"found":     len(stores),
	}).Debug("Stores in radius loaded")

	return stores, nil
}

// FindByID returns a live store.
func (r *StoreRepository) FindByID(ctx context.Context, storeID int64) (*models.Store, error) {
	query := `
		SELECT` + storeColumns + `
		FROM store s
		WHERE s.store_id = $1 AND s.deleted_at IS NULL`

	store, err := scanStore(r.db.QueryRow(ctx, query, storeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("store %d: %w", storeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load store %d: %w", storeID, err)
	}

	return &store, nil
}

func scanStore(row pgx.Row) (models.Store, error) {
	var (
		store     models.Store
		imageURL  *string
		storeType string
	)

	err := row.Scan(
		&store.StoreID,
		&store.Name,
		&store.CategoryIDs,
		&store.Latitude,
		&store.Longitude,
		&store.AveragePrice,
		&store.ReviewCount,
		&store.ViewCount,
		&store.RegisteredAt,
		&imageURL,
		&storeType,
	)
	if err != nil {
		return models.Store{}, err
	}

	store.Name = norm.NFC.String(store.Name)
	if imageURL != nil {
		store.ImageURL = *imageURL
	}
	store.StoreType = models.StoreType(storeType)

	return store, nil
}

func excludedByPrimaryCategory(store *models.Store, excluded []int64) bool {
	if len(excluded) == 0 {
		return false
	}
	primary, ok := store.PrimaryCategoryID()
	return ok && slices.Contains(excluded, primary)
}

// normalizeKeyword composes Hangul jamo so decomposed input from some
// keyboards matches stored names.
func normalizeKeyword(keyword string) string {
	return norm.NFC.String(strings.TrimSpace(keyword))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
