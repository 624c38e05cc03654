package models

import "time"

// StoreType distinguishes campus cafeterias from ordinary restaurants.
type StoreType string

const (
	StoreTypeAll              StoreType = "ALL"
	StoreTypeCampusRestaurant StoreType = "CAMPUS_RESTAURANT"
	StoreTypeRestaurant       StoreType = "RESTAURANT"
)

type Store struct {
	StoreID      int64      `json:"store_id" db:"store_id"`
	Name         string     `json:"name" db:"name"`
	CategoryIDs  []int64    `json:"category_ids" db:"category_ids"`
	Latitude     float64    `json:"latitude" db:"latitude"`
	Longitude    float64    `json:"longitude" db:"longitude"`
	AveragePrice int        `json:"average_price" db:"average_price"`
	ReviewCount  int        `json:"review_count" db:"review_count"`
	ViewCount    int64      `json:"view_count" db:"view_count"`
	RegisteredAt *time.Time `json:"registered_at,omitempty" db:"registered_at"`
	ImageURL     string     `json:"image_url,omitempty" db:"image_url"`
	StoreType    StoreType  `json:"store_type" db:"store_type"`
}

// PrimaryCategoryID returns the first category of the store.
func (s *Store) PrimaryCategoryID() (int64, bool) {
	if len(s.CategoryIDs) == 0 {
		return 0, false
	}
	return s.CategoryIDs[0], true
}
