package scoring

import (
	"sort"
	"time"

	"github.com/temcen/mealrec/pkg/models"
)

const (
	// DislikedPreference marks a category the member explicitly dislikes.
	DislikedPreference = -100
	// LikedPreference marks a category the member explicitly likes.
	LikedPreference = 100
)

// UserProfile is a read-only projection of a member assembled by upstream
// collaborators for one recommendation request.
type UserProfile struct {
	MemberID           int64
	RecommendationType models.RecommendationType
	CurrentLatitude    float64
	CurrentLongitude   float64

	// CategoryPreferences maps category id to a weight in [-100, 100].
	CategoryPreferences map[int64]int
	Expenditures        []models.ExpenditureRecord
	LastVisits          map[int64]time.Time
}

// CategoryPreference returns the member's weight for a category and whether
// one is on record.
func (p *UserProfile) CategoryPreference(categoryID int64) (int, bool) {
	weight, ok := p.CategoryPreferences[categoryID]
	return weight, ok
}

// RecentExpenditures returns the records expended on or after the calendar
// day windowDays before now.
func (p *UserProfile) RecentExpenditures(now time.Time, windowDays int) []models.ExpenditureRecord {
	start := startOfDay(now).AddDate(0, 0, -windowDays)

	recent := make([]models.ExpenditureRecord, 0, len(p.Expenditures))
	for _, rec := range p.Expenditures {
		if !startOfDay(rec.ExpendedAt.In(now.Location())).Before(start) {
			recent = append(recent, rec)
		}
	}
	return recent
}

// LastVisitDate returns when the member last visited the store.
func (p *UserProfile) LastVisitDate(storeID int64) (time.Time, bool) {
	visited, ok := p.LastVisits[storeID]
	return visited, ok
}

// DislikedCategoryIDs returns the categories weighted -100, sorted ascending.
func (p *UserProfile) DislikedCategoryIDs() []int64 {
	var ids []int64
	for categoryID, weight := range p.CategoryPreferences {
		if weight == DislikedPreference {
			ids = append(ids, categoryID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// WithLocation returns a copy of the profile positioned at the given
// coordinates. The receiver is left untouched.
func (p *UserProfile) WithLocation(lat, lon float64) *UserProfile {
	moved := *p
	moved.CurrentLatitude = lat
	moved.CurrentLongitude = lon
	return &moved
}

// daysBetween counts calendar days from "from" to "to", both taken in to's
// location. The result is negative when from is after to.
func daysBetween(from, to time.Time) int {
	f := startOfDay(from.In(to.Location()))
	t := startOfDay(to)
	fy, fm, fd := f.Date()
	ty, tm, td := t.Date()
	fu := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	tu := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(tu.Sub(fu).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
