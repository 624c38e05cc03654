package validation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/temcen/mealrec/internal/scoring"
	"github.com/temcen/mealrec/pkg/models"
)

// WeightDocument is the on-disk form of the recommendation policy table.
type WeightDocument struct {
	Version  string                           `json:"version,omitempty"`
	Profiles map[string]scoring.WeightProfile `json:"profiles"`
}

// ParseWeightProfiles validates a weight document against its schema and
// returns its rows. Row sums are checked later by scoring.NewWeightTable.
func (sv *SchemaValidator) ParseWeightProfiles(data []byte) (map[models.RecommendationType]scoring.WeightProfile, error) {
	if err := sv.Validate(SchemaWeightProfiles, data).Err(); err != nil {
		return nil, fmt.Errorf("invalid weight document: %w", err)
	}

	var doc WeightDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode weight document: %w", err)
	}

	rows := make(map[models.RecommendationType]scoring.WeightProfile, len(doc.Profiles))
	for name, profile := range doc.Profiles {
		rows[models.RecommendationType(name)] = profile
	}
	return rows, nil
}

// LoadWeightProfiles reads and validates a weight document from disk.
func (sv *SchemaValidator) LoadWeightProfiles(path string) (map[models.RecommendationType]scoring.WeightProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weight document: %w", err)
	}
	return sv.ParseWeightProfiles(data)
}
