package scoring

import (
	"errors"
	"fmt"

	"github.com/temcen/mealrec/pkg/models"
)

// ErrUnknownRecommendationType is wrapped by a ConfigurationError when no
// weight profile exists for the requested recommendation type.
var ErrUnknownRecommendationType = errors.New("unknown recommendation type")

// InvalidInputError reports a malformed scoring request.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// ConfigurationError reports a broken weight profile or a missing policy row.
type ConfigurationError struct {
	RecommendationType models.RecommendationType
	Reason             string
	Err                error
}

func (e *ConfigurationError) Error() string {
	if e.RecommendationType == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error for %s: %s", e.RecommendationType, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
