// Package oracle scores feature vectors with a match probability.
package oracle

import (
	"context"
	"errors"

	"organmatch/internal/matching/features"
)

var (
	// ErrSchemaMismatch means a vector does not fit the model's feature
	// schema, e.g. an unseen categorical value.
	ErrSchemaMismatch = errors.New("feature vector does not match model schema")

	// ErrUnavailable means the oracle could not be reached.
	ErrUnavailable = errors.New("scoring oracle unavailable")
)

// Oracle returns one probability in [0, 1] per input row, in input order.
// Implementations must be deterministic and safe for concurrent use.
type Oracle interface {
	Score(ctx context.Context, rows []features.Vector) ([]float64, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, rows []features.Vector) ([]float64, error)

func (f Func) Score(ctx context.Context, rows []features.Vector) ([]float64, error) {
	return f(ctx, rows)
}
