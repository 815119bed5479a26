// Package repository loads donor pools and historical datasets and persists
// labeled training pairs.
package repository

import (
	"context"
	"errors"
	"strings"

	"organmatch/internal/matching/labeler"
	"organmatch/internal/models"
)

// ErrPoolUnavailable wraps every backend failure while loading donors.
var ErrPoolUnavailable = errors.New("donor pool unavailable")

// DonorSource returns the donors offering organ in a stable order.
type DonorSource interface {
	DonorsByOrgan(ctx context.Context, organ string) ([]models.Donor, error)
}

// Dataset is the full historical record used by the batch labeler.
type Dataset interface {
	AllDonors(ctx context.Context) ([]models.Donor, error)
	AllReceivers(ctx context.Context) ([]models.Receiver, error)
}

type TrainingSink interface {
	InsertTrainingPairs(ctx context.Context, batchID string, rows []labeler.LabeledPair) (int, error)
}

// DonorSourceFunc adapts a function to DonorSource.
type DonorSourceFunc func(ctx context.Context, organ string) ([]models.Donor, error)

func (f DonorSourceFunc) DonorsByOrgan(ctx context.Context, organ string) ([]models.Donor, error) {
	return f(ctx, organ)
}

// normalizeBloodGroup canonicalises a stored blood group. Unknown values are
// kept trimmed so the lattice rejects them per pair.
func normalizeBloodGroup(raw string) models.BloodGroup {
	if bg, err := models.ParseBloodGroup(raw); err == nil {
		return bg
	}
	return models.BloodGroup(strings.TrimSpace(raw))
}
