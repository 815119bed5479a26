// Package labeler turns historical donor and recipient records into a
// labeled training dataset using the same rules as the online filter.
package labeler

import (
	"context"
	"math"
	"runtime"

	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/features"
	"organmatch/internal/models"

	"golang.org/x/sync/errgroup"
)

// LabeledPair is one row of the training dataset.
type LabeledPair struct {
	DonorID                string  `json:"donorId"`
	ReceiverID             string  `json:"receiverId"`
	AgeDiff                int     `json:"ageDiff"`
	BloodGroupDonor        string  `json:"bloodGroupDonor"`
	BloodGroupRecipient    string  `json:"bloodGroupRecipient"`
	Organ                  string  `json:"organ"`
	TissueTypeDonor        string  `json:"tissueTypeDonor"`
	DistanceKm             float64 `json:"distanceKm"`
	Urgency                int     `json:"urgency"`
	HospitalTransportation int     `json:"hospitalTransportation"`
	Success                int     `json:"success"`
}

type Options struct {
	// Concurrency bounds the number of donors processed at once. Zero
	// means GOMAXPROCS.
	Concurrency int
	// KeepGeographyFailures retains pairs that fail only the geography
	// clause, labeled 0.
	KeepGeographyFailures bool
}

type Labeler struct {
	filter *compatibility.Filter
	opts   Options
}

func New(filter *compatibility.Filter, opts Options) *Labeler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Labeler{filter: filter, opts: opts}
}

// Label fans out over donors and reassembles rows in donor order, then
// recipient order, regardless of scheduling.
func (l *Labeler) Label(ctx context.Context, donors []models.Donor, recipients []models.Receiver) ([]LabeledPair, error) {
	idx := compatibility.IndexByOrgan(recipients)
	batch := compatibility.BatchOptions{KeepGeographyFailures: l.opts.KeepGeographyFailures}
	perDonor := make([][]LabeledPair, len(donors))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)

	for i := range donors {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pairs := l.filter.PairsForDonor(donors[i], idx, batch)
			rows := make([]LabeledPair, len(pairs))
			for j, p := range pairs {
				rows[j] = toRow(p)
			}
			perDonor[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, rows := range perDonor {
		total += len(rows)
	}
	out := make([]LabeledPair, 0, total)
	for _, rows := range perDonor {
		out = append(out, rows...)
	}
	return out, nil
}

func toRow(p compatibility.Pair) LabeledPair {
	transport := 0
	if p.Donor.TransportAvailable {
		transport = 1
	}
	return LabeledPair{
		DonorID:                p.Donor.ID,
		ReceiverID:             p.Receiver.ID,
		AgeDiff:                compatibility.AgeDiff(p.Donor.Age, p.Receiver.Age),
		BloodGroupDonor:        string(p.Donor.BloodGroup),
		BloodGroupRecipient:    string(p.Receiver.BloodGroup),
		Organ:                  p.Donor.Organ,
		TissueTypeDonor:        p.Donor.TissueType,
		DistanceKm:             math.Round(features.FeatureDistance(p.Distance)*100) / 100,
		Urgency:                p.Receiver.Urgency,
		HospitalTransportation: transport,
		Success:                p.Label,
	}
}

// Summary counts rows by label.
type Summary struct {
	Rows      int `json:"rows"`
	Positives int `json:"positives"`
	Negatives int `json:"negatives"`
}

func Summarize(rows []LabeledPair) Summary {
	s := Summary{Rows: len(rows)}
	for _, r := range rows {
		if r.Success == 1 {
			s.Positives++
		}
	}
	s.Negatives = s.Rows - s.Positives
	return s
}
