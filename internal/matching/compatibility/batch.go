package compatibility

import (
	"organmatch/internal/matching/geo"
	"organmatch/internal/models"
)

// Pair is one donor/recipient row that survived the batch filter.
type Pair struct {
	Donor    models.Donor
	Receiver models.Receiver
	Distance geo.Distance
	Label    int
}

// BatchOptions tune the offline join.
type BatchOptions struct {
	// KeepGeographyFailures retains pairs whose only failing clause is
	// geography. They carry Label 0.
	KeepGeographyFailures bool
}

// OrganIndex groups recipients by organ needed, preserving input order
// within each group.
type OrganIndex map[string][]models.Receiver

func IndexByOrgan(recipients []models.Receiver) OrganIndex {
	idx := make(OrganIndex)
	for _, r := range recipients {
		idx[r.OrganNeeded] = append(idx[r.OrganNeeded], r)
	}
	return idx
}

// PairsForDonor joins one donor against the recipients needing the same
// organ and applies the remaining clauses.
func (f *Filter) PairsForDonor(d models.Donor, idx OrganIndex, opts BatchOptions) []Pair {
	var out []Pair
	for _, r := range idx[d.Organ] {
		dist := f.geo.Distance(d.Location, r.Location)
		v := f.evaluateJoined(d, r, dist)
		if !v.Eligible && !(opts.KeepGeographyFailures && v.FailedClause == ClauseGeography) {
			continue
		}
		out = append(out, Pair{
			Donor:    d,
			Receiver: r,
			Distance: dist,
			Label:    Label(d.TransportAvailable, dist, f.rules.MaxDistanceKm),
		})
	}
	return out
}

// Pairs runs the batch join sequentially: donor order first, then recipient
// order within the donor's organ group.
func (f *Filter) Pairs(donors []models.Donor, recipients []models.Receiver, opts BatchOptions) []Pair {
	idx := IndexByOrgan(recipients)
	var out []Pair
	for _, d := range donors {
		out = append(out, f.PairsForDonor(d, idx, opts)...)
	}
	return out
}
