// Package compatibility holds the hard eligibility rules shared by the online
// matcher and the offline labeler.
package compatibility

import (
	"strings"

	"organmatch/internal/matching/geo"
	"organmatch/internal/models"
)

// Clause names a single eligibility rule.
type Clause string

const (
	ClauseNone      Clause = ""
	ClauseOrgan     Clause = "organ"
	ClauseTissue    Clause = "tissue_type"
	ClauseBlood     Clause = "blood_group"
	ClauseAge       Clause = "age_window"
	ClauseHealth    Clause = "health_score"
	ClauseGeography Clause = "geography"
)

const (
	DefaultAgeWindowYears = 20
	DefaultMaxDistanceKm  = 200.0
)

// Rules are the configurable thresholds. MinHealthScore of zero disables the
// organ health clause.
type Rules struct {
	AgeWindowYears int
	MaxDistanceKm  float64
	MinHealthScore int
}

func DefaultRules() Rules {
	return Rules{
		AgeWindowYears: DefaultAgeWindowYears,
		MaxDistanceKm:  DefaultMaxDistanceKm,
	}
}

// DistanceResolver is satisfied by *geo.Resolver.
type DistanceResolver interface {
	Distance(a, b string) geo.Distance
}

// Verdict is the outcome of evaluating one donor against one receiver.
type Verdict struct {
	Eligible     bool
	FailedClause Clause
	Distance     geo.Distance
}

// Filter is stateless apart from its immutable rules and resolver.
type Filter struct {
	rules Rules
	geo   DistanceResolver
}

func NewFilter(rules Rules, resolver DistanceResolver) *Filter {
	return &Filter{rules: rules, geo: resolver}
}

func (f *Filter) Rules() Rules {
	return f.rules
}

// IsEligible reports whether every clause passes.
func (f *Filter) IsEligible(d models.Donor, r models.Receiver) bool {
	return f.Evaluate(d, r).Eligible
}

// Evaluate applies the clauses in order and stops at the first failure.
func (f *Filter) Evaluate(d models.Donor, r models.Receiver) Verdict {
	dist := f.geo.Distance(d.Location, r.Location)

	if d.Organ != r.OrganNeeded {
		return Verdict{FailedClause: ClauseOrgan, Distance: dist}
	}
	return f.evaluateJoined(d, r, dist)
}

// evaluateJoined applies every clause after organ equality.
func (f *Filter) evaluateJoined(d models.Donor, r models.Receiver, dist geo.Distance) Verdict {
	switch {
	case !TissueMatches(d.TissueType, r.TissueType):
		return Verdict{FailedClause: ClauseTissue, Distance: dist}
	case !CanDonate(d.BloodGroup, r.BloodGroup):
		return Verdict{FailedClause: ClauseBlood, Distance: dist}
	case AgeDiff(d.Age, r.Age) > f.rules.AgeWindowYears:
		return Verdict{FailedClause: ClauseAge, Distance: dist}
	case f.rules.MinHealthScore > 0 && d.HealthScore < f.rules.MinHealthScore:
		return Verdict{FailedClause: ClauseHealth, Distance: dist}
	case !GeoFeasible(d.TransportAvailable, dist, f.rules.MaxDistanceKm):
		return Verdict{FailedClause: ClauseGeography, Distance: dist}
	}
	return Verdict{Eligible: true, Distance: dist}
}

// Eligible returns the donors in pool that pass every clause, in pool order.
func (f *Filter) Eligible(r models.Receiver, pool []models.Donor) []models.Donor {
	out := make([]models.Donor, 0, len(pool))
	for _, d := range pool {
		if f.IsEligible(d, r) {
			out = append(out, d)
		}
	}
	return out
}

// GeoFeasible is the geography clause and the training label predicate.
// An unresolvable distance only passes when transport is arranged.
func GeoFeasible(transportAvailable bool, dist geo.Distance, maxDistanceKm float64) bool {
	return transportAvailable || dist.Km() <= maxDistanceKm
}

// Label turns GeoFeasible into the 0/1 training signal.
func Label(transportAvailable bool, dist geo.Distance, maxDistanceKm float64) int {
	if GeoFeasible(transportAvailable, dist, maxDistanceKm) {
		return 1
	}
	return 0
}

// TissueMatches compares tissue tags ignoring case and surrounding whitespace.
func TissueMatches(donor, receiver string) bool {
	return strings.EqualFold(strings.TrimSpace(donor), strings.TrimSpace(receiver))
}

func AgeDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
