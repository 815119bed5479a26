// Package features builds the canonical model input for a donor/receiver pair.
package features

import (
	"math"

	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/geo"
	"organmatch/internal/models"
)

// UnresolvedDistanceKm stands in for an unresolvable distance so the vector
// stays finite.
const UnresolvedDistanceKm = 9999.0

const (
	FieldAgeDiff             = "age_diff"
	FieldDistanceKm          = "distance_km"
	FieldUrgency             = "urgency"
	FieldTransportFlag       = "transport_flag"
	FieldDonorBloodGroup     = "donor_blood_group"
	FieldRecipientBloodGroup = "recipient_blood_group"
	FieldOrgan               = "organ"
	FieldDonorTissueType     = "donor_tissue_type"
)

// Schema lists field names in vector order: numeric first, then categorical.
var Schema = struct {
	Numeric     []string
	Categorical []string
}{
	Numeric:     []string{FieldAgeDiff, FieldDistanceKm, FieldUrgency, FieldTransportFlag},
	Categorical: []string{FieldDonorBloodGroup, FieldRecipientBloodGroup, FieldOrgan, FieldDonorTissueType},
}

// Vector is one scoring row. Categorical values are passed through as given.
type Vector struct {
	AgeDiff       float64 `json:"age_diff"`
	DistanceKm    float64 `json:"distance_km"`
	Urgency       float64 `json:"urgency"`
	TransportFlag float64 `json:"transport_flag"`

	DonorBloodGroup     string `json:"donor_blood_group"`
	RecipientBloodGroup string `json:"recipient_blood_group"`
	Organ               string `json:"organ"`
	DonorTissueType     string `json:"donor_tissue_type"`
}

// Numeric returns the numeric fields in Schema.Numeric order.
func (v Vector) Numeric() []float64 {
	return []float64{v.AgeDiff, v.DistanceKm, v.Urgency, v.TransportFlag}
}

// Categorical returns the categorical fields in Schema.Categorical order.
func (v Vector) Categorical() []string {
	return []string{v.DonorBloodGroup, v.RecipientBloodGroup, v.Organ, v.DonorTissueType}
}

// DistanceResolver is satisfied by *geo.Resolver.
type DistanceResolver interface {
	Distance(a, b string) geo.Distance
}

type Builder struct {
	geo DistanceResolver
}

func NewBuilder(resolver DistanceResolver) *Builder {
	return &Builder{geo: resolver}
}

// Build assembles the vector for d against r. The urgency argument overrides
// r.Urgency so the same receiver can be scored at a different priority.
func (b *Builder) Build(d models.Donor, r models.Receiver, urgency int) Vector {
	return FromDistance(d, r, urgency, b.geo.Distance(d.Location, r.Location))
}

// FromDistance builds a vector when the distance is already known.
func FromDistance(d models.Donor, r models.Receiver, urgency int, dist geo.Distance) Vector {
	transport := 0.0
	if d.TransportAvailable {
		transport = 1.0
	}
	return Vector{
		AgeDiff:             float64(compatibility.AgeDiff(d.Age, r.Age)),
		DistanceKm:          FeatureDistance(dist),
		Urgency:             float64(urgency),
		TransportFlag:       transport,
		DonorBloodGroup:     string(d.BloodGroup),
		RecipientBloodGroup: string(r.BloodGroup),
		Organ:               d.Organ,
		DonorTissueType:     d.TissueType,
	}
}

// FeatureDistance maps Unresolvable to UnresolvedDistanceKm.
func FeatureDistance(dist geo.Distance) float64 {
	if !dist.Resolvable() || math.IsNaN(dist.Km()) {
		return UnresolvedDistanceKm
	}
	return dist.Km()
}
