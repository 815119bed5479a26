package compatibility

import (
	"strings"
	"testing"

	"organmatch/internal/matching/geo"
	"organmatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// stubDistances returns a fixed distance per donor location; unknown
// locations are unresolvable.
type stubDistances map[string]geo.Distance

func (s stubDistances) Distance(a, _ string) geo.Distance {
	if d, ok := s[a]; ok {
		return d
	}
	return geo.Unresolvable
}

func createTestDonor() models.Donor {
	return models.Donor{
		ID:                 "D-001",
		Age:                38,
		Location:           "Maharashtra",
		BloodGroup:         models.BloodGroupOPos,
		Organ:              "Kidney",
		TissueType:         "Type1",
		HealthScore:        80,
		TransportAvailable: false,
	}
}

func createTestReceiver() models.Receiver {
	return models.Receiver{
		Age:         40,
		Location:    "Maharashtra",
		BloodGroup:  models.BloodGroupOPos,
		OrganNeeded: "Kidney",
		TissueType:  "Type1",
		Urgency:     1,
	}
}

func newTestFilter() *Filter {
	return NewFilter(DefaultRules(), NewResolverForTest())
}

func NewResolverForTest() *geo.Resolver {
	return geo.NewResolver(geo.DefaultTable())
}

// expectedCompatible derives compatibility from antigens: the donor's A/B
// antigens must be a subset of the recipient's, and Rh+ blood only goes to
// Rh+ recipients.
func expectedCompatible(donor, recipient models.BloodGroup) bool {
	abo := func(bg models.BloodGroup) string { return strings.TrimRight(string(bg), "+-") }
	rhPos := func(bg models.BloodGroup) bool { return strings.HasSuffix(string(bg), "+") }

	d, r := abo(donor), abo(recipient)
	for _, antigen := range []string{"A", "B"} {
		if strings.Contains(d, antigen) && !strings.Contains(r, antigen) {
			return false
		}
	}
	return !rhPos(donor) || rhPos(recipient)
}

// ==========================
// Blood lattice
// ==========================

func TestCanDonate_AgreesWithAntigenRules(t *testing.T) {
	for _, donor := range models.BloodGroups {
		for _, recipient := range models.BloodGroups {
			assert.Equal(t, expectedCompatible(donor, recipient), CanDonate(donor, recipient),
				"%s -> %s", donor, recipient)
		}
	}
}

func TestCanDonate_Extremes(t *testing.T) {
	assert.Len(t, Recipients(models.BloodGroupONeg), 8, "O- donates to all")
	assert.Equal(t, []models.BloodGroup{models.BloodGroupABPos}, Recipients(models.BloodGroupABPos))
	assert.False(t, CanDonate(models.BloodGroupABPos, models.BloodGroupONeg))
	assert.False(t, CanDonate("Z+", models.BloodGroupABPos))

	for _, donor := range models.BloodGroups {
		assert.True(t, CanDonate(donor, models.BloodGroupABPos), "AB+ receives from %s", donor)
	}
}

func TestIsEligible_AgreesWithLattice(t *testing.T) {
	f := newTestFilter()
	for _, donorBG := range models.BloodGroups {
		for _, recipientBG := range models.BloodGroups {
			d := createTestDonor()
			d.BloodGroup = donorBG
			r := createTestReceiver()
			r.BloodGroup = recipientBG

			assert.Equal(t, CanDonate(donorBG, recipientBG), f.IsEligible(d, r), "%s -> %s", donorBG, recipientBG)
		}
	}
}

// ==========================
// Clause boundaries
// ==========================

func TestIsEligible_AgeWindowBoundary(t *testing.T) {
	f := newTestFilter()
	r := createTestReceiver()

	tests := []struct {
		name     string
		donorAge int
		eligible bool
	}{
		{"diff 0", 40, true},
		{"diff 20 older", 60, true},
		{"diff 20 younger", 20, true},
		{"diff 21 older", 61, false},
		{"diff 21 younger", 19, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := createTestDonor()
			d.Age = tt.donorAge
			v := f.Evaluate(d, r)
			assert.Equal(t, tt.eligible, v.Eligible)
			if !tt.eligible {
				assert.Equal(t, ClauseAge, v.FailedClause)
			}
		})
	}
}

func TestIsEligible_AgeWindowConfigurable(t *testing.T) {
	rules := DefaultRules()
	rules.AgeWindowYears = 5
	f := NewFilter(rules, NewResolverForTest())

	d := createTestDonor()
	d.Age = 46
	assert.False(t, f.IsEligible(d, createTestReceiver()))
	d.Age = 45
	assert.True(t, f.IsEligible(d, createTestReceiver()))
}

func TestIsEligible_GeographyBoundary(t *testing.T) {
	distances := stubDistances{
		"at-limit":   geo.Distance(200.00),
		"past-limit": geo.Distance(200.01),
	}
	f := NewFilter(DefaultRules(), distances)
	r := createTestReceiver()

	tests := []struct {
		name      string
		location  string
		transport bool
		eligible  bool
	}{
		{"200.00 km without transport", "at-limit", false, true},
		{"200.01 km without transport", "past-limit", false, false},
		{"200.01 km with transport", "past-limit", true, true},
		{"unresolvable without transport", "nowhere", false, false},
		{"unresolvable with transport", "nowhere", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := createTestDonor()
			d.Location = tt.location
			d.TransportAvailable = tt.transport

			v := f.Evaluate(d, r)
			assert.Equal(t, tt.eligible, v.Eligible)
			assert.Equal(t, tt.eligible, f.IsEligible(d, r))
			if !tt.eligible {
				assert.Equal(t, ClauseGeography, v.FailedClause)
			}
		})
	}
}

func TestIsEligible_TissueNormalisation(t *testing.T) {
	f := newTestFilter()
	r := createTestReceiver()

	for _, tissue := range []string{"Type1", "type1", " TYPE1 ", "\tType1\n"} {
		d := createTestDonor()
		d.TissueType = tissue
		assert.True(t, f.IsEligible(d, r), "tissue %q", tissue)
	}

	d := createTestDonor()
	d.TissueType = "Type2"
	assert.Equal(t, ClauseTissue, f.Evaluate(d, r).FailedClause)
}

func TestEvaluate_ReportsFirstFailingClause(t *testing.T) {
	f := newTestFilter()
	r := createTestReceiver()

	d := createTestDonor()
	d.Organ = "Liver"
	d.BloodGroup = models.BloodGroupABPos
	d.Age = 90
	assert.Equal(t, ClauseOrgan, f.Evaluate(d, r).FailedClause)

	d = createTestDonor()
	d.BloodGroup = models.BloodGroupABPos
	d.Age = 90
	assert.Equal(t, ClauseBlood, f.Evaluate(d, r).FailedClause)
}

func TestEvaluate_HealthScoreClause(t *testing.T) {
	d := createTestDonor()
	d.HealthScore = 30

	assert.True(t, newTestFilter().IsEligible(d, createTestReceiver()), "disabled by default")

	rules := DefaultRules()
	rules.MinHealthScore = 40
	f := NewFilter(rules, NewResolverForTest())
	assert.Equal(t, ClauseHealth, f.Evaluate(d, createTestReceiver()).FailedClause)

	d.HealthScore = 40
	assert.True(t, f.IsEligible(d, createTestReceiver()))
}

func TestEligible_PreservesPoolOrder(t *testing.T) {
	f := newTestFilter()

	var pool []models.Donor
	for i, age := range []int{38, 90, 45, 39, 10, 50} {
		d := createTestDonor()
		d.ID = string(rune('A' + i))
		d.Age = age
		pool = append(pool, d)
	}

	got := f.Eligible(createTestReceiver(), pool)
	var ids []string
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"A", "C", "D", "F"}, ids)
}

// ==========================
// Shared geography predicate
// ==========================

func TestLabel_MatchesGeoFeasible(t *testing.T) {
	for _, transport := range []bool{true, false} {
		for _, dist := range []geo.Distance{0, 199.99, 200, 200.01, 5000, geo.Unresolvable} {
			feasible := GeoFeasible(transport, dist, DefaultMaxDistanceKm)
			label := Label(transport, dist, DefaultMaxDistanceKm)
			require.Equal(t, feasible, label == 1, "transport=%v dist=%v", transport, dist)
		}
	}
}
