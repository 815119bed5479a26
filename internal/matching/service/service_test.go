package service

import (
	"context"
	"errors"
	"testing"

	"organmatch/internal/common/logger"
	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/engine"
	"organmatch/internal/matching/features"
	"organmatch/internal/matching/geo"
	"organmatch/internal/matching/labeler"
	"organmatch/internal/matching/oracle"
	"organmatch/internal/models"
	"organmatch/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func testDonors() []models.Donor {
	return []models.Donor{
		{ID: "D1", Age: 38, Location: "Maharashtra", BloodGroup: models.BloodGroupOPos, Organ: "Kidney", TissueType: "Type1", HealthScore: 80},
		{ID: "D2", Age: 45, Location: "Goa", BloodGroup: models.BloodGroupAPos, Organ: "Kidney", TissueType: "Type1", HealthScore: 60},
		{ID: "D3", Age: 50, Location: "Gujarat", BloodGroup: models.BloodGroupBNeg, Organ: "Kidney", TissueType: "Type1", HealthScore: 70, TransportAvailable: true},
		{ID: "D4", Age: 70, Location: "Maharashtra", BloodGroup: models.BloodGroupONeg, Organ: "Kidney", TissueType: "Type1", HealthScore: 90},
		{ID: "D5", Age: 41, Location: "Maharashtra", BloodGroup: models.BloodGroupONeg, Organ: "Liver", TissueType: "Type1", HealthScore: 90, TransportAvailable: true},
	}
}

func testReceiver() models.Receiver {
	return models.Receiver{Age: 40, Location: "Maharashtra", BloodGroup: models.BloodGroupABPos, OrganNeeded: "Kidney", TissueType: "Type1", Urgency: 2}
}

// ageOracle scores 0.9 minus one point per year of age difference.
type ageOracle struct {
	calls int
}

func (o *ageOracle) Score(_ context.Context, rows []features.Vector) ([]float64, error) {
	o.calls++
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = 0.9 - 0.01*r.AgeDiff
	}
	return out, nil
}

func newTestService(t *testing.T, o oracle.Oracle, source repository.DonorSource) *MatchService {
	resolver := geo.NewResolver(geo.DefaultTable())
	filter := compatibility.NewFilter(compatibility.DefaultRules(), resolver)
	eng := engine.New(filter, features.NewBuilder(resolver), o, engine.DefaultSelection())
	return NewMatchService(eng, source, logger.NewTestLogger(t))
}

type trackingSource struct {
	*repository.CSVStore
	organs []string
	err    error
}

func (s *trackingSource) DonorsByOrgan(ctx context.Context, organ string) ([]models.Donor, error) {
	s.organs = append(s.organs, organ)
	if s.err != nil {
		return nil, s.err
	}
	return s.CSVStore.DonorsByOrgan(ctx, organ)
}

func newSource() *trackingSource {
	return &trackingSource{CSVStore: repository.NewCSVStore(testDonors(), nil)}
}

func ptr[T any](v T) *T { return &v }

// ==========================
// Match
// ==========================

func TestMatchService_Match(t *testing.T) {
	source := newSource()
	svc := newTestService(t, &ageOracle{}, source)

	res, err := svc.Match(context.Background(), MatchRequest{Receiver: testReceiver()})
	require.NoError(t, err)

	assert.Equal(t, []string{"Kidney"}, source.organs)
	assert.Equal(t, engine.OutcomeMatched, res.Outcome)
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, 2, res.EligibleCount)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "D1", res.Matches[0].DonorID)
	assert.InDelta(t, 0.88, res.Matches[0].Probability, 1e-9)
	assert.Equal(t, "D3", res.Matches[1].DonorID)
	assert.InDelta(t, 0.88, res.BestProbability, 1e-9)
}

func TestMatchService_NormalisesBloodGroup(t *testing.T) {
	svc := newTestService(t, &ageOracle{}, newSource())
	r := testReceiver()
	r.BloodGroup = " ab+ "

	res, err := svc.Match(context.Background(), MatchRequest{Receiver: r})
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeMatched, res.Outcome)
}

func TestMatchService_SelectionOverrides(t *testing.T) {
	svc := newTestService(t, &ageOracle{}, newSource())

	res, err := svc.Match(context.Background(), MatchRequest{Receiver: testReceiver(), TopK: ptr(1)})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "D1", res.Matches[0].DonorID)

	res, err = svc.Match(context.Background(), MatchRequest{Receiver: testReceiver(), Threshold: ptr(0.95)})
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeBelowThreshold, res.Outcome)
	assert.Empty(t, res.Matches)
	assert.InDelta(t, 0.88, res.BestProbability, 1e-9)

	_, err = svc.Match(context.Background(), MatchRequest{Receiver: testReceiver(), Threshold: ptr(1.0)})
	assert.ErrorIs(t, err, engine.ErrInvalidRequest)

	_, err = svc.Match(context.Background(), MatchRequest{Receiver: testReceiver(), TopK: ptr(-1)})
	assert.ErrorIs(t, err, engine.ErrInvalidRequest)
}

func TestMatchService_EmptyPool(t *testing.T) {
	o := &ageOracle{}
	svc := newTestService(t, o, newSource())
	r := testReceiver()
	r.OrganNeeded = "Heart"

	res, err := svc.Match(context.Background(), MatchRequest{Receiver: r})
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeEmptyPool, res.Outcome)
	assert.Zero(t, o.calls)
}

func TestMatchService_InvalidRequestSkipsPool(t *testing.T) {
	source := newSource()
	svc := newTestService(t, &ageOracle{}, source)
	r := testReceiver()
	r.Age = 130

	_, err := svc.Match(context.Background(), MatchRequest{Receiver: r})
	assert.ErrorIs(t, err, engine.ErrInvalidRequest)
	assert.Empty(t, source.organs)
}

func TestMatchService_PoolUnavailable(t *testing.T) {
	for _, cause := range []error{
		errors.New("dial tcp: connection refused"),
		repository.ErrPoolUnavailable,
	} {
		source := newSource()
		source.err = cause
		svc := newTestService(t, &ageOracle{}, source)

		_, err := svc.Match(context.Background(), MatchRequest{Receiver: testReceiver()})
		assert.ErrorIs(t, err, repository.ErrPoolUnavailable)
	}
}

func TestMatchService_OracleErrorsPropagate(t *testing.T) {
	failing := oracle.Func(func(context.Context, []features.Vector) ([]float64, error) {
		return nil, oracle.ErrUnavailable
	})
	svc := newTestService(t, failing, newSource())

	_, err := svc.Match(context.Background(), MatchRequest{Receiver: testReceiver()})
	assert.ErrorIs(t, err, oracle.ErrUnavailable)
}

// ==========================
// Eligibility
// ==========================

func TestMatchService_CheckEligibility(t *testing.T) {
	svc := newTestService(t, &ageOracle{}, newSource())
	donors := testDonors()

	tests := []struct {
		name      string
		donor     models.Donor
		receiver  func(models.Receiver) models.Receiver
		eligible  bool
		clause    string
		hasDistKm bool
	}{
		{"same state", donors[0], nil, true, "", true},
		{"too far without transport", donors[1], nil, false, "geography", true},
		{"transport bridges distance", donors[2], nil, true, "", true},
		{"age window", donors[3], nil, false, "age_window", true},
		{"organ", donors[4], nil, false, "organ", true},
		{"unknown receiver location with transport", donors[2], func(r models.Receiver) models.Receiver {
			r.Location = "Atlantis"
			return r
		}, true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testReceiver()
			if tt.receiver != nil {
				r = tt.receiver(r)
			}
			res, err := svc.CheckEligibility(context.Background(), EligibilityRequest{Donor: tt.donor, Receiver: r})
			require.NoError(t, err)
			assert.Equal(t, tt.eligible, res.Eligible)
			assert.Equal(t, tt.clause, res.FailedClause)
			assert.Equal(t, tt.hasDistKm, res.DistanceKm != nil)
		})
	}
}

func TestMatchService_CheckEligibility_Invalid(t *testing.T) {
	svc := newTestService(t, &ageOracle{}, newSource())
	d := testDonors()[0]
	d.BloodGroup = "Z+"
	r := testReceiver()
	r.Urgency = 5

	_, err := svc.CheckEligibility(context.Background(), EligibilityRequest{Donor: d, Receiver: r})
	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
	assert.Equal(t, compatibility.DefaultRules(), svc.Rules())
}

// ==========================
// Training batches
// ==========================

type recordingSink struct {
	batchID string
	rows    []labeler.LabeledPair
	err     error
}

func (s *recordingSink) InsertTrainingPairs(_ context.Context, batchID string, rows []labeler.LabeledPair) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.batchID = batchID
	s.rows = rows
	return len(rows), nil
}

func newTrainingService(t *testing.T, sink repository.TrainingSink, keep bool) *TrainingService {
	receivers := []models.Receiver{
		{ID: "R1", Age: 40, Location: "Maharashtra", BloodGroup: models.BloodGroupABPos, OrganNeeded: "Kidney", TissueType: "Type1", Urgency: 2},
		{ID: "R2", Age: 44, Location: "Goa", BloodGroup: models.BloodGroupOPos, OrganNeeded: "Liver", TissueType: "Type1", Urgency: 0},
	}
	store := repository.NewCSVStore(testDonors(), receivers)
	filter := compatibility.NewFilter(compatibility.DefaultRules(), geo.NewResolver(geo.DefaultTable()))
	return NewTrainingService(store, sink, labeler.New(filter, labeler.Options{Concurrency: 2, KeepGeographyFailures: keep}), logger.NewNoOpLogger())
}

func TestTrainingService_Run(t *testing.T) {
	sink := &recordingSink{}
	svc := newTrainingService(t, sink, true)

	run, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.BatchID)
	assert.Equal(t, run.BatchID, sink.batchID)
	assert.Equal(t, 5, run.Donors)
	assert.Equal(t, 2, run.Receivers)
	assert.Equal(t, len(sink.rows), run.Rows)
	assert.Equal(t, run.Rows, run.Positives+run.Negatives)

	pairs := make([]string, len(sink.rows))
	for i, r := range sink.rows {
		pairs[i] = r.DonorID + "/" + r.ReceiverID
	}
	assert.Equal(t, []string{"D1/R1", "D2/R1", "D3/R1", "D5/R2"}, pairs)
	assert.Equal(t, 0, sink.rows[1].Success)
	assert.Equal(t, 1, run.Negatives)
}

func TestTrainingService_SinkFailure(t *testing.T) {
	svc := newTrainingService(t, &recordingSink{err: errors.New("disk full")}, false)

	_, err := svc.Run(context.Background())
	assert.ErrorContains(t, err, "disk full")
}
