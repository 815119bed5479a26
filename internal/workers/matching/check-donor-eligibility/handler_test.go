// internal/workers/matching/check-donor-eligibility/handler_test.go
package checkdonoreligibility

import (
	"context"
	"testing"

	"organmatch/internal/common/config"
	"organmatch/internal/common/errors"
	"organmatch/internal/common/logger"
	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/engine"
	"organmatch/internal/matching/features"
	"organmatch/internal/matching/geo"
	"organmatch/internal/matching/oracle"
	"organmatch/internal/matching/service"
	"organmatch/internal/models"
	"organmatch/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	resolver := geo.NewResolver(geo.DefaultTable())
	filter := compatibility.NewFilter(compatibility.DefaultRules(), resolver)
	noScore := oracle.Func(func(context.Context, []features.Vector) ([]float64, error) {
		t.Fatal("eligibility checks must not score")
		return nil, nil
	})
	eng := engine.New(filter, features.NewBuilder(resolver), noScore, engine.DefaultSelection())
	svc := service.NewMatchService(eng, repository.NewCSVStore(nil, nil), logger.NewTestLogger(t))

	return NewHandler(LoadConfig(config.WorkerConfig{}), svc, logger.NewTestLogger(t))
}

func createTestInput() *Input {
	return &Input{
		Donor: models.Donor{
			ID: "D1", Age: 38, Location: "Maharashtra", BloodGroup: models.BloodGroupOPos,
			Organ: "Kidney", TissueType: "Type1", HealthScore: 80,
		},
		Receiver: models.Receiver{
			Age: 40, Location: "Maharashtra", BloodGroup: models.BloodGroupABPos,
			OrganNeeded: "Kidney", TissueType: "Type1", Urgency: 1,
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Eligible(t *testing.T) {
	output, err := createTestHandler(t).Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, "D1", output.DonorID)
	assert.True(t, output.Eligible)
	assert.Empty(t, output.FailedClause)
	require.NotNil(t, output.DistanceKm)
	assert.InDelta(t, 0, *output.DistanceKm, 1e-9)
}

func TestHandler_Execute_FailedClauses(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Input)
		clause compatibility.Clause
	}{
		{"organ", func(in *Input) { in.Donor.Organ = "Liver" }, compatibility.ClauseOrgan},
		{"tissue", func(in *Input) { in.Donor.TissueType = "Type2" }, compatibility.ClauseTissue},
		{"blood", func(in *Input) { in.Receiver.BloodGroup = models.BloodGroupONeg }, compatibility.ClauseBlood},
		{"age", func(in *Input) { in.Donor.Age = 61 }, compatibility.ClauseAge},
		{"geography", func(in *Input) { in.Donor.Location = "Goa" }, compatibility.ClauseGeography},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := createTestInput()
			tt.mutate(input)

			output, err := createTestHandler(t).Execute(context.Background(), input)
			require.NoError(t, err)
			assert.False(t, output.Eligible)
			assert.Equal(t, string(tt.clause), output.FailedClause)
		})
	}
}

func TestHandler_Execute_TissueTypeIgnoresCase(t *testing.T) {
	input := createTestInput()
	input.Donor.TissueType = " type1 "

	output, err := createTestHandler(t).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, output.Eligible)
}

func TestHandler_Execute_UnknownRegion(t *testing.T) {
	input := createTestInput()
	input.Donor.Location = "Atlantis"

	output, err := createTestHandler(t).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, output.Eligible)
	assert.Equal(t, string(compatibility.ClauseGeography), output.FailedClause)
	assert.Nil(t, output.DistanceKm)

	input.Donor.TransportAvailable = true
	output, err = createTestHandler(t).Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, output.Eligible)
	assert.Nil(t, output.DistanceKm)
}

func TestHandler_Execute_InvalidDonor(t *testing.T) {
	input := createTestInput()
	input.Donor.HealthScore = 140

	_, err := createTestHandler(t).Execute(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.FromMatchingError(err).Code)
}

// ==========================
// Input Parsing Tests
// ==========================

func TestParseInput(t *testing.T) {
	input, err := ParseInput(`{
		"donor": {"donorId": "D9", "age": 30, "location": "Goa", "bloodGroup": "o-", "organ": "Liver", "organTissueType": "Type2", "hospitalTransportation": true},
		"receiver": {"age": 35, "location": "Goa", "bloodGroup": "A+", "organNeeded": "Liver", "tissueType": "Type2", "urgency": 0}
	}`)
	require.NoError(t, err)
	assert.Equal(t, "D9", input.Donor.ID)
	assert.True(t, input.Donor.TransportAvailable)
	assert.Equal(t, "Liver", input.Receiver.OrganNeeded)
}

func TestParseInput_MissingDonor(t *testing.T) {
	_, err := ParseInput(`{"receiver": {"age": 35, "location": "Goa", "bloodGroup": "A+", "organNeeded": "Liver", "tissueType": "Type2", "urgency": 0}}`)
	require.Error(t, err)

	stdErr := errors.FromMatchingError(err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, stdErr.Code)
	assert.Contains(t, stdErr.Details, "donor")
}
