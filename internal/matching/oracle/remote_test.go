package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonhttp "organmatch/internal/common/http"
	"organmatch/internal/matching/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteOracle_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, features.Schema.Numeric, req.NumericFeatures)

		probs := make([]float64, len(req.Rows))
		for i := range probs {
			probs[i] = 0.25 * float64(i+1)
		}
		_ = json.NewEncoder(w).Encode(scoreResponse{Probabilities: probs})
	}))
	defer srv.Close()

	o := NewRemoteOracle(srv.URL, time.Second)
	got, err := o.Score(context.Background(), []features.Vector{createTestVector(), createTestVector()})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5}, got)
}

func TestRemoteOracle_422IsSchemaMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown organ", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	o := NewRemoteOracle(srv.URL, time.Second)
	_, err := o.Score(context.Background(), []features.Vector{createTestVector()})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Equal(t, "closed", o.BreakerState())
}

func TestRemoteOracle_OpenCircuitIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := commonhttp.DefaultBreakerConfig("oracle-test")
	cfg.FailureThreshold = 1
	o := NewRemoteOracleWithClient(srv.URL, commonhttp.NewClientWithBreaker(time.Second, cfg))

	_, err := o.Score(context.Background(), []features.Vector{createTestVector()})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = o.Score(context.Background(), []features.Vector{createTestVector()})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "open", o.BreakerState())
}

func TestRemoteOracle_EmptyBatchSkipsCall(t *testing.T) {
	o := NewRemoteOracle("http://127.0.0.1:1", time.Second)
	got, err := o.Score(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
