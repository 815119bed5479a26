package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second)
	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, &out))
	assert.Equal(t, 42, out.Value)
}

func TestPostJSON_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad row", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	cfg := DefaultBreakerConfig("test")
	cfg.FailureThreshold = 1
	c := NewClientWithBreaker(time.Second, cfg)

	for i := 0; i < 3; i++ {
		err := c.PostJSON(context.Background(), srv.URL, nil, nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
	}
	assert.Equal(t, "closed", c.State())
}

func TestPostJSON_ServerErrorsOpenBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultBreakerConfig("test")
	cfg.FailureThreshold = 2
	c := NewClientWithBreaker(time.Second, cfg)

	_ = c.PostJSON(context.Background(), srv.URL, nil, nil)
	_ = c.PostJSON(context.Background(), srv.URL, nil, nil)
	err := c.PostJSON(context.Background(), srv.URL, nil, nil)

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "open", c.State())
}
