package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"organmatch/internal/common/logger"
	"organmatch/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Retry behaviour
// ==========================

func TestRetryConfig_Delay(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, 1*time.Second, cfg.Delay(0))
	assert.Equal(t, 2*time.Second, cfg.Delay(1))
	assert.Equal(t, 8*time.Second, cfg.Delay(3))
	assert.Equal(t, 10*time.Second, cfg.Delay(4))
	assert.Equal(t, 10*time.Second, cfg.Delay(62))
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	calls := 0

	err := retry(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	}, "topology")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustedIsBrokerUnavailable(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	calls := 0

	err := retry(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("context deadline exceeded")
	}, "topology")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	calls := 0
	permanent := errors.New("permission denied")

	err := retry(context.Background(), cfg, func(context.Context) error {
		calls++
		return permanent
	}, "deploy")

	assert.ErrorIs(t, err, permanent)
	assert.NotErrorIs(t, err, ErrBrokerUnavailable)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	cfg := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, cfg, func(context.Context) error {
		return errors.New("unavailable")
	}, "topology")

	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// Instrumentation
// ==========================

type recordingHandler struct {
	jobs []int64
}

func (h *recordingHandler) Handle(_ worker.JobClient, job entities.Job) {
	h.jobs = append(h.jobs, job.Key)
}

type panickingHandler struct{}

func (panickingHandler) Handle(worker.JobClient, entities.Job) {
	panic("nil donor pool")
}

func TestInstrument_DelegatesAndRestoresGauge(t *testing.T) {
	h := &recordingHandler{}
	wrapped := Instrument("instrument-test", h, nil, logger.NewNoOpLogger())

	wrapped(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Retries: 3}})

	assert.Equal(t, []int64{42}, h.jobs)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues("instrument-test")))
}

func TestInstrument_RecoversPanic(t *testing.T) {
	wrapped := Instrument("instrument-panic", panickingHandler{}, nil, logger.NewNoOpLogger())

	assert.NotPanics(t, func() {
		wrapped(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Retries: 1}})
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues("instrument-panic", "PANIC")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues("instrument-panic")))
}
