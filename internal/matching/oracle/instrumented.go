package oracle

import (
	"context"
	"time"

	"organmatch/internal/common/metrics"
	"organmatch/internal/matching/features"
)

type instrumented struct {
	next Oracle
	name string
}

// WithMetrics records per-batch latency of next under the given oracle label.
func WithMetrics(next Oracle, name string) Oracle {
	return &instrumented{next: next, name: name}
}

func (o *instrumented) Score(ctx context.Context, rows []features.Vector) ([]float64, error) {
	start := time.Now()
	probs, err := o.next.Score(ctx, rows)
	metrics.OracleLatency.WithLabelValues(o.name).Observe(time.Since(start).Seconds())
	return probs, err
}
