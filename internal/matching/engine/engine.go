// Package engine runs the online path: filter, build features, score, rank.
package engine

import (
	"context"
	"fmt"
	"math"

	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/features"
	"organmatch/internal/matching/oracle"
	"organmatch/internal/matching/ranking"
	"organmatch/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "organmatch/matching/engine"

// Outcome distinguishes the three legitimate results of a match request.
type Outcome string

const (
	OutcomeMatched        Outcome = "MATCHED"
	OutcomeEmptyPool      Outcome = "EMPTY_POOL"
	OutcomeBelowThreshold Outcome = "BELOW_THRESHOLD"
)

// Result is never partial: it is returned only when every stage succeeded.
type Result struct {
	RequestID       string               `json:"requestId"`
	Outcome         Outcome              `json:"outcome"`
	Matches         []models.MatchResult `json:"matches"`
	EligibleCount   int                  `json:"eligibleCount"`
	BestProbability float64              `json:"bestProbability"`
}

// Selection is the ranking cut applied to scored candidates.
type Selection struct {
	Threshold float64
	TopK      int
}

func DefaultSelection() Selection {
	return Selection{Threshold: ranking.DefaultThreshold, TopK: ranking.DefaultTopK}
}

// Engine holds only immutable collaborators and is safe for concurrent use.
type Engine struct {
	filter    *compatibility.Filter
	builder   *features.Builder
	oracle    oracle.Oracle
	selection Selection
	tracer    trace.Tracer
}

func New(filter *compatibility.Filter, builder *features.Builder, o oracle.Oracle, sel Selection) *Engine {
	return &Engine{
		filter:    filter,
		builder:   builder,
		oracle:    o,
		selection: sel,
		tracer:    otel.Tracer(tracerName),
	}
}

// WithSelection returns a copy of the engine using a different cut.
func (e *Engine) WithSelection(sel Selection) *Engine {
	cp := *e
	cp.selection = sel
	return &cp
}

func (e *Engine) Selection() Selection {
	return e.selection
}

func (e *Engine) Filter() *compatibility.Filter {
	return e.filter
}

// Match ranks pool for receiver r.
func (e *Engine) Match(ctx context.Context, r models.Receiver, pool []models.Donor) (*Result, error) {
	requestID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "engine.Match", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("receiver.organ", r.OrganNeeded),
		attribute.Int("pool.size", len(pool)),
	))
	defer span.End()

	if err := ValidateReceiver(r); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	candidates, rows := e.eligibleRows(ctx, r, pool)

	res := &Result{
		RequestID:     requestID,
		EligibleCount: len(candidates),
		Matches:       []models.MatchResult{},
	}
	if len(candidates) == 0 {
		res.Outcome = OutcomeEmptyPool
		span.SetAttributes(attribute.String("match.outcome", string(res.Outcome)))
		return res, nil
	}

	if err := e.score(ctx, candidates, rows); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		return nil, err
	}

	res.BestProbability, _ = ranking.Best(candidates)

	_, rankSpan := e.tracer.Start(ctx, "engine.rank")
	res.Matches = ranking.Select(candidates, e.selection.Threshold, e.selection.TopK)
	rankSpan.End()

	if len(res.Matches) == 0 {
		res.Outcome = OutcomeBelowThreshold
	} else {
		res.Outcome = OutcomeMatched
	}
	span.SetAttributes(
		attribute.String("match.outcome", string(res.Outcome)),
		attribute.Float64("match.best_probability", res.BestProbability),
	)
	return res, nil
}

// eligibleRows filters the pool and builds one feature row per survivor,
// preserving pool order.
func (e *Engine) eligibleRows(ctx context.Context, r models.Receiver, pool []models.Donor) ([]models.MatchResult, []features.Vector) {
	_, span := e.tracer.Start(ctx, "engine.filter")
	defer span.End()

	var (
		candidates []models.MatchResult
		rows       []features.Vector
	)
	for _, d := range pool {
		v := e.filter.Evaluate(d, r)
		if !v.Eligible {
			continue
		}
		row := features.FromDistance(d, r, r.Urgency, v.Distance)
		rows = append(rows, row)
		candidates = append(candidates, models.MatchResult{
			DonorID:            d.ID,
			Age:                d.Age,
			Location:           d.Location,
			DistanceKm:         math.Round(row.DistanceKm*100) / 100,
			HealthScore:        d.HealthScore,
			HospitalName:       d.HospitalName,
			ContactEmail:       d.ContactEmail,
			ContactPhone:       d.ContactPhone,
			TransportAvailable: d.TransportAvailable,
		})
	}
	span.SetAttributes(attribute.Int("pool.eligible", len(candidates)))
	return candidates, rows
}

// score fills in Probability for each candidate or fails the whole request.
func (e *Engine) score(ctx context.Context, candidates []models.MatchResult, rows []features.Vector) error {
	ctx, span := e.tracer.Start(ctx, "engine.score", trace.WithAttributes(attribute.Int("rows", len(rows))))
	defer span.End()

	probs, err := e.oracle.Score(ctx, rows)
	if err != nil {
		return fmt.Errorf("score candidates: %w", err)
	}
	if len(probs) != len(rows) {
		return fmt.Errorf("%w: %d probabilities for %d rows", ErrOracleContract, len(probs), len(rows))
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v at row %d", ErrOracleContract, p, i)
		}
		candidates[i].Probability = p
	}
	return nil
}
