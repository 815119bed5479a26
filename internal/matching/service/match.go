// Package service is the single entry point used by the job workers, the
// HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"organmatch/internal/common/logger"
	"organmatch/internal/common/metrics"
	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/engine"
	"organmatch/internal/models"
	"organmatch/internal/repository"
)

// MatchRequest carries a receiver and optional per-request overrides of the
// ranking cut.
type MatchRequest struct {
	Receiver  models.Receiver `json:"receiver"`
	Threshold *float64        `json:"threshold,omitempty"`
	TopK      *int            `json:"topK,omitempty"`
}

type EligibilityRequest struct {
	Donor    models.Donor    `json:"donor"`
	Receiver models.Receiver `json:"receiver"`
}

// EligibilityResult explains a single donor/receiver decision. DistanceKm is
// nil when either location is unknown.
type EligibilityResult struct {
	Eligible     bool     `json:"eligible"`
	FailedClause string   `json:"failedClause,omitempty"`
	DistanceKm   *float64 `json:"distanceKm"`
}

type MatchService struct {
	engine *engine.Engine
	donors repository.DonorSource
	logger logger.Logger
}

func NewMatchService(e *engine.Engine, donors repository.DonorSource, log logger.Logger) *MatchService {
	return &MatchService{
		engine: e,
		donors: donors,
		logger: log.WithFields(map[string]interface{}{"component": "match-service"}),
	}
}

// Match loads the donor pool for the receiver's organ and runs the engine.
func (s *MatchService) Match(ctx context.Context, req MatchRequest) (*engine.Result, error) {
	start := time.Now()
	r := normaliseReceiver(req.Receiver)

	eng, err := s.engineFor(req)
	if err != nil {
		return nil, err
	}
	if err := engine.ValidateReceiver(r); err != nil {
		return nil, err
	}

	pool, err := s.donors.DonorsByOrgan(ctx, r.OrganNeeded)
	if err != nil {
		if !errors.Is(err, repository.ErrPoolUnavailable) {
			err = fmt.Errorf("%w: %v", repository.ErrPoolUnavailable, err)
		}
		return nil, fmt.Errorf("load donors for %s: %w", r.OrganNeeded, err)
	}

	res, err := eng.Match(ctx, r, pool)
	if err != nil {
		return nil, err
	}

	metrics.MatchRequests.WithLabelValues(string(res.Outcome)).Inc()
	metrics.EligiblePoolSize.Observe(float64(res.EligibleCount))

	s.logger.Info("match request completed", map[string]interface{}{
		"requestId":       res.RequestID,
		"organ":           r.OrganNeeded,
		"poolSize":        len(pool),
		"eligible":        res.EligibleCount,
		"returned":        len(res.Matches),
		"outcome":         string(res.Outcome),
		"bestProbability": res.BestProbability,
		"durationMs":      time.Since(start).Milliseconds(),
	})
	return res, nil
}

func (s *MatchService) engineFor(req MatchRequest) (*engine.Engine, error) {
	if req.Threshold == nil && req.TopK == nil {
		return s.engine, nil
	}
	sel := s.engine.Selection()
	var problems []string
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold >= 1 {
			problems = append(problems, fmt.Sprintf("threshold %v out of range [0, 1)", *req.Threshold))
		}
		sel.Threshold = *req.Threshold
	}
	if req.TopK != nil {
		if *req.TopK < 0 {
			problems = append(problems, fmt.Sprintf("topK %d is negative", *req.TopK))
		}
		sel.TopK = *req.TopK
	}
	if len(problems) > 0 {
		return nil, &engine.ValidationError{Problems: problems}
	}
	return s.engine.WithSelection(sel), nil
}

// CheckEligibility evaluates one donor against one receiver.
func (s *MatchService) CheckEligibility(_ context.Context, req EligibilityRequest) (*EligibilityResult, error) {
	d := normaliseDonor(req.Donor)
	r := normaliseReceiver(req.Receiver)

	var problems []string
	for _, err := range []error{engine.ValidateDonor(d), engine.ValidateReceiver(r)} {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			problems = append(problems, verr.Problems...)
		}
	}
	if len(problems) > 0 {
		return nil, &engine.ValidationError{Problems: problems}
	}

	v := s.engine.Filter().Evaluate(d, r)
	res := &EligibilityResult{Eligible: v.Eligible}
	if v.Distance.Resolvable() {
		km := v.Distance.Km()
		res.DistanceKm = &km
	}
	if !v.Eligible {
		res.FailedClause = string(v.FailedClause)
		metrics.FilterRejections.WithLabelValues(res.FailedClause).Inc()
	}
	return res, nil
}

// Rules exposes the active eligibility thresholds.
func (s *MatchService) Rules() compatibility.Rules {
	return s.engine.Filter().Rules()
}

func normaliseReceiver(r models.Receiver) models.Receiver {
	if bg, err := models.ParseBloodGroup(string(r.BloodGroup)); err == nil {
		r.BloodGroup = bg
	}
	return r
}

func normaliseDonor(d models.Donor) models.Donor {
	if bg, err := models.ParseBloodGroup(string(d.BloodGroup)); err == nil {
		d.BloodGroup = bg
	}
	return d
}
