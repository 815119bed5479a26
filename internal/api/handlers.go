package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"organmatch/internal/common/errors"
	"organmatch/internal/common/logger"
	"organmatch/internal/common/validation"
	"organmatch/internal/matching/service"
	"organmatch/pkg/registry"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

var (
	matchSchema       = validation.MustCompile(validation.MatchRequestSchema)
	eligibilitySchema = validation.MustCompile(validation.EligibilityRequestSchema)
)

type handlers struct {
	matcher    Matcher
	regions    Regions
	checks     map[string]ReadinessCheck
	activities *registry.ActivityRegistry
	logger     logger.Logger
}

type regionsResponse struct {
	Regions []string `json:"regions"`
	Count   int      `json:"count"`
}

type distanceResponse struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Resolvable bool     `json:"resolvable"`
	DistanceKm *float64 `json:"distanceKm"`
}

type rulesResponse struct {
	AgeWindowYears int     `json:"ageWindowYears"`
	MaxDistanceKm  float64 `json:"maxDistanceKm"`
	MinHealthScore int     `json:"minHealthScore"`
}

func (h *handlers) findMatches(w http.ResponseWriter, r *http.Request) {
	var req service.MatchRequest
	if stdErr := decodeValidated(r, matchSchema, &req); stdErr != nil {
		writeError(w, stdErr)
		return
	}

	res, err := h.matcher.Match(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) checkEligibility(w http.ResponseWriter, r *http.Request) {
	var req service.EligibilityRequest
	if stdErr := decodeValidated(r, eligibilitySchema, &req); stdErr != nil {
		writeError(w, stdErr)
		return
	}

	res, err := h.matcher.CheckEligibility(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) listRegions(w http.ResponseWriter, _ *http.Request) {
	regions := h.regions.Regions()
	writeJSON(w, http.StatusOK, regionsResponse{Regions: regions, Count: len(regions)})
}

func (h *handlers) distance(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeError(w, errors.NewInvalidRequestError("query parameters from and to are required"))
		return
	}

	resp := distanceResponse{From: from, To: to}
	if d := h.regions.Distance(from, to); d.Resolvable() {
		km := d.Km()
		resp.Resolvable = true
		resp.DistanceKm = &km
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) rules(w http.ResponseWriter, _ *http.Request) {
	rules := h.matcher.Rules()
	writeJSON(w, http.StatusOK, rulesResponse{
		AgeWindowYears: rules.AgeWindowYears,
		MaxDistanceKm:  rules.MaxDistanceKm,
		MinHealthScore: rules.MinHealthScore,
	})
}

func (h *handlers) listActivities(w http.ResponseWriter, _ *http.Request) {
	if h.activities == nil {
		writeJSON(w, http.StatusOK, registry.ActivityRegistry{Activities: []registry.Activity{}})
		return
	}
	writeJSON(w, http.StatusOK, h.activities)
}

func (h *handlers) getActivity(w http.ResponseWriter, r *http.Request) {
	taskType := mux.Vars(r)["taskType"]
	if h.activities != nil {
		if a, ok := h.activities.Find(taskType); ok {
			writeJSON(w, http.StatusOK, a)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown task type " + taskType})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.FromMatchingError(err)
	h.logger.Warn("request failed", map[string]interface{}{
		"path":      r.URL.Path,
		"errorCode": stdErr.Code,
		"error":     err,
	})
	writeError(w, stdErr)
}

// decodeValidated checks the body against schema before decoding it into v.
func decodeValidated(r *http.Request, schema *validation.Schema, v interface{}) *errors.StandardError {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return errors.NewInvalidRequestError(fmt.Sprintf("read body: %v", err))
	}
	if len(body) > maxBodyBytes {
		return errors.NewInvalidRequestError("request body too large")
	}

	result, err := schema.ValidateJSON(body)
	if err != nil {
		return errors.NewInvalidRequestError(fmt.Sprintf("parse body: %v", err))
	}
	if !result.Valid {
		stdErr := errors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; "))
		stdErr.Metadata = map[string]interface{}{"errors": result.Errors}
		return stdErr
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewInvalidRequestError(fmt.Sprintf("parse body: %v", err))
	}
	return nil
}

// StatusFor maps a standard error code onto an HTTP status.
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case errors.ErrCodeSchemaMismatch:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeOracleUnavailable, errors.ErrCodeDonorPoolUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeOracleContract:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, stdErr *errors.StandardError) {
	writeJSON(w, StatusFor(stdErr.Code), map[string]interface{}{"error": stdErr})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
