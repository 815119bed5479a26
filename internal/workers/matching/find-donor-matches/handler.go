// internal/workers/matching/find-donor-matches/handler.go
package finddonormatches

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"organmatch/internal/common/errors"
	"organmatch/internal/common/logger"
	"organmatch/internal/common/metrics"
	"organmatch/internal/common/validation"
	"organmatch/internal/matching/engine"
	"organmatch/internal/matching/service"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "find-donor-matches"
)

var inputSchema = validation.MustCompile(validation.MatchRequestSchema)

type MatchService interface {
	Match(ctx context.Context, req service.MatchRequest) (*engine.Result, error)
}

type Handler struct {
	config       *Config
	service      MatchService
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, svc MatchService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      svc,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// ParseInput validates job variables against the match request schema
// before decoding them.
func ParseInput(variables string) (*Input, error) {
	result, err := inputSchema.ValidateJSON([]byte(variables))
	if err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	if !result.Valid {
		return nil, errors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Match(ctx, *input)
	if err != nil {
		return nil, err
	}

	return &Output{
		RequestID:       res.RequestID,
		Outcome:         string(res.Outcome),
		HasMatches:      res.Outcome == engine.OutcomeMatched,
		Matches:         res.Matches,
		EligibleCount:   res.EligibleCount,
		BestProbability: res.BestProbability,
		Urgency:         input.Receiver.Urgency,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":    job.Key,
		"requestId": output.RequestID,
		"outcome":   output.Outcome,
		"matches":   len(output.Matches),
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := h.errorHandler.HandleJobError(ctx, client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
