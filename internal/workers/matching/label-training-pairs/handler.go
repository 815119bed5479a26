// internal/workers/matching/label-training-pairs/handler.go
package labeltrainingpairs

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"organmatch/internal/common/errors"
	"organmatch/internal/common/logger"
	"organmatch/internal/common/metrics"
	"organmatch/internal/matching/labeler"
	"organmatch/internal/matching/service"
	"organmatch/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "label-training-pairs"
)

type Trainer interface {
	Label(ctx context.Context) ([]labeler.LabeledPair, *service.LabelRun, error)
	Run(ctx context.Context) (*service.LabelRun, error)
}

type Handler struct {
	config       *Config
	trainer      Trainer
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, trainer Trainer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		trainer:      trainer,
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

	var input Input
	if vars := strings.TrimSpace(job.Variables); vars != "" {
		if err := json.Unmarshal([]byte(vars), &input); err != nil {
			h.failJob(ctx, client, job, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
			return
		}
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.DryRun {
		_, run, err := h.trainer.Label(ctx)
		if err != nil {
			return nil, classify(err)
		}
		return toOutput(run, false), nil
	}

	run, err := h.trainer.Run(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return toOutput(run, true), nil
}

// classify keeps pool failures on their own code and reports everything else
// as a labeling failure.
func classify(err error) error {
	if stderrors.Is(err, repository.ErrPoolUnavailable) {
		return err
	}
	return errors.NewLabelingFailedError(err)
}

func toOutput(run *service.LabelRun, persisted bool) *Output {
	return &Output{
		BatchID:   run.BatchID,
		Donors:    run.Donors,
		Receivers: run.Receivers,
		Rows:      run.Rows,
		Positives: run.Positives,
		Negatives: run.Negatives,
		Persisted: persisted,
	}
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
		"batchId":   output.BatchID,
		"rows":      output.Rows,
		"positives": output.Positives,
		"persisted": output.Persisted,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := h.errorHandler.HandleJobError(ctx, client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
