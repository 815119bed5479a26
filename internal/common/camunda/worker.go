// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"organmatch/internal/common/config"
	"organmatch/internal/common/logger"
	"organmatch/internal/common/metrics"
	"organmatch/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler completes or fails the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// StartWorker opens a job worker for taskType with instrumentation applied.
func StartWorker(
	client zbc.Client,
	taskType string,
	cfg config.WorkerConfig,
	handler JobHandler,
	obs *observability.Observability,
	log logger.Logger,
) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})

	builder := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, obs, log)).
		MaxJobsActive(cfg.MaxJobsActive)
	if cfg.Timeout > 0 {
		builder = builder.Timeout(time.Duration(cfg.Timeout) * time.Millisecond)
	}

	w := &Worker{worker: builder.Open(), logger: log, taskType: taskType}
	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": cfg.MaxJobsActive,
		"timeoutMs":     cfg.Timeout,
	})
	return w
}

// Instrument wraps a JobHandler with the active gauge, duration histogram and
// panic recovery. A panicking handler fails the job with one retry consumed.
func Instrument(taskType string, handler JobHandler, obs *observability.Observability, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		status := "handled"

		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer func() {
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

			if r := recover(); r != nil {
				status = "panic"
				metrics.WorkerJobsFailed.WithLabelValues(taskType, "PANIC").Inc()
				log.Error("handler panicked", map[string]interface{}{
					"jobKey": job.Key,
					"panic":  fmt.Sprint(r),
				})
				failAfterPanic(client, job, r, log)
			}

			elapsed := time.Since(start)
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			if obs != nil {
				obs.RecordJobProcessed(context.Background(), taskType, status)
				obs.RecordJobDuration(context.Background(), taskType, elapsed, status)
			}
		}()

		handler.Handle(client, job)
	}
}

func failAfterPanic(client worker.JobClient, job entities.Job, r interface{}, log logger.Logger) {
	if client == nil {
		return
	}
	retries := job.Retries - 1
	if retries < 0 {
		retries = 0
	}
	_, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(fmt.Sprintf("handler panic: %v", r)).
		Send(context.Background())
	if err != nil {
		log.Error("failed to fail job after panic", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
