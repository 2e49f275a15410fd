// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"content-testing-workers/internal/common/config"
	"content-testing-workers/internal/common/errors"
	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobRecorder receives per-job measurements in addition to the Prometheus vectors.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, d time.Duration, status string)
}

// StartWorker opens a job worker for taskType. Disabled workers return nil.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, rec JobRecorder, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, rec, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}

// Instrument tracks active jobs and handler duration for taskType.
func Instrument(taskType string, rec JobRecorder, next worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		start := time.Now()
		defer func() {
			d := time.Since(start)
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(d.Seconds())
			if rec != nil {
				rec.RecordJobDuration(context.Background(), taskType, d, "handled")
			}
		}()
		next(client, job)
	}
}

// CompleteJob sends output as the job's result variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return fmt.Errorf("encode job output: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}
	metrics.WorkerJobsCompleted.WithLabelValues(job.Type).Inc()
	return nil
}

// FailJob counts the failure and hands it to the shared error handler.
func FailJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, h *errors.ErrorHandler) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(stdErr.Code)).Inc()
	h.HandleJobError(ctx, client, job, stdErr)
}
