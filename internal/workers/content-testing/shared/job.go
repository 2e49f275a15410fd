// internal/workers/content-testing/shared/job.go
package shared

import (
	"context"
	"encoding/json"
	"fmt"

	"content-testing-workers/internal/common/camunda"
	"content-testing-workers/internal/common/errors"
	"content-testing-workers/internal/common/logger"
	"content-testing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("content-testing-workers/internal/workers/content-testing")

// DecodeInput checks the job variables against the registered input schema
// of taskType, then decodes them into out.
func DecodeInput(job entities.Job, reg *registry.ActivityRegistry, taskType string, out interface{}) error {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return fmt.Errorf("%w: parse variables: %v", ErrInvalidInput, err)
	}
	if err := reg.ValidateInput(taskType, vars); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := json.Unmarshal([]byte(job.Variables), out); err != nil {
		return fmt.Errorf("%w: decode variables: %v", ErrInvalidInput, err)
	}
	return nil
}

// Reporter sends a job's outcome back to the engine.
type Reporter struct {
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewReporter(log logger.Logger) *Reporter {
	return &Reporter{logger: log, errHandler: errors.NewErrorHandler(log)}
}

// StartJob opens a span for the job and returns a logger carrying its ids.
func (r *Reporter) StartJob(ctx context.Context, taskType string, job entities.Job) (context.Context, trace.Span, logger.Logger) {
	ctx, span := tracer.Start(ctx, taskType, trace.WithAttributes(
		attribute.String("zeebe.task_type", taskType),
		attribute.Int64("zeebe.job_key", job.Key),
		attribute.Int64("zeebe.process_instance_key", job.ProcessInstanceKey),
	))
	log := r.logger.WithContext(ctx)
	log.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	return ctx, span, log
}

func (r *Reporter) Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	log := r.logger.WithContext(ctx)
	if err := camunda.CompleteJob(ctx, client, job, output, log); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		return
	}
	log.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

func (r *Reporter) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Classify(err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(stdErr.Code))
	camunda.FailJob(ctx, client, job, stdErr, r.errHandler)
}
