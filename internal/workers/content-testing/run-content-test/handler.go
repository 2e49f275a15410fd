// internal/workers/content-testing/run-content-test/handler.go
package runcontenttest

import (
	"context"
	"fmt"
	"time"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/workers/content-testing/shared"
	"content-testing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "run-content-test"
)

type Handler struct {
	config   *Config
	service  *contenttest.Service
	registry *registry.ActivityRegistry
	reporter *shared.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, service *contenttest.Service, reg *registry.ActivityRegistry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		service:  service,
		registry: reg,
		reporter: shared.NewReporter(log),
		logger:   log,
	}
}

// Handle completes the job for every verdict, Fail and Error included. The
// process decides what a failing verdict means; only infrastructure errors
// fail the job.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span, log := h.reporter.StartJob(ctx, TaskType, job)
	defer span.End()

	var input Input
	if err := shared.DecodeInput(job, h.registry, TaskType, &input); err != nil {
		h.reporter.Fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		log.Warn("job failed", map[string]interface{}{"error": err.Error()})
		h.reporter.Fail(ctx, client, job, err)
		return
	}
	h.reporter.Complete(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.TestID == "" {
		return nil, fmt.Errorf("%w: testId is required", shared.ErrInvalidInput)
	}

	res, err := h.service.Run(ctx, input.TestID)
	if err != nil {
		return nil, err
	}

	return &Output{
		RunID:        res.RunID,
		TestID:       res.TestID,
		ShouldBe:     string(res.ShouldBe),
		Verdict:      string(res.Verdict),
		Passed:       res.Verdict == contenttest.VerdictPass,
		GradingError: res.GradingError,
		RanAt:        res.RanAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
