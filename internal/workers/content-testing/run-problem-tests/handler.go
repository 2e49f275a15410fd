// internal/workers/content-testing/run-problem-tests/handler.go
package runproblemtests

import (
	"context"
	"fmt"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/workers/content-testing/shared"
	"content-testing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "run-problem-tests"
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
	if input.ProblemLocation == "" {
		return nil, fmt.Errorf("%w: problemLocation is required", shared.ErrInvalidInput)
	}

	results, err := h.service.RunAll(ctx, input.ProblemLocation)
	if err != nil {
		return nil, err
	}

	out := &Output{
		ProblemLocation: input.ProblemLocation,
		Total:           len(results),
		Results:         make([]TestResult, 0, len(results)),
	}
	for _, r := range results {
		switch r.Verdict {
		case contenttest.VerdictPass:
			out.Passed++
		case contenttest.VerdictFail:
			out.Failed++
		default:
			out.Errored++
		}
		out.Results = append(out.Results, TestResult{
			TestID:   r.TestID,
			RunID:    r.RunID,
			ShouldBe: string(r.ShouldBe),
			Verdict:  string(r.Verdict),
		})
	}
	out.AllPassed = out.Passed == out.Total

	h.logger.WithContext(ctx).Info("problem tests run", map[string]interface{}{
		"problemLocation": input.ProblemLocation,
		"total":           out.Total,
		"passed":          out.Passed,
		"failed":          out.Failed,
		"errored":         out.Errored,
	})
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
