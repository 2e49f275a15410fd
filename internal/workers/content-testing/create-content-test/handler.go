// internal/workers/content-testing/create-content-test/handler.go
package createcontenttest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/workers/content-testing/shared"
	"content-testing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-content-test"
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
	if strings.TrimSpace(input.ProblemLocation) == "" {
		return nil, fmt.Errorf("%w: problemLocation is required", shared.ErrInvalidInput)
	}

	tc, err := h.service.Create(ctx, contenttest.NewTestCase{
		ProblemLocation: input.ProblemLocation,
		ShouldBe:        input.ShouldBe,
		Answers:         contenttest.Answers(input.Answers),
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tc.Answers))
	for _, f := range tc.OrderedFields() {
		ids = append(ids, f.StringID)
	}

	return &Output{
		TestID:    tc.ID,
		ShouldBe:  string(tc.ShouldBe),
		Verdict:   string(tc.Verdict),
		Responses: len(tc.Responses),
		InputIDs:  ids,
		CreatedAt: tc.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
