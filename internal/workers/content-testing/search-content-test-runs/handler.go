// internal/workers/content-testing/search-content-test-runs/handler.go
package searchcontenttestruns

import (
	"context"
	"errors"
	"fmt"
	"time"

	commonerrors "content-testing-workers/internal/common/errors"
	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/history"
	"content-testing-workers/internal/workers/content-testing/shared"
	"content-testing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "search-content-test-runs"
)

// Searcher queries the run history.
type Searcher interface {
	Search(ctx context.Context, q history.Query) (*history.Result, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	registry *registry.ActivityRegistry
	reporter *shared.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, searcher Searcher, reg *registry.ActivityRegistry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
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
	q, err := h.buildQuery(input)
	if err != nil {
		return nil, err
	}

	res, err := h.searcher.Search(ctx, q)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, commonerrors.NewSearchTimeoutError("runs")
		}
		return nil, err
	}

	runs := res.Runs
	if runs == nil {
		runs = []contenttest.RunResult{}
	}
	return &Output{Total: res.Total, Took: res.Took, Runs: runs}, nil
}

func (h *Handler) buildQuery(input *Input) (history.Query, error) {
	q := history.Query{
		TestID:          input.TestID,
		ProblemLocation: input.ProblemLocation,
		From:            input.Pagination.From,
		Size:            input.Pagination.Size,
	}

	if input.Verdict != "" {
		v, err := parseVerdict(input.Verdict)
		if err != nil {
			return q, err
		}
		q.Verdict = string(v)
	}
	if input.Since != "" {
		since, err := time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return q, fmt.Errorf("%w: since: %v", shared.ErrInvalidInput, err)
		}
		q.Since = since
	}
	if q.From < 0 || q.Size < 0 {
		return q, fmt.Errorf("%w: pagination must not be negative", shared.ErrInvalidInput)
	}
	if q.Size > h.config.MaxPageSize {
		q.Size = h.config.MaxPageSize
	}
	return q, nil
}

func parseVerdict(s string) (contenttest.Verdict, error) {
	for _, v := range []contenttest.Verdict{
		contenttest.VerdictNotRun, contenttest.VerdictPass, contenttest.VerdictFail, contenttest.VerdictError,
	} {
		if s == string(v) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown verdict %q", shared.ErrInvalidInput, s)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
