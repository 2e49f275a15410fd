// internal/workers/content-testing/parse-video-descriptor/handler.go
package parsevideodescriptor

import (
	"context"
	"fmt"
	"strings"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/video"
	"content-testing-workers/internal/workers/content-testing/shared"
	"content-testing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "parse-video-descriptor"
)

type Handler struct {
	config   *Config
	registry *registry.ActivityRegistry
	reporter *shared.Reporter
}

func NewHandler(config *Config, reg *registry.ActivityRegistry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		registry: reg,
		reporter: shared.NewReporter(log),
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

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.XML) == "" {
		return nil, fmt.Errorf("%w: xml is required", shared.ErrInvalidInput)
	}

	d, err := video.Parse(input.XML)
	if err != nil {
		return nil, err
	}
	exported, err := d.Export()
	if err != nil {
		return nil, err
	}

	return &Output{
		Descriptor: *d,
		Player: d.PlayerContext(video.PlayerOptions{
			ID:               input.HTMLID,
			CaptionAssetPath: h.config.CaptionAssetPath,
			Autoplay:         h.config.Autoplay && !input.Preview,
		}),
		Exported: exported,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
