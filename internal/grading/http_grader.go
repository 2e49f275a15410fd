// internal/grading/http_grader.go
package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"content-testing-workers/internal/common/config"
	commonhttp "content-testing-workers/internal/common/http"
	"content-testing-workers/internal/common/metrics"
	"content-testing-workers/internal/contenttest"
)

// ErrGraderUnavailable marks transport failures and retryable statuses.
var ErrGraderUnavailable = errors.New("GRADER_UNAVAILABLE")

type gradeRequest struct {
	ProblemLocation string              `json:"problemLocation"`
	Answers         contenttest.Answers `json:"answers"`
}

type gradeResponse struct {
	CorrectMap contenttest.CorrectMap `json:"correctMap"`
}

// HTTPGrader posts answers to a remote grading service.
type HTTPGrader struct {
	client   *commonhttp.Client
	gradeURL string
}

func NewHTTPGrader(cfg config.GraderConfig, opts ...commonhttp.Option) *HTTPGrader {
	opts = append([]commonhttp.Option{
		commonhttp.WithRetries(cfg.MaxRetries, 200*time.Millisecond),
	}, opts...)
	return &HTTPGrader{
		client:   commonhttp.NewClient(config.GetDuration(cfg.Timeout), opts...),
		gradeURL: strings.TrimRight(cfg.BaseURL, "/") + "/grade",
	}
}

// Grade returns the correct map for answers. A rejected submission is a
// grading error, which the verdict rules treat like any other error.
func (g *HTTPGrader) Grade(ctx context.Context, location string, answers contenttest.Answers) (contenttest.CorrectMap, error) {
	if answers == nil {
		answers = contenttest.Answers{}
	}

	var resp gradeResponse
	start := time.Now()
	err := g.client.PostJSON(ctx, g.gradeURL, gradeRequest{ProblemLocation: location, Answers: answers}, &resp)
	metrics.ObserveGrading(start, err)
	if err != nil {
		var se *commonhttp.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, fmt.Errorf("grading %s rejected: %w", location, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGraderUnavailable, err)
	}
	if resp.CorrectMap == nil {
		return contenttest.CorrectMap{}, nil
	}
	return resp.CorrectMap, nil
}
