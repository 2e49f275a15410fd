// internal/workers/content-testing/shared/shared_test.go
package shared

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"testing"

	"content-testing-workers/internal/common/errors"
	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/grading"
	"content-testing-workers/internal/history"
	"content-testing-workers/internal/problem"
	"content-testing-workers/internal/video"
	"content-testing-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      errors.ErrorCode
		retryable bool
	}{
		{"invalid input", fmt.Errorf("%w: testId missing", ErrInvalidInput), errors.ErrCodeInvalidInput, false},
		{"missing test", fmt.Errorf("%w: t-1", contenttest.ErrTestCaseNotFound), errors.ErrCodeTestCaseNotFound, false},
		{"bad expectation", fmt.Errorf("%w: %q", contenttest.ErrInvalidExpectation, "Maybe"), errors.ErrCodeInvalidExpectation, false},
		{"missing problem", fmt.Errorf("%w: p", problem.ErrProblemNotFound), errors.ErrCodeProblemNotFound, false},
		{"bad xml", fmt.Errorf("%w: unclosed", problem.ErrInvalidXML), errors.ErrCodeInvalidProblemXML, false},
		{"grader down", fmt.Errorf("%w: 503", grading.ErrGraderUnavailable), errors.ErrCodeGraderUnavailable, true},
		{"no index", fmt.Errorf("%w: runs", history.ErrIndexNotFound), errors.ErrCodeIndexNotFound, false},
		{"search failed", fmt.Errorf("%w: 400", history.ErrSearchQueryFailed), errors.ErrCodeSearchQueryFailed, true},
		{"bad video", fmt.Errorf("%w: youtube", video.ErrInvalidDescriptor), errors.ErrCodeVideoDescriptorInvalid, false},
		{"deadline", fmt.Errorf("load: %w", context.DeadlineExceeded), errors.ErrCodeQueryTimeout, true},
		{"bad conn", fmt.Errorf("save: %w", driver.ErrBadConn), errors.ErrCodeDatabaseConnectionFailed, true},
		{"pq", fmt.Errorf("save: %w", &pq.Error{Code: "23505", Message: "duplicate key"}), errors.ErrCodeQueryExecutionFailed, true},
		{"unknown", stderrors.New("boom"), errors.ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.err.Error(), got.Details)
		})
	}
}

func TestClassify_KeepsStandardErrors(t *testing.T) {
	stdErr := errors.NewRematchFailedError("t-1", stderrors.New("x"))
	assert.Same(t, stdErr, Classify(fmt.Errorf("wrapped: %w", stdErr)))
	assert.Nil(t, Classify(nil))
}

func TestClassify_PQMetadata(t *testing.T) {
	got := Classify(&pq.Error{Code: "23505"})
	assert.Equal(t, "23505", got.Metadata["sqlState"])
	assert.Equal(t, "unique_violation", got.Metadata["condition"])
}

const registryJSON = `{"activities": [{
  "taskType": "rematch-content-test",
  "inputSchema": {"type": "object", "required": ["testId"], "properties": {"testId": {"type": "string"}}}
}]}`

type rematchInput struct {
	TestID string `json:"testId"`
}

func job(vars string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Variables: vars}}
}

func TestDecodeInput(t *testing.T) {
	reg, err := registry.ParseRegistry([]byte(registryJSON))
	require.NoError(t, err)

	var in rematchInput
	require.NoError(t, DecodeInput(job(`{"testId":"t-1","extra":true}`), reg, "rematch-content-test", &in))
	assert.Equal(t, "t-1", in.TestID)

	err = DecodeInput(job(`{"testId":5}`), reg, "rematch-content-test", &in)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorContains(t, err, "testId")

	err = DecodeInput(job(`not json`), reg, "rematch-content-test", &in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, DecodeInput(job(`{"testId":"t-2"}`), nil, "rematch-content-test", &in))
	assert.Equal(t, "t-2", in.TestID)
}

func TestReporter_StartJobLoggerCarriesTraceIDs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewReporter(logger.NewZapAdapter(zap.New(core)))

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{9},
		SpanID:     trace.SpanID{4},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), parent)

	ctx, span, log := r.StartJob(ctx, "rematch-content-test", job(`{}`))
	defer span.End()
	log.Warn("job failed", map[string]interface{}{"error": "boom"})

	require.Equal(t, 2, logs.Len())
	sc := trace.SpanContextFromContext(ctx)
	for _, entry := range logs.All() {
		fields := entry.ContextMap()
		assert.Equal(t, parent.TraceID().String(), fields["traceId"], entry.Message)
		assert.Equal(t, sc.SpanID().String(), fields["spanId"], entry.Message)
	}
	assert.Equal(t, "boom", logs.All()[1].ContextMap()["error"])
}
