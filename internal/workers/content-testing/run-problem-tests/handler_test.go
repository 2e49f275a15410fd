// internal/workers/content-testing/run-problem-tests/handler_test.go
package runproblemtests

import (
	"context"
	"testing"

	"content-testing-workers/internal/common/errors"
	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/workers/content-testing/shared"
	"content-testing-workers/internal/workers/content-testing/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Execute_CountsVerdicts(t *testing.T) {
	f := testutil.NewFixture(t)
	pass := f.Create(t, "correct", testutil.CorrectAnswers())
	fail := f.Create(t, "correct", testutil.IncorrectAnswers())
	errored := f.Create(t, "incorrect", contenttest.Answers{testutil.InputBase + "_2_1": "x"})

	h := NewHandler(LoadConfig(), f.Service, nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{ProblemLocation: testutil.Location})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 1, out.Passed)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 1, out.Errored)
	assert.False(t, out.AllPassed)

	verdicts := map[string]string{}
	for _, r := range out.Results {
		verdicts[r.TestID] = r.Verdict
	}
	assert.Equal(t, map[string]string{
		pass.ID:    "Pass",
		fail.ID:    "Fail",
		errored.ID: "ERROR",
	}, verdicts)
}

func TestHandler_Execute_NoTests(t *testing.T) {
	f := testutil.NewFixture(t)
	h := NewHandler(LoadConfig(), f.Service, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{ProblemLocation: testutil.Location})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
	assert.True(t, out.AllPassed)
	assert.Empty(t, out.Results)
}

func TestHandler_Execute_MissingLocation(t *testing.T) {
	f := testutil.NewFixture(t)
	h := NewHandler(LoadConfig(), f.Service, nil, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.Equal(t, errors.ErrCodeInvalidInput, shared.Classify(err).Code)
}
