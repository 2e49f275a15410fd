// internal/workers/content-testing/run-content-test/handler_test.go
package runcontenttest

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

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name      string
		shouldBe  string
		answers   contenttest.Answers
		verdict   string
		passed    bool
		gradedErr bool
	}{
		{name: "correct and expected correct", shouldBe: "correct", answers: testutil.CorrectAnswers(), verdict: "Pass", passed: true},
		{name: "incorrect and expected incorrect", shouldBe: "incorrect", answers: testutil.IncorrectAnswers(), verdict: "Pass", passed: true},
		{name: "incorrect but expected correct", shouldBe: "correct", answers: testutil.IncorrectAnswers(), verdict: "Fail"},
		{
			name:      "grading error expected",
			shouldBe:  "error",
			answers:   contenttest.Answers{testutil.InputBase + "_2_1": "five"},
			verdict:   "Pass",
			passed:    true,
			gradedErr: true,
		},
		{
			name:      "grading error not expected",
			shouldBe:  "correct",
			answers:   contenttest.Answers{testutil.InputBase + "_2_1": "five"},
			verdict:   "ERROR",
			gradedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewFixture(t)
			tc := f.Create(t, tt.shouldBe, tt.answers)
			h := NewHandler(LoadConfig(), f.Service, nil, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{TestID: tc.ID})
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, out.Verdict)
			assert.Equal(t, tt.passed, out.Passed)
			assert.Equal(t, tt.gradedErr, out.GradingError != "")
			assert.NotEmpty(t, out.RunID)

			stored, err := f.Repo.Get(context.Background(), tc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, string(stored.Verdict))
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	f := testutil.NewFixture(t)
	h := NewHandler(LoadConfig(), f.Service, nil, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.Equal(t, errors.ErrCodeInvalidInput, shared.Classify(err).Code)

	_, err = h.Execute(context.Background(), &Input{TestID: "missing"})
	assert.Equal(t, errors.ErrCodeTestCaseNotFound, shared.Classify(err).Code)
}
