// internal/workers/content-testing/rematch-content-test/handler_test.go
package rematchcontenttest

import (
	"context"
	stderrors "errors"
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
		name    string
		newXML  string
		outcome string
		changed bool
		created int
		verdict string
	}{
		{
			name:    "unchanged problem",
			newXML:  testutil.ProblemXML,
			outcome: "unchanged",
			verdict: "Pass",
		},
		{
			name:    "cosmetic edit",
			newXML:  `<problem><p>Enter two primes</p><customresponse cfn="test_prime" debug="1"><textline/><textline/></customresponse></problem>`,
			outcome: "rehashed",
			changed: true,
			verdict: "Pass",
		},
		{
			name:    "response appended",
			newXML:  testutil.ProblemXMLWithTwoResponses,
			outcome: "rematched",
			changed: true,
			created: 1,
			verdict: "Not Run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewFixture(t)
			tc := f.Create(t, "correct", testutil.CorrectAnswers())
			_, err := f.Service.Run(context.Background(), tc.ID)
			require.NoError(t, err)

			f.Source.Put(testutil.Location, tt.newXML)
			h := NewHandler(LoadConfig(), f.Service, nil, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{TestID: tc.ID})
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, out.Outcome)
			assert.Equal(t, tt.changed, out.Changed)
			assert.Equal(t, tt.created, out.Created)
			assert.Equal(t, tt.verdict, out.Verdict)
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	f := testutil.NewFixture(t)
	tc := f.Create(t, "correct", testutil.CorrectAnswers())
	h := NewHandler(LoadConfig(), f.Service, nil, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.Equal(t, errors.ErrCodeInvalidInput, shared.Classify(err).Code)

	_, err = h.Execute(context.Background(), &Input{TestID: "missing"})
	assert.Equal(t, errors.ErrCodeTestCaseNotFound, shared.Classify(err).Code)

	f.Source.Put(testutil.Location, "<problem><customresponse>")
	_, err = h.Execute(context.Background(), &Input{TestID: tc.ID})
	assert.Equal(t, errors.ErrCodeInvalidProblemXML, shared.Classify(err).Code)
}

func TestWrapRematchError(t *testing.T) {
	err := wrapRematchError("t-1", stderrors.New("connection reset"))
	stdErr := shared.Classify(err)
	assert.Equal(t, errors.ErrCodeRematchFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)

	assert.ErrorIs(t, wrapRematchError("t-1", contenttest.ErrTestCaseNotFound), contenttest.ErrTestCaseNotFound)
}
