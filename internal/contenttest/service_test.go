// internal/contenttest/service_test.go
package contenttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/problem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHistory struct {
	mu      sync.Mutex
	results []RunResult
	err     error
}

func (h *recordingHistory) Record(_ context.Context, r RunResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, r)
	return h.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	verdicts []Verdict
	err      error
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, r RunResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verdicts = append(n.verdicts, r.Verdict)
	return n.err
}

type serviceFixture struct {
	svc      *Service
	src      *problem.StaticSource
	repo     *MemoryRepository
	history  *recordingHistory
	notifier *recordingNotifier
}

func newServiceFixture(t *testing.T, xml string, cfg Config) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		src:      problem.NewStaticSource(map[string]string{testLocation: xml}),
		repo:     NewMemoryRepository(),
		history:  &recordingHistory{},
		notifier: &recordingNotifier{},
	}
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc = NewService(cfg, f.repo, problem.NewProvider(f.src), primeGrader(), logger.NewTestLogger(t),
		WithHistory(f.history),
		WithNotifier(f.notifier),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	return f
}

func (f *serviceFixture) create(t *testing.T, shouldBe string, answers Answers) *TestCase {
	t.Helper()
	tc, err := f.svc.Create(context.Background(), NewTestCase{
		ProblemLocation: testLocation,
		ShouldBe:        shouldBe,
		Answers:         answers,
	})
	require.NoError(t, err)
	return tc
}

func TestService_CreateBuildsRecords(t *testing.T) {
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})

	tc := f.create(t, "correct", correctAnswers())

	assert.Equal(t, ExpectCorrect, tc.ShouldBe)
	assert.Equal(t, VerdictNotRun, tc.Verdict)
	require.Len(t, tc.Responses, 1)
	assert.Equal(t, "5", tc.Responses[0].Fields[0].Answer)

	stored, err := f.svc.Get(context.Background(), tc.ID)
	require.NoError(t, err)
	assert.Equal(t, tc.Answers, stored.Answers)
	assert.False(t, stored.AnswersChanged())
}

func TestService_CreateRejects(t *testing.T) {
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, NewTestCase{ProblemLocation: testLocation, ShouldBe: "sometimes"})
	assert.ErrorIs(t, err, ErrInvalidExpectation)

	_, err = f.svc.Create(ctx, NewTestCase{ProblemLocation: "i4x://MITx/999/problem/missing", ShouldBe: "correct"})
	assert.ErrorIs(t, err, problem.ErrProblemNotFound)

	f.src.Put(testLocation, "<problem><unclosed></problem>")
	_, err = f.svc.Create(ctx, NewTestCase{ProblemLocation: testLocation, ShouldBe: "correct"})
	assert.ErrorIs(t, err, problem.ErrInvalidXML)
}

func TestService_RunVerdicts(t *testing.T) {
	tests := []struct {
		name     string
		shouldBe string
		answers  Answers
		want     Verdict
		notified bool
	}{
		{"correct answers pass", "correct", correctAnswers(), VerdictPass, false},
		{"incorrect answers expected incorrect pass", "incorrect", incorrectAnswers(), VerdictPass, false},
		{"incorrect answers expected correct fail", "correct", incorrectAnswers(), VerdictFail, true},
		{"unparsable answer expected error passes", "error", Answers{inputBase + "_2_1": "abc"}, VerdictPass, false},
		{"unparsable answer expected correct errors", "correct", Answers{inputBase + "_2_1": "abc"}, VerdictError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
			tc := f.create(t, tt.shouldBe, tt.answers)

			res, err := f.svc.Run(context.Background(), tc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Verdict)
			assert.Equal(t, tc.ID, res.TestID)

			stored, err := f.svc.Get(context.Background(), tc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Verdict)

			require.Len(t, f.history.results, 1)
			assert.Equal(t, tt.want, f.history.results[0].Verdict)
			assert.Equal(t, tt.notified, len(f.notifier.verdicts) == 1)
		})
	}
}

func TestService_RunGradingErrorIsRecorded(t *testing.T) {
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
	tc := f.create(t, "correct", Answers{inputBase + "_2_1": "abc"})

	res, err := f.svc.Run(context.Background(), tc.ID)
	require.NoError(t, err)
	assert.Equal(t, VerdictError, res.Verdict)
	assert.Contains(t, res.GradingError, "invalid literal")
	assert.Nil(t, res.Grades)
}

func TestService_RunSurvivesHistoryAndNotifierFailures(t *testing.T) {
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
	f.history.err = errors.New("index unavailable")
	f.notifier.err = errors.New("sns throttled")
	tc := f.create(t, "correct", incorrectAnswers())

	res, err := f.svc.Run(context.Background(), tc.ID)
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, res.Verdict)
}

func TestService_RunUnknownTest(t *testing.T) {
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})

	_, err := f.svc.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTestCaseNotFound)
}

func TestService_MutationsResetVerdict(t *testing.T) {
	ctx := context.Background()

	t.Run("update answers", func(t *testing.T) {
		f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
		tc := f.create(t, "correct", correctAnswers())
		_, err := f.svc.Run(ctx, tc.ID)
		require.NoError(t, err)

		updated, err := f.svc.UpdateAnswers(ctx, tc.ID, incorrectAnswers())
		require.NoError(t, err)
		assert.Equal(t, VerdictNotRun, updated.Verdict)
		assert.Equal(t, "4", updated.Responses[0].Fields[0].Answer)

		res, err := f.svc.Run(ctx, tc.ID)
		require.NoError(t, err)
		assert.Equal(t, VerdictFail, res.Verdict)
	})

	t.Run("set expectation", func(t *testing.T) {
		f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
		tc := f.create(t, "correct", incorrectAnswers())
		_, err := f.svc.Run(ctx, tc.ID)
		require.NoError(t, err)

		updated, err := f.svc.SetExpectation(ctx, tc.ID, "Incorrect")
		require.NoError(t, err)
		assert.Equal(t, VerdictNotRun, updated.Verdict)
		assert.Equal(t, ExpectIncorrect, updated.ShouldBe)

		_, err = f.svc.SetExpectation(ctx, tc.ID, "nah")
		assert.ErrorIs(t, err, ErrInvalidExpectation)
	})

	t.Run("structural edit", func(t *testing.T) {
		f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
		tc := f.create(t, "correct", correctAnswers())
		_, err := f.svc.Run(ctx, tc.ID)
		require.NoError(t, err)

		f.src.Put(testLocation, problemXML(customResponse(3, "")))
		_, report, err := f.svc.Rematch(ctx, tc.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRematched, report.Outcome)

		stored, err := f.svc.Get(ctx, tc.ID)
		require.NoError(t, err)
		assert.Equal(t, VerdictNotRun, stored.Verdict)
	})

	t.Run("cosmetic edit keeps verdict", func(t *testing.T) {
		f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
		tc := f.create(t, "correct", correctAnswers())
		_, err := f.svc.Run(ctx, tc.ID)
		require.NoError(t, err)

		f.src.Put(testLocation, problemXML(customResponse(2, ` samba="deamon"`)))
		_, report, err := f.svc.Rematch(ctx, tc.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRehashed, report.Outcome)

		stored, err := f.svc.Get(ctx, tc.ID)
		require.NoError(t, err)
		assert.Equal(t, VerdictPass, stored.Verdict)
	})
}

func TestService_AddInputThenRunStillPasses(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{PreserveOnSlotChange: true})
	tc := f.create(t, "correct", correctAnswers())

	f.src.Put(testLocation, problemXML(customResponse(3, "")))
	res, err := f.svc.Run(ctx, tc.ID)
	require.NoError(t, err)

	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Equal(t, Answers{
		inputBase + "_2_1": "5",
		inputBase + "_2_2": "174440041",
		inputBase + "_2_3": "",
	}, res.Answers)
}

func TestService_InsertResponseThenRunErrors(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{PreserveOnSlotChange: true})
	tc := f.create(t, "correct", correctAnswers())

	f.src.Put(testLocation, problemXML(customResponse(3, ""), customResponse(2, "")))
	res, err := f.svc.Run(ctx, tc.ID)
	require.NoError(t, err)

	assert.Equal(t, VerdictError, res.Verdict, "the new first response has blank answers")
	assert.Equal(t, "5", res.Answers[inputBase+"_3_1"])
}

func TestService_UpdateAnswersAfterProblemEdit(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{PreserveOnSlotChange: true})
	tc := f.create(t, "correct", correctAnswers())

	f.src.Put(testLocation, problemXML(customResponse(2, ""), `<stringresponse answer="42"><textline/></stringresponse>`))
	answers := correctAnswers()
	answers[inputBase+"_3_1"] = "42"

	updated, err := f.svc.UpdateAnswers(ctx, tc.ID, answers)
	require.NoError(t, err)
	require.Len(t, updated.Responses, 2)
	assert.Equal(t, "42", updated.Responses[1].Fields[0].Answer)

	sum, err := f.svc.Summary(ctx, tc.ID)
	require.NoError(t, err)
	got := Answers{}
	for _, in := range sum.Inputs {
		got[in.ID] = in.Answer
	}
	assert.Equal(t, answers, got)

	stored, err := f.svc.Get(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, answers, stored.Answers)
}

func TestService_RunAllKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{RunConcurrency: 2})

	a := f.create(t, "correct", correctAnswers())
	b := f.create(t, "correct", incorrectAnswers())
	c := f.create(t, "incorrect", incorrectAnswers())

	results, err := f.svc.RunAll(ctx, testLocation)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{results[0].TestID, results[1].TestID, results[2].TestID})
	assert.Equal(t, []Verdict{VerdictPass, VerdictFail, VerdictPass},
		[]Verdict{results[0].Verdict, results[1].Verdict, results[2].Verdict})
	assert.Len(t, f.history.results, 3)
	assert.Equal(t, []Verdict{VerdictFail}, f.notifier.verdicts)
}

func TestService_RunAllStopsOnLoadError(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
	f.create(t, "correct", correctAnswers())

	f.src.Put(testLocation, "<problem>")
	_, err := f.svc.RunAll(ctx, testLocation)
	assert.ErrorIs(t, err, problem.ErrInvalidXML)
}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
	tc := f.create(t, "correct", correctAnswers())

	f.src.Put(testLocation, problemXML(customResponse(1, ""), customResponse(2, "")))
	sum, err := f.svc.Summary(ctx, tc.ID)
	require.NoError(t, err)

	assert.Equal(t, tc.ID, sum.TestID)
	assert.Equal(t, VerdictNotRun, sum.Verdict)
	assert.Equal(t, []SummaryInput{
		{ID: inputBase + "_2_1", ResponseIndex: 2, InputIndex: 1, Answer: ""},
		{ID: inputBase + "_3_1", ResponseIndex: 3, InputIndex: 1, Answer: "5"},
		{ID: inputBase + "_3_2", ResponseIndex: 3, InputIndex: 2, Answer: "174440041"},
	}, sum.Inputs)
}

func TestService_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, problemXML(customResponse(2, "")), Config{})
	a := f.create(t, "correct", correctAnswers())
	b := f.create(t, "incorrect", incorrectAnswers())

	list, err := f.svc.ListByProblem(ctx, testLocation)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, a.ID), ErrTestCaseNotFound)

	list, err = f.svc.ListByProblem(ctx, testLocation)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}
