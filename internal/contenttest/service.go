// internal/contenttest/service.go
package contenttest

import (
	"context"
	"time"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/common/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("content-testing-workers/internal/contenttest")

// RunResult is the outcome of one evaluation.
type RunResult struct {
	RunID           string      `json:"runId"`
	TestID          string      `json:"testId"`
	ProblemLocation string      `json:"problemLocation"`
	ShouldBe        Expectation `json:"shouldBe"`
	Verdict         Verdict     `json:"verdict"`
	Answers         Answers     `json:"answers"`
	Grades          CorrectMap  `json:"grades,omitempty"`
	GradingError    string      `json:"gradingError,omitempty"`
	RanAt           time.Time   `json:"ranAt"`
}

// RunRecorder keeps a history of runs.
type RunRecorder interface {
	Record(ctx context.Context, result RunResult) error
}

// Notifier is told about runs that did not pass.
type Notifier interface {
	NotifyFailure(ctx context.Context, result RunResult) error
}

type Config struct {
	PreserveOnSlotChange bool
	RunConcurrency       int
}

// NewTestCase carries what an author supplies when creating a test.
type NewTestCase struct {
	ProblemLocation string
	ShouldBe        string
	Answers         Answers
}

// Summary is the data a rendering layer needs to show a test.
type Summary struct {
	TestID          string         `json:"testId"`
	ProblemLocation string         `json:"problemLocation"`
	ShouldBe        Expectation    `json:"shouldBe"`
	Verdict         Verdict        `json:"verdict"`
	Inputs          []SummaryInput `json:"inputs"`
}

type SummaryInput struct {
	ID            string `json:"id"`
	ResponseIndex int    `json:"responseIndex"`
	InputIndex    int    `json:"inputIndex"`
	Answer        string `json:"answer"`
}

type Service struct {
	repo        Repository
	rematcher   *Rematcher
	grader      Grader
	history     RunRecorder
	notifier    Notifier
	logger      logger.Logger
	concurrency int
	now         func() time.Time
	newID       func() string
}

type Option func(*Service)

func WithHistory(h RunRecorder) Option {
	return func(s *Service) { s.history = h }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, repo Repository, trees TreeLoader, grader Grader, log logger.Logger, opts ...Option) *Service {
	concurrency := cfg.RunConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	s := &Service{
		repo:        repo,
		rematcher:   NewRematcher(trees, RematchOptions{PreserveOnSlotChange: cfg.PreserveOnSlotChange}),
		grader:      grader,
		logger:      log.WithFields(map[string]interface{}{"component": "contenttest"}),
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the expectation, builds records from the current problem
// and stores the new test with verdict NotRun.
func (s *Service) Create(ctx context.Context, in NewTestCase) (*TestCase, error) {
	shouldBe, err := ParseExpectation(in.ShouldBe)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tc := &TestCase{
		ID:              s.newID(),
		ProblemLocation: in.ProblemLocation,
		ShouldBe:        shouldBe,
		Verdict:         VerdictNotRun,
		Answers:         in.Answers.Clone(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if tc.Answers == nil {
		tc.Answers = Answers{}
	}

	if _, err := s.rematcher.RematchIfNecessary(ctx, tc); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tc); err != nil {
		return nil, err
	}

	s.logger.Info("content test created", map[string]interface{}{
		"testId":          tc.ID,
		"problemLocation": tc.ProblemLocation,
		"responses":       len(tc.Responses),
	})
	return tc, nil
}

func (s *Service) Get(ctx context.Context, id string) (*TestCase, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByProblem(ctx context.Context, location string) ([]*TestCase, error) {
	return s.repo.ListByProblem(ctx, location)
}

// UpdateAnswers replaces the answers of a test and resets its verdict. The
// test is rematched first so answers for inputs added by a problem edit land
// on their records.
func (s *Service) UpdateAnswers(ctx context.Context, id string, answers Answers) (*TestCase, error) {
	tc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.rematch(ctx, tc); err != nil {
		return nil, err
	}
	tc.SetAnswers(answers)
	tc.ResetVerdict()
	tc.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, tc); err != nil {
		return nil, err
	}
	return tc, nil
}

// SetExpectation changes what the test expects and resets its verdict.
func (s *Service) SetExpectation(ctx context.Context, id, shouldBe string) (*TestCase, error) {
	exp, err := ParseExpectation(shouldBe)
	if err != nil {
		return nil, err
	}
	tc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tc.ShouldBe = exp
	tc.ResetVerdict()
	tc.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, tc); err != nil {
		return nil, err
	}
	return tc, nil
}

// Rematch reconciles a stored test with the current problem and saves it when anything changed.
func (s *Service) Rematch(ctx context.Context, id string) (*TestCase, *RematchReport, error) {
	tc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	report, err := s.rematchAndSave(ctx, tc)
	if err != nil {
		return nil, nil, err
	}
	return tc, report, nil
}

func (s *Service) rematch(ctx context.Context, tc *TestCase) (*RematchReport, error) {
	report, err := s.rematcher.RematchIfNecessary(ctx, tc)
	if err != nil {
		metrics.RematchOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RematchOutcomes.WithLabelValues(string(report.Outcome)).Inc()
	return report, nil
}

func (s *Service) rematchAndSave(ctx context.Context, tc *TestCase) (*RematchReport, error) {
	report, err := s.rematch(ctx, tc)
	if err != nil {
		return nil, err
	}
	if !report.Changed() {
		return report, nil
	}
	tc.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, tc); err != nil {
		return nil, err
	}

	s.logger.Info("content test rematched", map[string]interface{}{
		"testId":    tc.ID,
		"outcome":   report.Outcome,
		"matched":   report.Matched,
		"preserved": report.Preserved,
		"created":   report.Created,
		"deleted":   report.Deleted,
	})
	return report, nil
}

// Run grades the test's answers and stores the verdict. Grading failures
// become an Error verdict; only storage and tree loading errors are returned.
func (s *Service) Run(ctx context.Context, id string) (*RunResult, error) {
	ctx, span := tracer.Start(ctx, "contenttest.Run")
	defer span.End()

	tc, err := s.repo.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if _, err := s.rematchAndSave(ctx, tc); err != nil {
		span.RecordError(err)
		return nil, err
	}

	grades, gradeErr := s.grader.Grade(ctx, tc.ProblemLocation, tc.Answers.Clone())
	verdict := Evaluate(tc.ShouldBe, grades, gradeErr)

	tc.Verdict = verdict
	tc.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, tc); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := RunResult{
		RunID:           s.newID(),
		TestID:          tc.ID,
		ProblemLocation: tc.ProblemLocation,
		ShouldBe:        tc.ShouldBe,
		Verdict:         verdict,
		Answers:         tc.Answers.Clone(),
		Grades:          grades,
		RanAt:           tc.UpdatedAt,
	}
	if gradeErr != nil {
		result.GradingError = gradeErr.Error()
	}

	metrics.ContentTestVerdicts.WithLabelValues(string(verdict)).Inc()
	span.SetAttributes(attribute.String("contenttest.verdict", string(verdict)))

	fields := map[string]interface{}{
		"testId":   tc.ID,
		"shouldBe": tc.ShouldBe,
		"verdict":  verdict,
	}
	if gradeErr != nil {
		fields["gradingError"] = gradeErr.Error()
	}
	s.logger.Info("content test run", fields)

	if s.history != nil {
		if err := s.history.Record(ctx, result); err != nil {
			s.logger.Warn("failed to record run", map[string]interface{}{
				"testId": tc.ID,
				"error":  err.Error(),
			})
		}
	}
	if s.notifier != nil && verdict != VerdictPass {
		if err := s.notifier.NotifyFailure(ctx, result); err != nil {
			s.logger.Warn("failed to send failure notification", map[string]interface{}{
				"testId": tc.ID,
				"error":  err.Error(),
			})
		}
	}

	return &result, nil
}

// RunAll runs every test of a problem, at most RunConcurrency at a time.
// Results keep the order of ListByProblem.
func (s *Service) RunAll(ctx context.Context, location string) ([]*RunResult, error) {
	tests, err := s.repo.ListByProblem(ctx, location)
	if err != nil {
		return nil, err
	}

	results := make([]*RunResult, len(tests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, tc := range tests {
		i, id := i, tc.ID
		g.Go(func() error {
			res, err := s.Run(gctx, id)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summary rematches if needed and lists the answers in problem order.
func (s *Service) Summary(ctx context.Context, id string) (*Summary, error) {
	tc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.rematchAndSave(ctx, tc); err != nil {
		return nil, err
	}

	sum := &Summary{
		TestID:          tc.ID,
		ProblemLocation: tc.ProblemLocation,
		ShouldBe:        tc.ShouldBe,
		Verdict:         tc.Verdict,
		Inputs:          []SummaryInput{},
	}
	for _, f := range tc.OrderedFields() {
		sum.Inputs = append(sum.Inputs, SummaryInput{
			ID:            f.StringID,
			ResponseIndex: f.ResponseIndex,
			InputIndex:    f.InputIndex,
			Answer:        f.Answer,
		})
	}
	return sum, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
