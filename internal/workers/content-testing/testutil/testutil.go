// internal/workers/content-testing/testutil/testutil.go
package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/problem"
)

const (
	Location  = "i4x://MITx/999/problem/Problem_4"
	InputBase = "i4x-MITx-999-problem-Problem_4"
)

// ProblemXML has one custom response with two text inputs.
const ProblemXML = `<problem>
<p>Enter two prime numbers</p>
<customresponse cfn="test_prime">
  <textline/>
  <textline/>
</customresponse>
</problem>`

// ProblemXMLWithTwoResponses appends a second response after the first.
const ProblemXMLWithTwoResponses = `<problem>
<p>Enter two prime numbers</p>
<customresponse cfn="test_prime">
  <textline/>
  <textline/>
</customresponse>
<stringresponse answer="prime">
  <textline/>
</stringresponse>
</problem>`

func CorrectAnswers() contenttest.Answers {
	return contenttest.Answers{InputBase + "_2_1": "5", InputBase + "_2_2": "7"}
}

func IncorrectAnswers() contenttest.Answers {
	return contenttest.Answers{InputBase + "_2_1": "4", InputBase + "_2_2": "7"}
}

// PrimeGrader marks every answer incorrect unless the first input is prime.
// A non numeric first answer is a grading error.
func PrimeGrader() contenttest.Grader {
	return contenttest.GraderFunc(func(_ context.Context, _ string, answers contenttest.Answers) (contenttest.CorrectMap, error) {
		n, err := strconv.Atoi(answers[InputBase+"_2_1"])
		if err != nil {
			return nil, errors.New("answer is not a number")
		}
		correctness := "correct"
		for i := 2; i*i <= n; i++ {
			if n%i == 0 {
				correctness = "incorrect"
			}
		}
		if n < 2 {
			correctness = "incorrect"
		}
		out := contenttest.CorrectMap{}
		for id := range answers {
			out[id] = contenttest.Grade{Correctness: correctness}
		}
		return out, nil
	})
}

// Fixture is an in-memory service over a single problem.
type Fixture struct {
	Service *contenttest.Service
	Source  *problem.StaticSource
	Repo    *contenttest.MemoryRepository
}

func NewFixture(t *testing.T, opts ...contenttest.Option) *Fixture {
	t.Helper()
	src := problem.NewStaticSource(map[string]string{Location: ProblemXML})
	repo := contenttest.NewMemoryRepository()
	var mu sync.Mutex
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]contenttest.Option{contenttest.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	})}, opts...)

	svc := contenttest.NewService(
		contenttest.Config{PreserveOnSlotChange: true, RunConcurrency: 2},
		repo, problem.NewProvider(src), PrimeGrader(), logger.NewTestLogger(t), opts...,
	)
	return &Fixture{Service: svc, Source: src, Repo: repo}
}

// Create stores a test case for Location and fails the test on error.
func (f *Fixture) Create(t *testing.T, shouldBe string, answers contenttest.Answers) *contenttest.TestCase {
	t.Helper()
	tc, err := f.Service.Create(context.Background(), contenttest.NewTestCase{
		ProblemLocation: Location,
		ShouldBe:        shouldBe,
		Answers:         answers,
	})
	if err != nil {
		t.Fatalf("create test case: %v", err)
	}
	return tc
}
