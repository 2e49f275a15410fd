// internal/contenttest/verdict.go
package contenttest

import (
	"context"
	"strings"
)

// Grade is the grading result for one input.
type Grade struct {
	Correctness string `json:"correctness"`
	Message     string `json:"msg,omitempty"`
}

// CorrectMap maps input identifiers to their grades.
type CorrectMap map[string]Grade

// Grader evaluates answers against the problem at location.
type Grader interface {
	Grade(ctx context.Context, location string, answers Answers) (CorrectMap, error)
}

// GraderFunc adapts a function to Grader.
type GraderFunc func(ctx context.Context, location string, answers Answers) (CorrectMap, error)

func (f GraderFunc) Grade(ctx context.Context, location string, answers Answers) (CorrectMap, error) {
	return f(ctx, location, answers)
}

// AnyIncorrect reports whether at least one input graded "incorrect".
func (c CorrectMap) AnyIncorrect() bool {
	for _, g := range c {
		if strings.EqualFold(g.Correctness, "incorrect") {
			return true
		}
	}
	return false
}

// Evaluate turns a grading result into a verdict for the given expectation.
func Evaluate(shouldBe Expectation, grades CorrectMap, gradeErr error) Verdict {
	if gradeErr != nil {
		if shouldBe == ExpectError {
			return VerdictPass
		}
		return VerdictError
	}

	allCorrect := !grades.AnyIncorrect()
	switch {
	case shouldBe == ExpectCorrect && allCorrect:
		return VerdictPass
	case shouldBe == ExpectIncorrect && !allCorrect:
		return VerdictPass
	default:
		return VerdictFail
	}
}
