// internal/contenttest/model.go
package contenttest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrTestCaseNotFound   = errors.New("TEST_CASE_NOT_FOUND")
	ErrInvalidExpectation = errors.New("INVALID_EXPECTATION")
)

// Expectation is the outcome an author expects grading to produce.
type Expectation string

const (
	ExpectCorrect   Expectation = "Correct"
	ExpectIncorrect Expectation = "Incorrect"
	ExpectError     Expectation = "ERROR"
)

// ParseExpectation accepts any casing of correct, incorrect or error.
func ParseExpectation(s string) (Expectation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "correct":
		return ExpectCorrect, nil
	case "incorrect":
		return ExpectIncorrect, nil
	case "error":
		return ExpectError, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidExpectation, s)
}

// Verdict is the result of the last evaluation.
type Verdict string

const (
	VerdictNotRun Verdict = "Not Run"
	VerdictPass   Verdict = "Pass"
	VerdictFail   Verdict = "Fail"
	VerdictError  Verdict = "ERROR"
)

// Answers maps an input identifier to the answer entered for it.
type Answers map[string]string

func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal treats nil and empty as equal.
func (a Answers) Equal(b Answers) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// Keys returns the identifiers in sorted order.
func (a Answers) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TestCase is one authored expectation about how a problem grades a set of answers.
type TestCase struct {
	ID              string
	ProblemLocation string
	ShouldBe        Expectation
	Verdict         Verdict
	Answers         Answers
	Responses       []*ResponseRecord
	CreatedAt       time.Time
	UpdatedAt       time.Time

	loaded Answers
}

// ResponseRecord mirrors one response of the problem the test was matched against.
type ResponseRecord struct {
	ID       string
	StringID string
	Hash     string
	Shape    string // hash without inputs, see problem.ShapeHash
	Fields   []*FieldRecord
}

// FieldRecord holds the answer for one input of a response.
type FieldRecord struct {
	ID            string
	StringID      string
	ResponseIndex int
	InputIndex    int
	Answer        string
}

// AnswersChanged reports whether Answers differs from the last persisted value.
func (tc *TestCase) AnswersChanged() bool {
	return !tc.Answers.Equal(tc.loaded)
}

// MarkClean snapshots Answers as the persisted value.
func (tc *TestCase) MarkClean() {
	tc.loaded = tc.Answers.Clone()
}

// ResetVerdict returns the test to NotRun after any mutation.
func (tc *TestCase) ResetVerdict() {
	tc.Verdict = VerdictNotRun
}

// SetAnswers replaces the answers and pushes them onto the field records
// when they differ from the current or the persisted value. Inputs missing
// from answers are blanked.
func (tc *TestCase) SetAnswers(answers Answers) {
	next := answers.Clone()
	if next == nil {
		next = Answers{}
	}
	differs := !next.Equal(tc.Answers)
	tc.Answers = next
	if !differs && !tc.AnswersChanged() {
		return
	}
	for _, r := range tc.Responses {
		for _, f := range r.Fields {
			f.Answer = tc.Answers[f.StringID]
		}
	}
}

// RebuildAnswers derives Answers from the field records.
func (tc *TestCase) RebuildAnswers() {
	answers := make(Answers)
	for _, r := range tc.Responses {
		for _, f := range r.Fields {
			answers[f.StringID] = f.Answer
		}
	}
	tc.Answers = answers
}

// OrderedFields returns every field sorted by response then input position.
func (tc *TestCase) OrderedFields() []*FieldRecord {
	var fields []*FieldRecord
	for _, r := range tc.Responses {
		fields = append(fields, r.Fields...)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].ResponseIndex != fields[j].ResponseIndex {
			return fields[i].ResponseIndex < fields[j].ResponseIndex
		}
		return fields[i].InputIndex < fields[j].InputIndex
	})
	return fields
}

// Clone deep-copies the test case including its records and snapshot.
func (tc *TestCase) Clone() *TestCase {
	out := *tc
	out.Answers = tc.Answers.Clone()
	out.loaded = tc.loaded.Clone()
	out.Responses = make([]*ResponseRecord, len(tc.Responses))
	for i, r := range tc.Responses {
		rc := *r
		rc.Fields = make([]*FieldRecord, len(r.Fields))
		for j, f := range r.Fields {
			fc := *f
			rc.Fields[j] = &fc
		}
		out.Responses[i] = &rc
	}
	return &out
}
