// internal/workers/content-testing/run-problem-tests/models.go
package runproblemtests

type Input struct {
	ProblemLocation string `json:"problemLocation"`
}

type Output struct {
	ProblemLocation string       `json:"problemLocation"`
	Total           int          `json:"total"`
	Passed          int          `json:"passed"`
	Failed          int          `json:"failed"`
	Errored         int          `json:"errored"`
	AllPassed       bool         `json:"allPassed"`
	Results         []TestResult `json:"results"`
}

type TestResult struct {
	TestID   string `json:"testId"`
	RunID    string `json:"runId"`
	ShouldBe string `json:"shouldBe"`
	Verdict  string `json:"verdict"`
}
