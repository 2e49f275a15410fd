// internal/workers/content-testing/run-content-test/models.go
package runcontenttest

type Input struct {
	TestID string `json:"testId"`
}

type Output struct {
	RunID        string `json:"runId"`
	TestID       string `json:"testId"`
	ShouldBe     string `json:"shouldBe"`
	Verdict      string `json:"verdict"`
	Passed       bool   `json:"passed"`
	GradingError string `json:"gradingError,omitempty"`
	RanAt        string `json:"ranAt"`
}
