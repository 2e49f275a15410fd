// internal/workers/content-testing/update-content-test/models.go
package updatecontenttest

// Input changes the answers, the expectation or both. A nil Answers map
// leaves the answers untouched; an empty one clears them.
type Input struct {
	TestID   string            `json:"testId"`
	Answers  map[string]string `json:"answers,omitempty"`
	ShouldBe string            `json:"shouldBe,omitempty"`
}

type Output struct {
	TestID    string `json:"testId"`
	ShouldBe  string `json:"shouldBe"`
	Verdict   string `json:"verdict"`
	UpdatedAt string `json:"updatedAt"`
}
