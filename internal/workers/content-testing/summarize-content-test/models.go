// internal/workers/content-testing/summarize-content-test/models.go
package summarizecontenttest

import "content-testing-workers/internal/contenttest"

type Input struct {
	TestID string `json:"testId"`
}

// Output is the summary plus the answers keyed by input id, which is the
// shape form rendering consumes.
type Output struct {
	contenttest.Summary
	Answers map[string]string `json:"answers"`
}
