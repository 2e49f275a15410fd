// internal/workers/content-testing/search-content-test-runs/models.go
package searchcontenttestruns

import "content-testing-workers/internal/contenttest"

type Input struct {
	TestID          string `json:"testId,omitempty"`
	ProblemLocation string `json:"problemLocation,omitempty"`
	Verdict         string `json:"verdict,omitempty"`
	Since           string `json:"since,omitempty"` // RFC 3339
	Pagination      struct {
		From int `json:"from"`
		Size int `json:"size"`
	} `json:"pagination"`
}

type Output struct {
	Total int                     `json:"total"`
	Took  int                     `json:"took"`
	Runs  []contenttest.RunResult `json:"runs"`
}
