// internal/workers/content-testing/rematch-content-test/models.go
package rematchcontenttest

type Input struct {
	TestID string `json:"testId"`
}

type Output struct {
	TestID    string `json:"testId"`
	Outcome   string `json:"outcome"`
	Changed   bool   `json:"changed"`
	Matched   int    `json:"matched"`
	Preserved int    `json:"preserved"`
	Created   int    `json:"created"`
	Deleted   int    `json:"deleted"`
	Verdict   string `json:"verdict"`
}
