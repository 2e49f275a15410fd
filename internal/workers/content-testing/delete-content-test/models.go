// internal/workers/content-testing/delete-content-test/models.go
package deletecontenttest

type Input struct {
	TestID string `json:"testId"`
	// IgnoreMissing completes the job when the test is already gone.
	IgnoreMissing bool `json:"ignoreMissing"`
}

type Output struct {
	TestID  string `json:"testId"`
	Deleted bool   `json:"deleted"`
}
