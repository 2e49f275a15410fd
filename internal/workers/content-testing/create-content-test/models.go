// internal/workers/content-testing/create-content-test/models.go
package createcontenttest

type Input struct {
	ProblemLocation string            `json:"problemLocation"`
	ShouldBe        string            `json:"shouldBe"`
	Answers         map[string]string `json:"answers"`
}

type Output struct {
	TestID    string   `json:"testId"`
	ShouldBe  string   `json:"shouldBe"`
	Verdict   string   `json:"verdict"`
	Responses int      `json:"responses"`
	InputIDs  []string `json:"inputIds"`
	CreatedAt string   `json:"createdAt"` // ISO 8601
}
