// internal/contenttest/fixtures_test.go
package contenttest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"content-testing-workers/internal/problem"

	"github.com/stretchr/testify/require"
)

const (
	testLocation = "i4x://MITx/999/problem/Problem_4"
	inputBase    = "i4x-MITx-999-problem-Problem_4"
)

const primeScript = `<script type="loncapa/python">
def is_prime(n):
    for i in range(2, int(math.sqrt(n)) + 1):
        if n % i == 0:
            return False
    return True

def test_prime(expect, ans):
    return is_prime(int(ans[0]))
</script>`

func customResponse(inputs int, extraAttrs string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<customresponse cfn="test_prime"%s>`, extraAttrs)
	for i := 0; i < inputs; i++ {
		b.WriteString("\n  <textline/>")
	}
	b.WriteString("\n</customresponse>")
	return b.String()
}

func problemXML(responses ...string) string {
	return "<problem>\n" + primeScript + "\n<p>Enter a prime number</p>\n" +
		strings.Join(responses, "\n") + "\n</problem>"
}

func correctAnswers() Answers {
	return Answers{
		inputBase + "_2_1": "5",
		inputBase + "_2_2": "174440041",
	}
}

func incorrectAnswers() Answers {
	return Answers{
		inputBase + "_2_1": "4",
		inputBase + "_2_2": "541098",
	}
}

func mustParse(t *testing.T, xml string) *problem.Tree {
	t.Helper()
	tree, err := problem.Parse(testLocation, xml)
	require.NoError(t, err)
	return tree
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return "rec-" + strconv.Itoa(n)
	}
}

func newMatchedTestCase(t *testing.T, xml string, answers Answers) *TestCase {
	t.Helper()
	tc := &TestCase{
		ID:              "test-1",
		ProblemLocation: testLocation,
		ShouldBe:        ExpectCorrect,
		Verdict:         VerdictPass,
		Answers:         answers.Clone(),
	}
	BuildRecords(tc, mustParse(t, xml), seqIDs())
	tc.MarkClean()
	return tc
}

// primeGrader mimics a custom response that checks whether the first answer
// of the response is prime; unparsable answers raise like the script would.
func primeGrader() Grader {
	return GraderFunc(func(_ context.Context, _ string, answers Answers) (CorrectMap, error) {
		first, ok := answers[inputBase+"_2_1"]
		if !ok {
			return nil, errors.New("no answer for " + inputBase + "_2_1")
		}
		n, err := strconv.Atoi(first)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int(): %q", first)
		}
		correctness := "correct"
		if !isPrime(n) {
			correctness = "incorrect"
		}
		out := CorrectMap{}
		for id := range answers {
			out[id] = Grade{Correctness: correctness}
		}
		return out, nil
	})
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

type failingLoader struct {
	err error
}

func (f failingLoader) Load(context.Context, string) (*problem.Tree, error) {
	return nil, f.err
}
