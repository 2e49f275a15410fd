// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-testing-workers/internal/common/aws"
	"content-testing-workers/internal/common/config"
	"content-testing-workers/internal/common/database"
	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/grading"
	"content-testing-workers/internal/history"
	"content-testing-workers/internal/notify"
	"content-testing-workers/internal/problem"
	"content-testing-workers/pkg/registry"

	cct "content-testing-workers/internal/workers/content-testing/create-content-test"
	dct "content-testing-workers/internal/workers/content-testing/delete-content-test"
	rct "content-testing-workers/internal/workers/content-testing/rematch-content-test"
	rnt "content-testing-workers/internal/workers/content-testing/run-content-test"
	rpt "content-testing-workers/internal/workers/content-testing/run-problem-tests"
	scr "content-testing-workers/internal/workers/content-testing/search-content-test-runs"
	sct "content-testing-workers/internal/workers/content-testing/summarize-content-test"
	uct "content-testing-workers/internal/workers/content-testing/update-content-test"
)

const (
	location = "i4x://MITx/999/problem/Problem_4"
	base     = "i4x-MITx-999-problem-Problem_4"
	index    = "content-test-runs"

	authored = `<problem>
<p>Enter two prime numbers</p>
<customresponse cfn="test_prime">
  <textline/>
  <textline/>
</customresponse>
</problem>`

	// An author adds a warm-up question before the original one.
	edited = `<problem>
<stringresponse answer="prime">
  <textline/>
</stringresponse>
<p>Enter two prime numbers</p>
<customresponse cfn="test_prime">
  <textline/>
  <textline/>
</customresponse>
</problem>`
)

// fakeElasticsearch keeps indexed documents in memory and answers term
// filters on search.
type fakeElasticsearch struct {
	mu      sync.Mutex
	created bool
	docs    map[string]json.RawMessage
	order   []string
}

func (f *fakeElasticsearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodHead && path == index:
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && path == index:
		f.created = true
		io.WriteString(w, `{"acknowledged":true}`)
	case strings.HasPrefix(path, index+"/_doc/"):
		id := strings.TrimPrefix(path, index+"/_doc/")
		body, _ := io.ReadAll(r.Body)
		if _, seen := f.docs[id]; !seen {
			f.order = append(f.order, id)
		}
		f.docs[id] = body
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)
	case path == index+"/_search":
		f.search(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeElasticsearch) search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query struct {
			Bool struct {
				Filter []map[string]map[string]interface{} `json:"filter"`
			} `json:"bool"`
		} `json:"query"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	type hit struct {
		Source json.RawMessage `json:"_source"`
	}
	hits := []hit{}
	for i := len(f.order) - 1; i >= 0; i-- {
		doc := f.docs[f.order[i]]
		var fields map[string]interface{}
		json.Unmarshal(doc, &fields)
		if matchesTerms(fields, req.Query.Bool.Filter) {
			hits = append(hits, hit{Source: doc})
		}
	}

	resp := map[string]interface{}{"took": 1}
	resp["hits"] = map[string]interface{}{
		"total": map[string]int{"value": len(hits)},
		"hits":  hits,
	}
	json.NewEncoder(w).Encode(resp)
}

func matchesTerms(doc map[string]interface{}, filters []map[string]map[string]interface{}) bool {
	for _, f := range filters {
		for field, want := range f["term"] {
			if doc[field] != want {
				return false
			}
		}
	}
	return true
}

// primeGrader marks answers correct when the first input of the prime
// question holds a prime.
func primeGrader(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers map[string]string `json:"answers"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		correctness := "incorrect"
		for id, answer := range req.Answers {
			if !strings.HasSuffix(id, "_1") || answer == "" {
				continue
			}
			if n, err := strconv.Atoi(answer); err == nil && isPrime(n) {
				correctness = "correct"
			}
		}
		grades := map[string]interface{}{}
		for id := range req.Answers {
			grades[id] = map[string]string{"correctness": correctness}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"correctMap": grades})
	}))
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

type recordingSNS struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, *in.Subject)
	id := "msg-" + strconv.Itoa(len(r.subjects))
	return &sns.PublishOutput{MessageId: &id}, nil
}

type stack struct {
	source  *problem.StaticSource
	service *contenttest.Service
	runs    *history.ESHistory
	topic   *recordingSNS
	reg     *registry.ActivityRegistry
	log     logger.Logger
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	source := problem.NewStaticSource(map[string]string{location: authored})
	cache := problem.NewCachedSource(source, rdb, config.GetDuration(60000), log)

	esServer := httptest.NewServer(&fakeElasticsearch{docs: map[string]json.RawMessage{}})
	t.Cleanup(esServer.Close)
	es, err := database.NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{esServer.URL}})
	require.NoError(t, err)
	require.NoError(t, es.EnsureIndex(ctx, index, history.Mapping))
	runs := history.NewESHistory(es.Client, index)

	grader := primeGrader(t)
	t.Cleanup(grader.Close)

	topic := &recordingSNS{}
	notifier := notify.New(log, notify.WithPublisher(aws.NewSNSClientWithAPI(topic, "arn:aws:sns:us-east-1:000000000000:content-tests")))

	service := contenttest.NewService(
		contenttest.Config{PreserveOnSlotChange: true, RunConcurrency: 2},
		contenttest.NewMemoryRepository(),
		problem.NewProvider(cache),
		grading.NewHTTPGrader(config.GraderConfig{BaseURL: grader.URL, Timeout: 5000}),
		log,
		contenttest.WithHistory(runs),
		contenttest.WithNotifier(notifier),
	)

	reg, err := registry.LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)

	return &stack{source: source, service: service, runs: runs, topic: topic, reg: reg, log: log}
}

// editProblem publishes a new revision of the problem. The Redis cache is
// keyed by revision, so nothing has to be dropped.
func (s *stack) editProblem(t *testing.T, xml string) {
	t.Helper()
	s.source.Put(location, xml)
}

func TestContentTestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	create := cct.NewHandler(cct.LoadConfig(), s.service, s.reg, s.log)
	update := uct.NewHandler(uct.LoadConfig(), s.service, s.reg, s.log)
	rematch := rct.NewHandler(rct.LoadConfig(), s.service, s.reg, s.log)
	run := rnt.NewHandler(rnt.LoadConfig(), s.service, s.reg, s.log)
	runAll := rpt.NewHandler(rpt.LoadConfig(), s.service, s.reg, s.log)
	summarize := sct.NewHandler(sct.LoadConfig(), s.service, s.reg, s.log)
	search := scr.NewHandler(scr.LoadConfig(), s.runs, s.reg, s.log)
	del := dct.NewHandler(dct.LoadConfig(), s.service, s.reg, s.log)

	// 1. Author two tests against the original problem.
	good, err := create.Execute(ctx, &cct.Input{
		ProblemLocation: location,
		ShouldBe:        "Correct",
		Answers:         map[string]string{base + "_2_1": "5", base + "_2_2": "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Not Run", good.Verdict)
	assert.Equal(t, []string{base + "_2_1", base + "_2_2"}, good.InputIDs)

	bad, err := create.Execute(ctx, &cct.Input{
		ProblemLocation: location,
		ShouldBe:        "Correct",
		Answers:         map[string]string{base + "_2_1": "4"},
	})
	require.NoError(t, err)

	// 2. Both run; the second does not hold up and is reported.
	res, err := run.Execute(ctx, &rnt.Input{TestID: good.TestID})
	require.NoError(t, err)
	assert.True(t, res.Passed)

	res, err = run.Execute(ctx, &rnt.Input{TestID: bad.TestID})
	require.NoError(t, err)
	assert.Equal(t, "Fail", res.Verdict)
	require.Len(t, s.topic.subjects, 1)
	assert.Contains(t, s.topic.subjects[0], "Fail")

	// 3. Fix the second test's expectation; its verdict resets.
	upd, err := update.Execute(ctx, &uct.Input{TestID: bad.TestID, ShouldBe: "Incorrect"})
	require.NoError(t, err)
	assert.Equal(t, "Not Run", upd.Verdict)

	// 4. The author edits the problem: the original question moves down.
	s.editProblem(t, edited)

	rm, err := rematch.Execute(ctx, &rct.Input{TestID: good.TestID})
	require.NoError(t, err)
	assert.Equal(t, "rematched", rm.Outcome)
	assert.Equal(t, 1, rm.Matched)
	assert.Equal(t, 1, rm.Created)

	sum, err := summarize.Execute(ctx, &sct.Input{TestID: good.TestID})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		base + "_2_1": "",
		base + "_3_1": "5",
		base + "_3_2": "7",
	}, sum.Answers)

	// 5. A batch run rematches the other test on the way and both pass.
	batch, err := runAll.Execute(ctx, &rpt.Input{ProblemLocation: location})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Total)
	assert.True(t, batch.AllPassed, "%+v", batch.Results)

	// 6. History holds every run, newest first.
	found, err := search.Execute(ctx, &scr.Input{TestID: bad.TestID})
	require.NoError(t, err)
	require.Equal(t, 2, found.Total)
	assert.Equal(t, contenttest.VerdictPass, found.Runs[0].Verdict)
	assert.Equal(t, contenttest.VerdictFail, found.Runs[1].Verdict)

	found, err = search.Execute(ctx, &scr.Input{Verdict: "Fail"})
	require.NoError(t, err)
	assert.Equal(t, 1, found.Total)

	// 7. Delete, then deleting again is tolerated on request.
	gone, err := del.Execute(ctx, &dct.Input{TestID: good.TestID})
	require.NoError(t, err)
	assert.True(t, gone.Deleted)

	gone, err = del.Execute(ctx, &dct.Input{TestID: good.TestID, IgnoreMissing: true})
	require.NoError(t, err)
	assert.False(t, gone.Deleted)

	_, err = summarize.Execute(ctx, &sct.Input{TestID: good.TestID})
	assert.ErrorIs(t, err, contenttest.ErrTestCaseNotFound)
}
