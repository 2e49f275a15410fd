// internal/history/elasticsearch.go
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"content-testing-workers/internal/contenttest"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexNotFound     = errors.New("INDEX_NOT_FOUND")
)

// Mapping keeps answers and grades out of the index mapping; their keys are
// per-problem input ids.
const Mapping = `{
  "mappings": {
    "properties": {
      "runId":           {"type": "keyword"},
      "testId":          {"type": "keyword"},
      "problemLocation": {"type": "keyword"},
      "shouldBe":        {"type": "keyword"},
      "verdict":         {"type": "keyword"},
      "gradingError":    {"type": "text"},
      "ranAt":           {"type": "date"},
      "answers":         {"type": "object", "enabled": false},
      "grades":          {"type": "object", "enabled": false}
    }
  }
}`

const defaultPageSize = 20

// Query selects runs. Empty fields do not filter.
type Query struct {
	TestID          string    `json:"testId,omitempty"`
	ProblemLocation string    `json:"problemLocation,omitempty"`
	Verdict         string    `json:"verdict,omitempty"`
	Since           time.Time `json:"since,omitempty"`
	From            int       `json:"from,omitempty"`
	Size            int       `json:"size,omitempty"`
}

type Result struct {
	Total int                     `json:"total"`
	Took  int                     `json:"took"`
	Runs  []contenttest.RunResult `json:"runs"`
}

// ESHistory stores one document per run, keyed by run id.
type ESHistory struct {
	client *elasticsearch.Client
	index  string
}

func NewESHistory(client *elasticsearch.Client, index string) *ESHistory {
	return &ESHistory{client: client, index: index}
}

func (h *ESHistory) Index() string { return h.index }

func (h *ESHistory) Record(ctx context.Context, result contenttest.RunResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", result.RunID, err)
	}

	res, err := esapi.IndexRequest{
		Index:      h.index,
		DocumentID: result.RunID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, h.client)
	if err != nil {
		return fmt.Errorf("index run %s: %w", result.RunID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index run %s: %s", result.RunID, res.Status())
	}
	return nil
}

// BuildQuery renders q as an Elasticsearch request body, newest runs first.
func BuildQuery(q Query) map[string]interface{} {
	filters := []interface{}{}
	term := func(field, value string) {
		if value != "" {
			filters = append(filters, map[string]interface{}{
				"term": map[string]interface{}{field: value},
			})
		}
	}
	term("testId", q.TestID)
	term("problemLocation", q.ProblemLocation)
	term("verdict", q.Verdict)
	if !q.Since.IsZero() {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				"ranAt": map[string]interface{}{"gte": q.Since.UTC().Format(time.RFC3339)},
			},
		})
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(filters) > 0 {
		query = map[string]interface{}{"bool": map[string]interface{}{"filter": filters}}
	}
	return map[string]interface{}{
		"query": query,
		"sort":  []interface{}{map[string]interface{}{"ranAt": map[string]interface{}{"order": "desc"}}},
	}
}

type searchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source contenttest.RunResult `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (h *ESHistory) Search(ctx context.Context, q Query) (*Result, error) {
	body, err := json.Marshal(BuildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	size := q.Size
	if size <= 0 {
		size = defaultPageSize
	}
	from := q.From

	res, err := esapi.SearchRequest{
		Index: []string{h.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}.Do(ctx, h.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, h.index)
	}
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: %s %s", ErrSearchQueryFailed, res.Status(), msg)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	out := &Result{Total: parsed.Hits.Total.Value, Took: parsed.Took, Runs: make([]contenttest.RunResult, 0, len(parsed.Hits.Hits))}
	for _, hit := range parsed.Hits.Hits {
		out.Runs = append(out.Runs, hit.Source)
	}
	return out, nil
}
