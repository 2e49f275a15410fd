// internal/contenttest/rematch.go
package contenttest

import (
	"context"

	"content-testing-workers/internal/problem"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome says what a rematch had to do.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeCreated   Outcome = "created"
	OutcomeRehashed  Outcome = "rehashed"
	OutcomeRematched Outcome = "rematched"
)

// RematchReport summarizes one reconciliation.
type RematchReport struct {
	Outcome   Outcome `json:"outcome"`
	Matched   int     `json:"matched"`
	Preserved int     `json:"preserved"`
	Created   int     `json:"created"`
	Deleted   int     `json:"deleted"`
}

// Changed reports whether the test case needs to be persisted.
func (r *RematchReport) Changed() bool {
	return r.Outcome != OutcomeUnchanged
}

type RematchOptions struct {
	// PreserveOnSlotChange keeps the answers of a response whose inputs were
	// added or removed, as long as its identifier is unchanged and no other
	// record claimed it by hash.
	PreserveOnSlotChange bool
}

// Rematcher reconciles a test case's records with the current problem.
type Rematcher struct {
	loader TreeLoader
	opts   RematchOptions
	newID  func() string
	memos  func() *TreeMemo
}

func NewRematcher(loader TreeLoader, opts RematchOptions) *Rematcher {
	return &Rematcher{
		loader: loader,
		opts:   opts,
		newID:  uuid.NewString,
		memos:  func() *TreeMemo { return NewTreeMemo(loader) },
	}
}

// RematchIfNecessary brings tc in line with the current tree. The tree memo
// used during the call is released on every return path.
func (r *Rematcher) RematchIfNecessary(ctx context.Context, tc *TestCase) (*RematchReport, error) {
	ctx, span := tracer.Start(ctx, "contenttest.RematchIfNecessary")
	defer span.End()

	memo := r.memos()
	defer memo.Release()

	report, err := r.rematchWith(ctx, tc, memo)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("rematch.outcome", string(report.Outcome)),
		attribute.Int("rematch.created", report.Created),
		attribute.Int("rematch.deleted", report.Deleted),
	)
	return report, nil
}

func (r *Rematcher) rematchWith(ctx context.Context, tc *TestCase, memo *TreeMemo) (*RematchReport, error) {
	if len(tc.Responses) == 0 {
		tree, err := memo.GetOrLoad(ctx, tc.ProblemLocation)
		if err != nil {
			return nil, err
		}
		if len(tree.Responses) > 0 {
			BuildRecords(tc, tree, r.newID)
			return &RematchReport{Outcome: OutcomeCreated, Created: len(tc.Responses)}, nil
		}
	}

	matches, err := r.stillMatches(ctx, tc, memo)
	if err != nil {
		return nil, err
	}
	if !matches {
		tree, err := memo.GetOrLoad(ctx, tc.ProblemLocation)
		if err != nil {
			return nil, err
		}
		report := Rematch(tc, tree, r.opts, r.newID)
		return &report, nil
	}

	hashesMatch, err := r.stillHashesMatch(ctx, tc, memo)
	if err != nil {
		return nil, err
	}
	if !hashesMatch {
		tree, err := memo.GetOrLoad(ctx, tc.ProblemLocation)
		if err != nil {
			return nil, err
		}
		ReassignHashes(tc, tree)
		return &RematchReport{Outcome: OutcomeRehashed, Matched: len(tc.Responses)}, nil
	}

	return &RematchReport{Outcome: OutcomeUnchanged, Matched: len(tc.Responses)}, nil
}

func (r *Rematcher) stillMatches(ctx context.Context, tc *TestCase, memo *TreeMemo) (bool, error) {
	tree, err := memo.GetOrLoad(ctx, tc.ProblemLocation)
	if err != nil {
		return false, err
	}
	return StillMatches(tc, tree), nil
}

func (r *Rematcher) stillHashesMatch(ctx context.Context, tc *TestCase, memo *TreeMemo) (bool, error) {
	tree, err := memo.GetOrLoad(ctx, tc.ProblemLocation)
	if err != nil {
		return false, err
	}
	return StillHashesMatch(tc, tree), nil
}

// StillMatches is false when the response count changed, when a stored
// identifier is gone from the tree, or when any response gained or lost inputs.
func StillMatches(tc *TestCase, tree *problem.Tree) bool {
	if len(tc.Responses) != len(tree.Responses) {
		return false
	}
	for _, rec := range tc.Responses {
		resp, ok := tree.Response(rec.StringID)
		if !ok {
			return false
		}
		if len(rec.Fields) != len(resp.Inputs) {
			return false
		}
	}
	return true
}

// StillHashesMatch is false when any stored hash differs from the current one.
func StillHashesMatch(tc *TestCase, tree *problem.Tree) bool {
	for _, rec := range tc.Responses {
		resp, ok := tree.Response(rec.StringID)
		if !ok || resp.Hash() != rec.Hash {
			return false
		}
	}
	return true
}

// ReassignHashes refreshes stored hashes without touching records or answers.
func ReassignHashes(tc *TestCase, tree *problem.Tree) {
	for _, rec := range tc.Responses {
		if resp, ok := tree.Response(rec.StringID); ok {
			rec.Hash = resp.Hash()
			rec.Shape = resp.Shape()
		}
	}
}

// BuildRecords creates one record per response, answers taken from tc.Answers.
func BuildRecords(tc *TestCase, tree *problem.Tree, newID func() string) {
	tc.Responses = make([]*ResponseRecord, 0, len(tree.Responses))
	for _, resp := range tree.Responses {
		tc.Responses = append(tc.Responses, newRecord(resp, tc.Answers, newID))
	}
}

// Rematch maps existing records onto the responses of tree.
//
// Records are matched by structural hash first, in document order; when
// several records share a hash the earliest created one is used. With
// PreserveOnSlotChange, a response left unmatched takes over the record that
// still carries its identifier, provided the two have the same shape: only
// the inputs were added, removed or changed. Anything else starts blank, and
// records that were not claimed are dropped. Answers are rebuilt from the result and the
// verdict is reset.
func Rematch(tc *TestCase, tree *problem.Tree, opts RematchOptions, newID func() string) RematchReport {
	report := RematchReport{Outcome: OutcomeRematched}

	candidates := make(map[string][]*ResponseRecord)
	for _, rec := range tc.Responses {
		candidates[rec.Hash] = append(candidates[rec.Hash], rec)
	}

	consumed := make(map[*ResponseRecord]bool)
	assigned := make([]*ResponseRecord, len(tree.Responses))

	for i, resp := range tree.Responses {
		queue := candidates[resp.Hash()]
		if len(queue) == 0 {
			continue
		}
		rec := queue[0]
		candidates[resp.Hash()] = queue[1:]
		consumed[rec] = true
		resync(rec, resp, newID)
		assigned[i] = rec
		report.Matched++
	}

	if opts.PreserveOnSlotChange {
		byStringID := make(map[string]*ResponseRecord)
		for _, rec := range tc.Responses {
			if _, seen := byStringID[rec.StringID]; !seen && !consumed[rec] {
				byStringID[rec.StringID] = rec
			}
		}
		for i, resp := range tree.Responses {
			if assigned[i] != nil {
				continue
			}
			rec, ok := byStringID[resp.ID]
			if !ok || consumed[rec] || rec.Shape == "" || rec.Shape != resp.Shape() {
				continue
			}
			consumed[rec] = true
			resync(rec, resp, newID)
			assigned[i] = rec
			report.Preserved++
		}
	}

	for i, resp := range tree.Responses {
		if assigned[i] == nil {
			assigned[i] = newRecord(resp, nil, newID)
			report.Created++
		}
	}

	report.Deleted = len(tc.Responses) - len(consumed)
	tc.Responses = assigned
	tc.RebuildAnswers()
	tc.ResetVerdict()
	return report
}

// resync points rec at resp, keeping answers by input position.
func resync(rec *ResponseRecord, resp *problem.Response, newID func() string) {
	rec.StringID = resp.ID
	rec.Hash = resp.Hash()
	rec.Shape = resp.Shape()
	fields := make([]*FieldRecord, len(resp.Inputs))
	for k, in := range resp.Inputs {
		var f *FieldRecord
		if k < len(rec.Fields) {
			f = rec.Fields[k]
		} else {
			f = &FieldRecord{ID: newID()}
		}
		f.StringID = in.ID
		f.ResponseIndex = in.ResponseIndex
		f.InputIndex = in.InputIndex
		fields[k] = f
	}
	rec.Fields = fields
}

func newRecord(resp *problem.Response, answers Answers, newID func() string) *ResponseRecord {
	rec := &ResponseRecord{
		ID:       newID(),
		StringID: resp.ID,
		Hash:     resp.Hash(),
		Shape:    resp.Shape(),
		Fields:   make([]*FieldRecord, 0, len(resp.Inputs)),
	}
	for _, in := range resp.Inputs {
		rec.Fields = append(rec.Fields, &FieldRecord{
			ID:            newID(),
			StringID:      in.ID,
			ResponseIndex: in.ResponseIndex,
			InputIndex:    in.InputIndex,
			Answer:        answers[in.ID],
		})
	}
	return rec
}
