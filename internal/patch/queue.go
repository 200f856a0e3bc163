package patch

import (
	"sort"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Queue collects requests against one base text and prepares dispatch batches.
// All methods are safe for concurrent use.
type Queue struct {
	mu       sync.RWMutex
	baseText string
	requests []*Request // ascending Start
}

// NewQueue creates a queue addressing the given base text.
func NewQueue(baseText string) *Queue {
	return &Queue{baseText: baseText}
}

// BaseText returns the text the queued requests are addressed against.
func (q *Queue) BaseText() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.baseText
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.requests)
}

// Add queues a request. It fails with ErrInvalidSpan when offsets are
// inverted or out of bounds, ErrSelectionMismatch when a span-replace
// request's Selected does not equal the base text at its offsets, and
// ErrSpanOverlap when the span intersects an already-queued request.
// On failure the queue is unchanged.
func (q *Queue) Add(req *Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if req.Start < 0 || req.Start > req.End || req.End > len(q.baseText) {
		return ErrInvalidSpan
	}
	if req.Kind == KindSpanReplace && req.Selected != q.baseText[req.Start:req.End] {
		return ErrSelectionMismatch
	}
	for _, queued := range q.requests {
		if overlaps(req.Start, req.End, queued.Start, queued.End) {
			return ErrSpanOverlap
		}
	}

	q.requests = append(q.requests, req)
	sort.SliceStable(q.requests, func(i, j int) bool {
		return q.requests[i].Start < q.requests[j].Start
	})
	return nil
}

// Rebase swaps the queue's base text without re-validating queued requests.
// Queued spans may have drifted relative to the new text; PrepareBatch is
// where drift is detected and reported. New Adds validate against the new
// base.
func (q *Queue) Rebase(baseText string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.baseText = baseText
}

// Remove drops a not-yet-dispatched request by id.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, req := range q.requests {
		if req.ID == id {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return nil
		}
	}
	return ErrUnknownRequest
}

// Requests returns the queued requests in ascending Start order.
func (q *Queue) Requests() []*Request {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]*Request, len(q.requests))
	copy(out, q.requests)
	return out
}

// GroupByProximity folds requests whose spans sit within threshold bytes of
// each other into the same group, returning ordered lists of request ids.
// Grouping is presentational only; dispatch order is always ascending Start.
func (q *Queue) GroupByProximity(threshold int) [][]string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.requests) == 0 {
		return nil
	}

	groups := [][]string{{q.requests[0].ID}}
	prevEnd := q.requests[0].End
	for _, req := range q.requests[1:] {
		if req.Start-prevEnd <= threshold {
			groups[len(groups)-1] = append(groups[len(groups)-1], req.ID)
		} else {
			groups = append(groups, []string{req.ID})
		}
		prevEnd = req.End
	}
	return groups
}

// Batch is an ordered, validated set of requests addressed against one
// immutable base text snapshot.
type Batch struct {
	BaseText string
	Requests []*Request // ascending Start
}

// PrepareBatch snapshots the live text and re-validates each queued request
// against it. Requests whose recorded selection no longer matches the text at
// their offsets have drifted; they are excluded from the batch and reported as
// *StaleError values in the second return. The caller decides whether drifted
// spans get re-marked.
//
// liveText is the current text of the base revision; it becomes the batch's
// immutable base snapshot.
func (q *Queue) PrepareBatch(liveText string) (*Batch, []*StaleError) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var (
		kept  []*Request
		stale []*StaleError
	)
	for _, req := range q.requests {
		if req.Kind == KindAssetInsert {
			if req.Start <= len(liveText) {
				kept = append(kept, req)
			} else {
				stale = append(stale, &StaleError{RequestID: req.ID})
			}
			continue
		}

		if req.End <= len(liveText) && liveText[req.Start:req.End] == req.Selected {
			kept = append(kept, req)
			continue
		}

		actual := ""
		if req.Start <= len(liveText) {
			end := req.End
			if end > len(liveText) {
				end = len(liveText)
			}
			actual = liveText[req.Start:end]
		}
		stale = append(stale, &StaleError{
			RequestID: req.ID,
			Expected:  req.Selected,
			Actual:    actual,
			Diff:      selectionDiff(req.Selected, actual),
		})
	}

	// Drifted requests leave the queue; the batch owns the survivors.
	q.requests = nil

	return &Batch{BaseText: liveText, Requests: kept}, stale
}

// selectionDiff renders a compact character diff for stale diagnostics.
func selectionDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	return dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs))
}
