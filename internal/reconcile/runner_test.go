package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/event/topic"
	"github.com/dshills/redline/internal/patch"
	"github.com/dshills/redline/internal/rewrite"
	"github.com/dshills/redline/internal/rewrite/mock"
)

const base = "AAAA BBBB CCCC"

func newBatch(t *testing.T, baseText string, spans ...[2]string) *patch.Batch {
	t.Helper()

	q := patch.NewQueue(baseText)
	for _, s := range spans {
		start := strings.Index(baseText, s[0])
		if start < 0 {
			t.Fatalf("span %q not in base text", s[0])
		}
		req := patch.NewSpanReplace(start, start+len(s[0]), s[0], s[1])
		if err := q.Add(req); err != nil {
			t.Fatalf("add %q: %v", s[0], err)
		}
	}
	batch, stale := q.PrepareBatch(baseText)
	if len(stale) != 0 {
		t.Fatalf("unexpected stale requests")
	}
	return batch
}

func TestRunComposesAscending(t *testing.T) {
	batch := newBatch(t, base,
		[2]string{"CCCC", "replace"},
		[2]string{"AAAA", "replace"},
	)
	rw := mock.NewRewriter(
		mock.WithReplacement("AAAA", "XX"),
		mock.WithReplacement("CCCC", "YYYYYY"),
	)

	runner := NewRunner(batch, rw, event.NewBus())
	got, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != "XX BBBB YYYYYY" {
		t.Errorf("got %q, want %q", got, "XX BBBB YYYYYY")
	}
	if runner.State() != BatchCompleted {
		t.Errorf("batch state = %v, want completed", runner.State())
	}
	for _, req := range batch.Requests {
		if runner.RequestState(req.ID) != StateResolved {
			t.Errorf("request %s state = %v", req.ID, runner.RequestState(req.ID))
		}
		if req.Status != patch.StatusCompleted {
			t.Errorf("request %s status = %v", req.ID, req.Status)
		}
	}
}

func TestRunDeterministicAcrossChunking(t *testing.T) {
	want := ""
	for _, chunk := range []int{0, 1, 3, 1024} {
		batch := newBatch(t, base,
			[2]string{"AAAA", ""},
			[2]string{"BBBB", ""},
			[2]string{"CCCC", ""},
		)
		rw := mock.NewRewriter(
			mock.WithReplacement("AAAA", "alpha"),
			mock.WithReplacement("BBBB", "b"),
			mock.WithReplacement("CCCC", "gamma-gamma"),
			mock.WithChunkSize(chunk),
		)

		got, err := NewRunner(batch, rw, event.NewBus()).Run(context.Background())
		if err != nil {
			t.Fatalf("chunk %d: %v", chunk, err)
		}
		if want == "" {
			want = got
			continue
		}
		if got != want {
			t.Errorf("chunk %d: got %q, want %q", chunk, got, want)
		}
	}
}

func TestRunLaterRequestSeesEarlierReplacement(t *testing.T) {
	baseText := "AAAA and CCCC"
	batch := newBatch(t, baseText,
		[2]string{"AAAA", ""},
		[2]string{"CCCC", ""},
	)
	rw := mock.NewRewriter(mock.WithReplacement("AAAA", "REPLACED-HEAD"))

	if _, err := NewRunner(batch, rw, event.NewBus()).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	calls := rw.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if !strings.Contains(calls[1].ContextBefore, "REPLACED-HEAD") {
		t.Errorf("second request's context %q does not reflect first replacement", calls[1].ContextBefore)
	}
}

func TestRunAbortsOnFailure(t *testing.T) {
	batch := newBatch(t, base,
		[2]string{"AAAA", ""},
		[2]string{"BBBB", ""},
		[2]string{"CCCC", ""},
	)
	injected := rewrite.Upstream("mock", errors.New("model unavailable"))
	rw := mock.NewFlaky(mock.NewRewriter(), 2, injected)

	bus := event.NewBus()
	var aborted *event.BatchAborted
	var completed bool
	if _, err := bus.Subscribe("patch.batch.*", func(_ context.Context, ev event.Event) {
		switch p := ev.Payload.(type) {
		case event.BatchAborted:
			aborted = &p
		case event.BatchCompleted:
			completed = true
		}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	runner := NewRunner(batch, rw, bus)
	_, err := runner.Run(context.Background())
	if !errors.Is(err, rewrite.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	if runner.State() != BatchAborted {
		t.Errorf("batch state = %v, want aborted", runner.State())
	}
	if completed {
		t.Errorf("aborted batch must not complete")
	}
	if aborted == nil || !errors.Is(aborted.Err, rewrite.ErrUpstream) {
		t.Errorf("abort event missing or lost the error: %+v", aborted)
	}

	// First request resolved then discarded; second failed; third untouched.
	if runner.RequestState(batch.Requests[1].ID) != StateFailed {
		t.Errorf("failing request state = %v", runner.RequestState(batch.Requests[1].ID))
	}
	if runner.RequestState(batch.Requests[2].ID) != StatePending {
		t.Errorf("requests after the failure must stay pending, got %v",
			runner.RequestState(batch.Requests[2].ID))
	}
	if batch.Requests[2].Status != patch.StatusPending {
		t.Errorf("third request status = %v", batch.Requests[2].Status)
	}
	// The base text is untouched regardless of partial progress.
	if batch.BaseText != base {
		t.Errorf("base text mutated")
	}
}

func TestRunEventOrdering(t *testing.T) {
	batch := newBatch(t, base,
		[2]string{"AAAA", ""},
		[2]string{"CCCC", ""},
	)
	rw := mock.NewRewriter(mock.WithChunkSize(2))

	bus := event.NewBus()
	var mu sync.Mutex
	var order []string
	if _, err := bus.Subscribe("patch.**", func(_ context.Context, ev event.Event) {
		mu.Lock()
		order = append(order, ev.Topic.String())
		mu.Unlock()
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if _, err := NewRunner(batch, rw, bus).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(order) == 0 || order[len(order)-1] != event.TopicBatchCompleted.String() {
		t.Fatalf("batch completion must be the final event, got %v", order)
	}

	// The second dispatch happens only after the first resolution.
	firstResolved := indexOf(order, event.TopicRequestResolved.String())
	dispatches := allIndexes(order, event.TopicRequestDispatched.String())
	if len(dispatches) != 2 {
		t.Fatalf("got %d dispatch events, want 2", len(dispatches))
	}
	if dispatches[1] < firstResolved {
		t.Errorf("second request dispatched before first resolved: %v", order)
	}
}

func TestRunFragmentTimeout(t *testing.T) {
	batch := newBatch(t, base, [2]string{"AAAA", ""})

	runner := NewRunner(batch, stalledRewriter{}, event.NewBus(),
		WithConfig(Config{FragmentTimeout: 20 * time.Millisecond}))

	_, err := runner.Run(context.Background())
	if !errors.Is(err, rewrite.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !errors.Is(err, ErrFragmentTimeout) {
		t.Errorf("timeout cause not preserved: %v", err)
	}
	if runner.State() != BatchAborted {
		t.Errorf("batch state = %v, want aborted", runner.State())
	}
}

func TestRunCancellationMidStream(t *testing.T) {
	batch := newBatch(t, base, [2]string{"AAAA", ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bus := event.NewBus()
	var failures []topic.Topic
	for _, failTopic := range []topic.Topic{event.TopicRequestFailed, event.TopicBatchAborted} {
		if _, err := bus.Subscribe(failTopic, func(_ context.Context, ev event.Event) {
			failures = append(failures, ev.Topic)
		}); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	runner := NewRunner(batch, mock.NewRewriter(mock.WithChunkSize(1)), bus)
	_, err := runner.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runner.State() != BatchAborted {
		t.Errorf("batch state = %v, want aborted", runner.State())
	}
	// A caller-driven cancellation is not a failure; subscribers see no
	// failure events for it.
	if len(failures) != 0 {
		t.Errorf("cancellation published failure events: %v", failures)
	}
}

func TestRunConsumedAndEmpty(t *testing.T) {
	batch := newBatch(t, base, [2]string{"AAAA", ""})
	runner := NewRunner(batch, mock.NewRewriter(), event.NewBus())

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := runner.Run(context.Background()); !errors.Is(err, ErrBatchConsumed) {
		t.Errorf("expected ErrBatchConsumed, got %v", err)
	}

	empty := &patch.Batch{BaseText: base}
	if _, err := NewRunner(empty, mock.NewRewriter(), event.NewBus()).Run(context.Background()); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestRunAssetInsert(t *testing.T) {
	baseText := "Hello world\nGoodbye"
	q := patch.NewQueue(baseText)
	if err := q.Add(patch.NewAssetInsert(6, "a globe")); err != nil {
		t.Fatalf("add: %v", err)
	}
	batch, _ := q.PrepareBatch(baseText)

	store := &mock.AssetStore{}
	runner := NewRunner(batch, mock.NewRewriter(), event.NewBus(),
		WithAssets(&mock.AssetGenerator{}, store))

	got, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(got, "![a globe](assets/asset-1.png)\n\nHello world") {
		t.Errorf("got %q", got)
	}
}

func TestRunAssetInsertUnconfigured(t *testing.T) {
	q := patch.NewQueue(base)
	if err := q.Add(patch.NewAssetInsert(0, "x")); err != nil {
		t.Fatalf("add: %v", err)
	}
	batch, _ := q.PrepareBatch(base)

	_, err := NewRunner(batch, mock.NewRewriter(), event.NewBus()).Run(context.Background())
	if !errors.Is(err, ErrAssetUnsupported) {
		t.Errorf("expected ErrAssetUnsupported, got %v", err)
	}
}

// stalledRewriter returns a stream that never produces a fragment until its
// context is cancelled.
type stalledRewriter struct{}

func (stalledRewriter) Rewrite(ctx context.Context, _ rewrite.Prompt) (rewrite.Stream, error) {
	return stalledStream{ctx: ctx}, nil
}

type stalledStream struct{ ctx context.Context }

func (s stalledStream) Next() (string, bool, error) {
	<-s.ctx.Done()
	return "", false, s.ctx.Err()
}

func (s stalledStream) Close() error { return nil }

func indexOf(list []string, want string) int {
	for i, s := range list {
		if s == want {
			return i
		}
	}
	return -1
}

func allIndexes(list []string, want string) []int {
	var out []int
	for i, s := range list {
		if s == want {
			out = append(out, i)
		}
	}
	return out
}
