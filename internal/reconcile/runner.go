package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dshills/redline/internal/asset"
	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/patch"
	"github.com/dshills/redline/internal/rewrite"
	"github.com/dshills/redline/internal/text"
)

// Sentinel errors for batch execution.
var (
	// ErrBatchConsumed is returned when Run is called more than once.
	ErrBatchConsumed = errors.New("batch already consumed")

	// ErrEmptyBatch is returned when the batch holds no requests.
	ErrEmptyBatch = errors.New("batch has no requests")

	// ErrFragmentTimeout is returned when the collaborator produces no
	// fragment within the configured interval.
	ErrFragmentTimeout = errors.New("no fragment within timeout")

	// ErrAssetUnsupported is returned when a batch contains an asset-insert
	// request but no generator or store was configured.
	ErrAssetUnsupported = errors.New("asset generation not configured")
)

// Config tunes batch execution.
type Config struct {
	// ContextRadius is the byte radius of the context window sent with each
	// rewrite request. Defaults to 200.
	ContextRadius int

	// FragmentTimeout bounds the wait for each streamed fragment. A stalled
	// stream is treated as an upstream failure. Defaults to 30s.
	FragmentTimeout time.Duration
}

func (c *Config) defaults() {
	if c.ContextRadius <= 0 {
		c.ContextRadius = 200
	}
	if c.FragmentTimeout <= 0 {
		c.FragmentTimeout = 30 * time.Second
	}
}

// Runner drives one batch to completion or abort. One Runner per batch; Run
// may be called exactly once. State accessors are safe for concurrent use
// while Run executes on another goroutine.
type Runner struct {
	rewriter rewrite.Rewriter
	assetGen rewrite.AssetGenerator
	assets   rewrite.AssetStore
	bus      *event.Bus
	logger   *slog.Logger
	cfg      Config

	batch *patch.Batch

	mu       sync.Mutex
	state    BatchState
	requests map[string]RequestState
	buffers  map[string]*strings.Builder
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithAssets enables asset-insert requests using the given collaborators.
func WithAssets(gen rewrite.AssetGenerator, store rewrite.AssetStore) RunnerOption {
	return func(r *Runner) {
		r.assetGen = gen
		r.assets = store
	}
}

// WithLogger sets the structured logger. When unset, logging is discarded.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithConfig overrides the default execution tunables.
func WithConfig(cfg Config) RunnerOption {
	return func(r *Runner) {
		r.cfg = cfg
	}
}

// NewRunner creates a runner for one batch.
func NewRunner(batch *patch.Batch, rewriter rewrite.Rewriter, bus *event.Bus, opts ...RunnerOption) *Runner {
	r := &Runner{
		rewriter: rewriter,
		bus:      bus,
		batch:    batch,
		state:    BatchIdle,
		requests: make(map[string]RequestState, len(batch.Requests)),
		buffers:  make(map[string]*strings.Builder, len(batch.Requests)),
	}
	for _, req := range batch.Requests {
		r.requests[req.ID] = StatePending
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cfg.defaults()
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// State returns the batch state.
func (r *Runner) State() BatchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// RequestState returns the state of one request in the batch.
func (r *Runner) RequestState(id string) RequestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[id]
}

// Run processes the batch sequentially and returns the candidate text.
//
// On any request failure the batch aborts: remaining requests stay pending,
// partial progress is dropped, and the returned error describes the failing
// request. The caller's base text is never modified; the candidate is a new
// string.
func (r *Runner) Run(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.state != BatchIdle {
		r.mu.Unlock()
		return "", ErrBatchConsumed
	}
	if len(r.batch.Requests) == 0 {
		r.mu.Unlock()
		return "", ErrEmptyBatch
	}
	r.state = BatchRunning
	r.mu.Unlock()

	currentText := r.batch.BaseText
	delta := 0

	for _, req := range r.batch.Requests {
		// Effective offsets against the evolving text. Requests are
		// non-overlapping and ascending, so the cumulative delta is exact.
		start := req.Start + delta
		end := req.End + delta

		var (
			newText string
			err     error
		)
		switch req.Kind {
		case patch.KindAssetInsert:
			newText, err = r.runAssetInsert(ctx, req, currentText, start)
		default:
			newText, err = r.runSpanReplace(ctx, req, currentText, start, end)
		}
		if err != nil {
			r.abort(ctx, req, err)
			return "", err
		}

		delta += len(newText) - len(currentText)
		currentText = newText
		req.Status = patch.StatusCompleted
	}

	r.mu.Lock()
	r.state = BatchCompleted
	r.mu.Unlock()

	r.logger.Info("batch completed", "requests", len(r.batch.Requests))
	r.bus.Publish(ctx, event.TopicBatchCompleted, event.BatchCompleted{CandidateText: currentText})
	return currentText, nil
}

// runSpanReplace streams one replacement and splices it at [start, end).
func (r *Runner) runSpanReplace(ctx context.Context, req *patch.Request, currentText string, start, end int) (string, error) {
	r.transition(ctx, req, StateDispatched)

	before, after := text.ContextWindow(currentText, start, end, r.cfg.ContextRadius)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := r.rewriter.Rewrite(streamCtx, rewrite.Prompt{
		Selected:      req.Selected,
		Instruction:   req.Instruction,
		ContextBefore: before,
		ContextAfter:  after,
	})
	if err != nil {
		return "", classify(err)
	}
	defer stream.Close()

	buf := &strings.Builder{}
	r.mu.Lock()
	r.buffers[req.ID] = buf
	r.mu.Unlock()

	for {
		frag, done, err := r.nextFragment(streamCtx, cancel, stream)
		if err != nil {
			return "", err
		}
		if done {
			break
		}
		if r.RequestState(req.ID) == StateDispatched {
			r.transition(ctx, req, StateStreaming)
		}
		buf.WriteString(frag)
		r.bus.Publish(ctx, event.TopicRequestFragment, event.RequestFragment{
			RequestID: req.ID,
			Text:      frag,
		})
	}

	replacement := buf.String()
	newText, err := text.ReplaceSpan(currentText, start, end, replacement)
	if err != nil {
		return "", fmt.Errorf("splicing request %s: %w", req.ID, err)
	}

	r.transition(ctx, req, StateResolved)
	r.bus.Publish(ctx, event.TopicRequestResolved, event.RequestResolved{
		RequestID: req.ID,
		FinalText: replacement,
	})
	r.logger.Debug("request resolved", "request", req.ID, "replacement_len", len(replacement))
	return newText, nil
}

// runAssetInsert generates and places one asset block at the line containing
// start. Assets do not stream; the request resolves in one step.
func (r *Runner) runAssetInsert(ctx context.Context, req *patch.Request, currentText string, start int) (string, error) {
	if r.assetGen == nil || r.assets == nil {
		return "", ErrAssetUnsupported
	}

	r.transition(ctx, req, StateDispatched)

	ins, err := asset.Place(ctx, r.assetGen, r.assets, currentText, start, req.Instruction)
	if err != nil {
		return "", classify(err)
	}

	r.transition(ctx, req, StateResolved)
	r.bus.Publish(ctx, event.TopicRequestResolved, event.RequestResolved{
		RequestID: req.ID,
		FinalText: ins.Ref,
	})
	return ins.NewText, nil
}

// nextFragment pulls the next fragment, enforcing the fragment timeout. On
// timeout the stream's context is cancelled so the provider read unblocks.
func (r *Runner) nextFragment(ctx context.Context, cancel context.CancelFunc, stream rewrite.Stream) (string, bool, error) {
	type result struct {
		frag string
		done bool
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		frag, done, err := stream.Next()
		ch <- result{frag, done, err}
	}()

	timer := time.NewTimer(r.cfg.FragmentTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", false, classify(res.err)
		}
		return res.frag, res.done, nil
	case <-timer.C:
		cancel()
		return "", false, &rewrite.UpstreamError{
			Provider: "stream",
			Message:  ErrFragmentTimeout.Error(),
			Err:      ErrFragmentTimeout,
		}
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// abort marks the failing request and abandons the queue. Requests after the
// failing one remain pending. Cancellation is a caller discard, not an
// upstream failure: state still transitions and buffers drop, but no failure
// events fire for it.
func (r *Runner) abort(ctx context.Context, req *patch.Request, err error) {
	req.Status = patch.StatusFailed
	r.transition(ctx, req, StateFailed)

	cancelled := errors.Is(err, context.Canceled)
	if !cancelled {
		r.bus.Publish(ctx, event.TopicRequestFailed, event.RequestFailed{
			RequestID: req.ID,
			Err:       err,
		})
	}

	r.mu.Lock()
	r.state = BatchAborted
	r.buffers = make(map[string]*strings.Builder)
	r.mu.Unlock()

	if cancelled {
		r.logger.Debug("batch cancelled", "request", req.ID)
		return
	}
	r.logger.Warn("batch aborted", "request", req.ID, "error", err)
	r.bus.Publish(ctx, event.TopicBatchAborted, event.BatchAborted{Err: err})
}

// transition records a request state change and publishes dispatch events.
func (r *Runner) transition(ctx context.Context, req *patch.Request, state RequestState) {
	r.mu.Lock()
	r.requests[req.ID] = state
	r.mu.Unlock()

	switch state {
	case StateDispatched:
		req.Status = patch.StatusProcessing
		r.bus.Publish(ctx, event.TopicRequestDispatched, event.RequestDispatched{RequestID: req.ID})
	}
}

// classify wraps unrecognized failures as upstream errors, preserving the
// original message. Context cancellation passes through untouched so callers
// can distinguish a discard from a provider failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rewrite.ErrUpstream) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return rewrite.Upstream("stream", err)
}
