package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/patch"
	"github.com/dshills/redline/internal/reconcile"
	"github.com/dshills/redline/internal/revision"
	"github.com/dshills/redline/internal/rewrite"
)

// Config tunes a session.
type Config struct {
	// CheckpointDebounce is the quiet period before an edit checkpoint.
	// Defaults to 2s.
	CheckpointDebounce time.Duration

	// ProximityThreshold is the gap in bytes under which queued requests are
	// grouped for presentation. Defaults to 80.
	ProximityThreshold int

	// Reconcile tunes batch execution.
	Reconcile reconcile.Config
}

func (c *Config) defaults() {
	if c.CheckpointDebounce <= 0 {
		c.CheckpointDebounce = 2 * time.Second
	}
	if c.ProximityThreshold <= 0 {
		c.ProximityThreshold = 80
	}
}

// Session manages one document's live text, marked spans, checkpoints, and
// staged transactions. All methods are safe for concurrent use. Sessions for
// different documents share nothing and may run concurrently.
type Session struct {
	docID    string
	store    revision.Store
	rewriter rewrite.Rewriter
	assetGen rewrite.AssetGenerator
	assets   rewrite.AssetStore
	bus      *event.Bus
	logger   *slog.Logger
	cfg      Config

	mu         sync.Mutex
	head       *revision.Revision
	liveText   string
	queue      *patch.Queue
	tx         *Transaction
	checkpoint *debouncer
}

// Option configures a session.
type Option func(*Session)

// WithConfig overrides the default tunables.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger sets the structured logger. When unset, logging is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithAssets enables asset-insert requests using the given collaborators.
func WithAssets(gen rewrite.AssetGenerator, store rewrite.AssetStore) Option {
	return func(s *Session) {
		s.assetGen = gen
		s.assets = store
	}
}

// Open loads the document's head revision and starts a session on it.
func Open(ctx context.Context, docID string, store revision.Store, rw rewrite.Rewriter, bus *event.Bus, opts ...Option) (*Session, error) {
	head, err := store.Head(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("opening document %s: %w", docID, err)
	}
	return newSession(docID, head, store, rw, bus, opts...), nil
}

// Create stores revision 1 of a new document and starts a session on it.
func Create(ctx context.Context, docID, content string, store revision.Store, rw rewrite.Rewriter, bus *event.Bus, opts ...Option) (*Session, error) {
	head := revision.New(docID, 1, content)
	if err := store.Put(ctx, head); err != nil {
		return nil, fmt.Errorf("creating document %s: %w", docID, err)
	}
	return newSession(docID, head, store, rw, bus, opts...), nil
}

func newSession(docID string, head *revision.Revision, store revision.Store, rw rewrite.Rewriter, bus *event.Bus, opts ...Option) *Session {
	s := &Session{
		docID:    docID,
		store:    store,
		rewriter: rw,
		bus:      bus,
		head:     head,
		liveText: head.Content,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg.defaults()
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.checkpoint = newDebouncer(s.cfg.CheckpointDebounce, s.flushCheckpoint)
	return s
}

// DocumentID returns the document this session edits.
func (s *Session) DocumentID() string {
	return s.docID
}

// Head returns the current authoritative revision.
func (s *Session) Head() *revision.Revision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// Text returns the live text, including edits not yet checkpointed.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveText
}

// Edit replaces the live text and arms the checkpoint timer. It fails with
// ErrTransactionOpen while a transaction is staged: the base text must not
// drift under a running batch, so documents are read-only during review.
func (s *Session) Edit(content string) error {
	s.mu.Lock()
	if s.tx != nil {
		s.mu.Unlock()
		return ErrTransactionOpen
	}
	s.liveText = content
	s.mu.Unlock()

	s.checkpoint.Call()
	return nil
}

// flushCheckpoint persists the live text as a new revision. Queued requests
// are left in place; drift against the new text is detected and reported when
// the queue is next prepared for dispatch.
func (s *Session) flushCheckpoint() {
	ctx := context.Background()

	s.mu.Lock()
	if s.tx != nil || s.liveText == s.head.Content {
		s.mu.Unlock()
		return
	}
	rev := revision.New(s.docID, s.head.Seq+1, s.liveText)
	if err := s.store.Put(ctx, rev); err != nil {
		s.mu.Unlock()
		s.logger.Error("checkpoint failed", "document", s.docID, "error", err)
		return
	}
	s.head = rev
	s.mu.Unlock()

	s.logger.Debug("checkpoint created", "document", s.docID, "seq", rev.Seq)
	s.bus.Publish(ctx, event.TopicCheckpointCreated, event.CheckpointCreated{
		DocumentID: s.docID,
		Seq:        rev.Seq,
	})
}

// Mark queues a span-replace request for [start, end) with the instruction.
func (s *Session) Mark(start, end int, instruction string) (*patch.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if start < 0 || start > end || end > len(s.liveText) {
		return nil, patch.ErrInvalidSpan
	}
	req := patch.NewSpanReplace(start, end, s.liveText[start:end], instruction)
	if err := s.ensureQueueLocked().Add(req); err != nil {
		return nil, err
	}
	return req, nil
}

// MarkAsset queues an asset-insert request at offset.
func (s *Session) MarkAsset(offset int, description string) (*patch.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := patch.NewAssetInsert(offset, description)
	if err := s.ensureQueueLocked().Add(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Unmark removes a queued request before dispatch.
func (s *Session) Unmark(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil {
		return patch.ErrUnknownRequest
	}
	return s.queue.Remove(id)
}

// Requests returns the queued requests in ascending offset order.
func (s *Session) Requests() []*patch.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil {
		return nil
	}
	return s.queue.Requests()
}

// Groups returns queued request ids grouped by span proximity.
func (s *Session) Groups() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil {
		return nil
	}
	return s.queue.GroupByProximity(s.cfg.ProximityThreshold)
}

func (s *Session) ensureQueueLocked() *patch.Queue {
	if s.queue == nil {
		s.queue = patch.NewQueue(s.liveText)
	} else if s.queue.BaseText() != s.liveText {
		// New marks validate against what the author currently sees.
		s.queue.Rebase(s.liveText)
	}
	return s.queue
}

// Propose stages the queued requests as a transaction against the head
// revision. Any pending checkpoint is flushed first so the batch addresses
// authoritative text. Drifted requests are excluded and reported; the caller
// decides whether to re-mark them. While the returned transaction is open,
// edits and further proposals fail with ErrTransactionOpen.
func (s *Session) Propose(ctx context.Context) (*Transaction, []*patch.StaleError, error) {
	s.checkpoint.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return nil, nil, ErrTransactionOpen
	}
	if s.queue == nil || s.queue.Len() == 0 {
		return nil, nil, ErrNoRequests
	}

	batch, stale := s.queue.PrepareBatch(s.head.Content)
	s.queue = nil
	if len(batch.Requests) == 0 {
		return nil, stale, ErrNoRequests
	}

	s.checkpoint.Suspend()

	runOpts := []reconcile.RunnerOption{
		reconcile.WithConfig(s.cfg.Reconcile),
		reconcile.WithLogger(s.logger),
	}
	if s.assetGen != nil && s.assets != nil {
		runOpts = append(runOpts, reconcile.WithAssets(s.assetGen, s.assets))
	}

	tx := &Transaction{
		session: s,
		base:    s.head,
		runner:  reconcile.NewRunner(batch, s.rewriter, s.bus, runOpts...),
	}
	s.tx = tx

	s.logger.Info("transaction opened",
		"document", s.docID,
		"base_seq", s.head.Seq,
		"requests", len(batch.Requests))
	return tx, stale, nil
}

// Transaction returns the currently staged transaction, or ErrNoTransaction
// when none is open.
func (s *Session) Transaction() (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return nil, ErrNoTransaction
	}
	return s.tx, nil
}

// Suggest runs a critique pass over the live text when the configured
// rewriter supports it. The validated list is published and returned; a
// malformed provider response is an upstream error, never silent fallback.
func (s *Session) Suggest(ctx context.Context) ([]rewrite.Suggestion, error) {
	suggester, ok := s.rewriter.(rewrite.Suggester)
	if !ok {
		return nil, fmt.Errorf("rewriter does not support suggestions")
	}

	suggestions, err := suggester.Suggest(ctx, s.Text())
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, event.TopicSuggestionsReady, event.SuggestionsReady{
		DocumentID: s.docID,
		Count:      len(suggestions),
	})
	return suggestions, nil
}

// Close cancels pending checkpoints. An open transaction stays open; callers
// should resolve it first.
func (s *Session) Close() {
	s.checkpoint.Cancel()
}

// closeTransaction clears the open transaction and resumes checkpointing.
func (s *Session) closeTransaction(tx *Transaction) {
	s.mu.Lock()
	if s.tx == tx {
		s.tx = nil
	}
	s.mu.Unlock()
	s.checkpoint.Resume()
}
