package session

import (
	"context"
	"sync"

	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/reconcile"
	"github.com/dshills/redline/internal/revision"
)

// Transaction is one staged patch batch awaiting caller resolution. It is
// created by Session.Propose, driven by Run, and must be resolved exactly
// once with Accept or Discard. All methods are safe for concurrent use;
// Discard may be called from another goroutine while Run streams.
type Transaction struct {
	session *Session
	base    *revision.Revision
	runner  *reconcile.Runner

	mu        sync.Mutex
	cancelRun context.CancelFunc
	candidate string
	completed bool
	resolved  bool
}

// Base returns the revision the batch was addressed against.
func (t *Transaction) Base() *revision.Revision {
	return t.base
}

// State returns the underlying batch state.
func (t *Transaction) State() reconcile.BatchState {
	return t.runner.State()
}

// Candidate returns the completed candidate text, valid once Run succeeded.
func (t *Transaction) Candidate() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.candidate, t.completed
}

// Run executes the batch and stores the candidate text. The document is not
// modified; the candidate waits for Accept. On failure the batch is fully
// rolled back and the transaction can only be discarded.
func (t *Transaction) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	if t.resolved {
		t.mu.Unlock()
		cancel()
		return ErrResolved
	}
	t.cancelRun = cancel
	t.mu.Unlock()
	defer cancel()

	candidate, err := t.runner.Run(runCtx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.candidate = candidate
	t.completed = true
	t.mu.Unlock()
	return nil
}

// Accept commits the candidate as the document's next revision and closes
// the transaction. Fails with ErrNoCandidate before the batch completed and
// ErrResolved after any prior Accept or Discard.
func (t *Transaction) Accept(ctx context.Context) (*revision.Revision, error) {
	t.mu.Lock()
	if t.resolved {
		t.mu.Unlock()
		return nil, ErrResolved
	}
	if !t.completed {
		t.mu.Unlock()
		return nil, ErrNoCandidate
	}
	// Claim resolution before the store write; a concurrent Discard must
	// observe ErrResolved for the whole write. Reopened only if the write
	// fails.
	t.resolved = true
	candidate := t.candidate
	t.mu.Unlock()

	s := t.session
	rev := revision.New(s.docID, t.base.Seq+1, candidate)
	if err := s.store.Put(ctx, rev); err != nil {
		t.mu.Lock()
		t.resolved = false
		t.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.head = rev
	s.liveText = candidate
	s.mu.Unlock()

	s.closeTransaction(t)

	s.logger.Info("transaction accepted", "document", s.docID, "seq", rev.Seq)
	s.bus.Publish(ctx, event.TopicTransactionAccepted, event.TransactionAccepted{
		DocumentID: s.docID,
		Revision:   rev,
	})
	return rev, nil
}

// Discard drops the candidate and all accumulated state, cancelling any
// in-flight stream. The document's head revision is untouched. Fails with
// ErrResolved if the transaction was already accepted or discarded.
func (t *Transaction) Discard(ctx context.Context) error {
	t.mu.Lock()
	if t.resolved {
		t.mu.Unlock()
		return ErrResolved
	}
	t.resolved = true
	t.candidate = ""
	t.completed = false
	cancel := t.cancelRun
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s := t.session
	s.closeTransaction(t)

	s.logger.Info("transaction discarded", "document", s.docID)
	s.bus.Publish(ctx, event.TopicTransactionDiscarded, event.TransactionDiscarded{
		DocumentID: s.docID,
	})
	return nil
}
