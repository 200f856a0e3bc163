package revision

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store keyed by document id.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]*Revision // ascending Seq
}

// NewMemoryStore creates an empty in-memory revision store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]*Revision)}
}

// Head returns the current head revision of a document.
func (s *MemoryStore) Head(ctx context.Context, documentID string) (*Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revs := s.docs[documentID]
	if len(revs) == 0 {
		return nil, ErrNotFound
	}
	return revs[len(revs)-1], nil
}

// Put stores a revision as the new document head.
func (s *MemoryStore) Put(ctx context.Context, rev *Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	revs := s.docs[rev.DocumentID]
	var head int64
	if len(revs) > 0 {
		head = revs[len(revs)-1].Seq
	}
	if rev.Seq != head+1 {
		return ErrSequenceConflict
	}

	s.docs[rev.DocumentID] = append(revs, rev)
	return nil
}

// List returns all revisions of a document ordered by ascending Seq.
func (s *MemoryStore) List(ctx context.Context, documentID string) ([]*Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	revs := s.docs[documentID]
	if len(revs) == 0 {
		return nil, ErrNotFound
	}

	out := make([]*Revision, len(revs))
	copy(out, revs)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}
