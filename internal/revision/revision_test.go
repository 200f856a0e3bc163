package revision

import (
	"context"
	"errors"
	"testing"
)

func TestComputeMetadata(t *testing.T) {
	meta := ComputeMetadata("Hello, world! This has five words.")

	if meta.WordCount != 6 {
		t.Errorf("word count = %d, want 6", meta.WordCount)
	}
	if meta.CharCount != 34 {
		t.Errorf("char count = %d, want 34", meta.CharCount)
	}
	if meta.AssetCount != 0 {
		t.Errorf("asset count = %d, want 0", meta.AssetCount)
	}
}

func TestComputeMetadataAssets(t *testing.T) {
	meta := ComputeMetadata("intro\n\n![fig](assets/a.png)\n\nbody\n\n![fig2](assets/b.png)\n")

	if meta.AssetCount != 2 {
		t.Errorf("asset count = %d, want 2", meta.AssetCount)
	}
}

func TestComputeMetadataEmpty(t *testing.T) {
	meta := ComputeMetadata("")

	if meta.WordCount != 0 || meta.CharCount != 0 || meta.AssetCount != 0 {
		t.Errorf("empty content produced counts: %+v", meta)
	}
}

func TestMemoryStorePutHead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Head(ctx, "doc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	r1 := New("doc", 1, "first")
	if err := store.Put(ctx, r1); err != nil {
		t.Fatalf("put r1: %v", err)
	}

	head, err := store.Head(ctx, "doc")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Seq != 1 || head.Content != "first" {
		t.Errorf("unexpected head: %+v", head)
	}
}

func TestMemoryStoreSequenceConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, New("doc", 1, "a")); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Skipping a sequence number is rejected.
	if err := store.Put(ctx, New("doc", 3, "c")); !errors.Is(err, ErrSequenceConflict) {
		t.Errorf("expected ErrSequenceConflict, got %v", err)
	}

	// First revision of a document must be 1.
	if err := store.Put(ctx, New("other", 5, "x")); !errors.Is(err, ErrSequenceConflict) {
		t.Errorf("expected ErrSequenceConflict for fresh doc, got %v", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i, content := range []string{"a", "b", "c"} {
		if err := store.Put(ctx, New("doc", int64(i+1), content)); err != nil {
			t.Fatalf("put %d: %v", i+1, err)
		}
	}

	revs, err := store.List(ctx, "doc")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(revs) != 3 {
		t.Fatalf("got %d revisions, want 3", len(revs))
	}
	for i, rev := range revs {
		if rev.Seq != int64(i+1) {
			t.Errorf("revision %d has seq %d", i, rev.Seq)
		}
	}
}
