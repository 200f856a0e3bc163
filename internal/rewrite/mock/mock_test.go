package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/redline/internal/rewrite"
)

func TestScriptedRewriter(t *testing.T) {
	r := NewRewriter(
		WithReplacement("AAAA", "XX"),
		WithChunkSize(1),
	)

	stream, err := r.Rewrite(context.Background(), rewrite.Prompt{Selected: "AAAA"})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	var frags []string
	for {
		frag, done, err := stream.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if done {
			break
		}
		frags = append(frags, frag)
	}

	if len(frags) != 2 || frags[0] != "X" || frags[1] != "X" {
		t.Errorf("fragments = %v, want [X X]", frags)
	}
}

func TestRewriterEchoesUnscripted(t *testing.T) {
	r := NewRewriter()

	stream, err := r.Rewrite(context.Background(), rewrite.Prompt{Selected: "hello"})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err := rewrite.Collect(stream)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got != "HELLO" {
		t.Errorf("got %q", got)
	}
}

func TestRewriterCancellation(t *testing.T) {
	r := NewRewriter(WithChunkSize(1))

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := r.Rewrite(ctx, rewrite.Prompt{Selected: "abc"})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if _, _, err := stream.Next(); err != nil {
		t.Fatalf("first next: %v", err)
	}
	cancel()
	if _, _, err := stream.Next(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFlakyFailsAtDispatch(t *testing.T) {
	injected := rewrite.Upstream("mock", errors.New("boom"))
	f := NewFlaky(NewRewriter(), 2, injected)

	if _, err := f.Rewrite(context.Background(), rewrite.Prompt{Selected: "a"}); err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}
	if _, err := f.Rewrite(context.Background(), rewrite.Prompt{Selected: "b"}); !errors.Is(err, rewrite.ErrUpstream) {
		t.Errorf("second call should fail upstream, got %v", err)
	}
}

func TestFlakyFailsMidStream(t *testing.T) {
	injected := rewrite.Upstream("mock", errors.New("boom"))
	f := NewFlaky(NewRewriter(WithChunkSize(1)), 1, injected)
	f.FailAfterFragments = 2

	stream, err := f.Rewrite(context.Background(), rewrite.Prompt{Selected: "abcdef"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	emitted := 0
	for {
		_, done, err := stream.Next()
		if err != nil {
			if emitted != 2 {
				t.Errorf("failed after %d fragments, want 2", emitted)
			}
			if !errors.Is(err, rewrite.ErrUpstream) {
				t.Errorf("expected upstream error, got %v", err)
			}
			return
		}
		if done {
			t.Fatal("stream completed without failing")
		}
		emitted++
	}
}

func TestAssetDoubles(t *testing.T) {
	gen := &AssetGenerator{}
	store := &AssetStore{}
	ctx := context.Background()

	data, ct, err := gen.GenerateAsset(ctx, rewrite.AssetPrompt{Prompt: "a fox"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ref, err := store.Save(ctx, data, ct)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if ref != "assets/asset-1.png" {
		t.Errorf("ref = %q", ref)
	}
}
