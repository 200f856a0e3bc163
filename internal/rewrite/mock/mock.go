// Package mock provides in-process rewrite collaborators for tests and dry
// runs. The scripted rewriter is deterministic; the flaky wrapper injects
// failures at chosen points to exercise abort paths.
package mock

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/dshills/redline/internal/rewrite"
)

// Rewriter is a scripted rewrite collaborator. Replacements are looked up by
// the prompt's selected text; unscripted spans echo an uppercased selection so
// a dry run still visibly changes the document. Safe for concurrent use.
type Rewriter struct {
	mu           sync.Mutex
	replacements map[string]string
	chunkSize    int
	calls        []rewrite.Prompt
}

// Option configures the mock rewriter.
type Option func(*Rewriter)

// WithReplacement scripts the replacement returned for a selected text.
func WithReplacement(selected, replacement string) Option {
	return func(r *Rewriter) {
		r.replacements[selected] = replacement
	}
}

// WithChunkSize sets the fragment size used when streaming replacements.
// Smaller chunks exercise more Next calls; zero or negative means one chunk.
func WithChunkSize(n int) Option {
	return func(r *Rewriter) {
		r.chunkSize = n
	}
}

// NewRewriter creates a scripted rewriter.
func NewRewriter(opts ...Option) *Rewriter {
	r := &Rewriter{replacements: make(map[string]string)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Calls returns the prompts received so far, in order.
func (r *Rewriter) Calls() []rewrite.Prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]rewrite.Prompt, len(r.calls))
	copy(out, r.calls)
	return out
}

// Rewrite returns a stream over the scripted replacement for p.Selected.
func (r *Rewriter) Rewrite(ctx context.Context, p rewrite.Prompt) (rewrite.Stream, error) {
	r.mu.Lock()
	r.calls = append(r.calls, p)
	replacement, ok := r.replacements[p.Selected]
	chunk := r.chunkSize
	r.mu.Unlock()

	if !ok {
		replacement = strings.ToUpper(p.Selected)
	}
	if chunk <= 0 {
		chunk = len(replacement)
	}

	return &scriptedStream{ctx: ctx, text: replacement, chunk: chunk}, nil
}

type scriptedStream struct {
	ctx   context.Context
	text  string
	chunk int
	pos   int
}

func (s *scriptedStream) Next() (string, bool, error) {
	if err := s.ctx.Err(); err != nil {
		return "", false, err
	}
	if s.pos >= len(s.text) {
		return "", true, nil
	}
	end := s.pos + s.chunk
	if end > len(s.text) {
		end = len(s.text)
	}
	frag := s.text[s.pos:end]
	s.pos = end
	return frag, false, nil
}

func (s *scriptedStream) Close() error { return nil }

// Flaky wraps a Rewriter and fails a configured call, either at dispatch or
// after emitting a number of fragments mid-stream.
type Flaky struct {
	inner rewrite.Rewriter

	// FailCall is the 1-based call number to fail. Zero disables failure.
	FailCall int

	// FailAfterFragments fails mid-stream after this many fragments when
	// positive; otherwise the failing call errors at dispatch.
	FailAfterFragments int

	// Err is the injected failure; defaults to a generic upstream error.
	Err error

	mu    sync.Mutex
	calls int
}

// NewFlaky wraps inner so the nth call fails with err.
func NewFlaky(inner rewrite.Rewriter, failCall int, err error) *Flaky {
	return &Flaky{inner: inner, FailCall: failCall, Err: err}
}

// Rewrite delegates to the wrapped rewriter, injecting the scripted failure.
func (f *Flaky) Rewrite(ctx context.Context, p rewrite.Prompt) (rewrite.Stream, error) {
	f.mu.Lock()
	f.calls++
	failing := f.FailCall != 0 && f.calls == f.FailCall
	f.mu.Unlock()

	err := f.Err
	if err == nil {
		err = rewrite.Upstream("mock", nil)
	}

	if failing && f.FailAfterFragments <= 0 {
		return nil, err
	}

	stream, serr := f.inner.Rewrite(ctx, p)
	if serr != nil {
		return nil, serr
	}
	if !failing {
		return stream, nil
	}
	return &failingStream{inner: stream, after: f.FailAfterFragments, err: err}, nil
}

type failingStream struct {
	inner   rewrite.Stream
	after   int
	emitted int
	err     error
}

func (s *failingStream) Next() (string, bool, error) {
	if s.emitted >= s.after {
		return "", false, s.err
	}
	frag, done, err := s.inner.Next()
	if err != nil || done {
		return frag, done, err
	}
	s.emitted++
	return frag, false, nil
}

func (s *failingStream) Close() error { return s.inner.Close() }

// AssetGenerator is a scripted asset collaborator returning a fixed payload.
type AssetGenerator struct {
	Data        []byte
	ContentType string
	Err         error
}

// GenerateAsset returns the scripted payload.
func (g *AssetGenerator) GenerateAsset(ctx context.Context, p rewrite.AssetPrompt) ([]byte, string, error) {
	if g.Err != nil {
		return nil, "", g.Err
	}
	data := g.Data
	if data == nil {
		data = []byte("png-bytes")
	}
	ct := g.ContentType
	if ct == "" {
		ct = "image/png"
	}
	return data, ct, nil
}

// AssetStore records saved payloads and returns deterministic references.
type AssetStore struct {
	mu    sync.Mutex
	Saved [][]byte
	Refs  []string
}

// Save stores the payload and returns "assets/asset-N.png" style references.
func (s *AssetStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ext := "bin"
	if i := strings.IndexByte(contentType, '/'); i >= 0 {
		ext = contentType[i+1:]
	}
	ref := "assets/asset-" + strconv.Itoa(len(s.Saved)+1) + "." + ext
	s.Saved = append(s.Saved, data)
	s.Refs = append(s.Refs, ref)
	return ref, nil
}
