package revision

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/rivo/uniseg"
)

// Sentinel errors for revision storage.
var (
	// ErrNotFound is returned when a document has no stored revisions.
	ErrNotFound = errors.New("document not found")

	// ErrSequenceConflict is returned when storing a revision whose sequence
	// number is not exactly one past the document's current head.
	ErrSequenceConflict = errors.New("revision sequence conflict")
)

// Metadata holds counts derived from revision content.
type Metadata struct {
	// WordCount is the number of words, using Unicode word segmentation.
	WordCount int

	// CharCount is the number of grapheme clusters (user-perceived characters).
	CharCount int

	// AssetCount is the number of embedded asset references.
	AssetCount int
}

// Revision is an immutable snapshot of a document's text.
// Fields are exported for storage but must never be modified after creation.
type Revision struct {
	DocumentID string
	Seq        int64
	Content    string
	Meta       Metadata
	CreatedAt  time.Time
}

// New creates the next revision of a document with derived metadata.
// seq must be the previous head's sequence number plus one, or 1 for the
// first revision.
func New(documentID string, seq int64, content string) *Revision {
	return &Revision{
		DocumentID: documentID,
		Seq:        seq,
		Content:    content,
		Meta:       ComputeMetadata(content),
		CreatedAt:  time.Now(),
	}
}

// ComputeMetadata derives word, character, and asset counts from content.
func ComputeMetadata(content string) Metadata {
	return Metadata{
		WordCount:  countWords(content),
		CharCount:  uniseg.GraphemeClusterCount(content),
		AssetCount: strings.Count(content, "!["),
	}
}

// countWords counts Unicode word segments containing at least one
// letter or digit. Whitespace and punctuation runs are not words.
func countWords(s string) int {
	count := 0
	state := -1
	var word string
	for len(s) > 0 {
		word, s, state = uniseg.FirstWordInString(s, state)
		if hasLetterOrDigit(word) {
			count++
		}
	}
	return count
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Store persists revisions keyed by document id.
//
// Implementations must provide atomic single-revision writes; the engine
// requires nothing stronger. Head returns ErrNotFound for unknown documents.
type Store interface {
	// Head returns the current authoritative revision of a document.
	Head(ctx context.Context, documentID string) (*Revision, error)

	// Put stores a revision and makes it the document head. The revision's
	// Seq must be head+1 (or 1 for a new document), else ErrSequenceConflict.
	Put(ctx context.Context, rev *Revision) error

	// List returns all revisions of a document ordered by ascending Seq.
	List(ctx context.Context, documentID string) ([]*Revision, error)
}
