package patch

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the two request forms.
type Kind uint8

const (
	// KindSpanReplace rewrites the text in [Start, End).
	KindSpanReplace Kind = iota

	// KindAssetInsert inserts a generated asset reference at Start.
	KindAssetInsert
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSpanReplace:
		return "span-replace"
	case KindAssetInsert:
		return "asset-insert"
	default:
		return "unknown"
	}
}

// Status is the lifecycle state of a request.
type Status uint8

const (
	StatusPending Status = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request is one requested edit against a base revision.
//
// For KindSpanReplace, [Start, End) is the addressed span and Selected must
// equal baseText[Start:End] at creation time; the copy is what drift checks
// compare against. For KindAssetInsert, Start is the insertion offset, End
// equals Start, and Instruction describes the asset to generate.
type Request struct {
	ID          string
	Kind        Kind
	Start       int
	End         int
	Selected    string
	Instruction string
	Status      Status
	CreatedAt   time.Time
}

// NewSpanReplace creates a pending span-replace request.
// The caller is responsible for having extracted selected from the base text.
func NewSpanReplace(start, end int, selected, instruction string) *Request {
	return &Request{
		ID:          uuid.NewString(),
		Kind:        KindSpanReplace,
		Start:       start,
		End:         end,
		Selected:    selected,
		Instruction: instruction,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
}

// NewAssetInsert creates a pending asset-insert request at offset.
func NewAssetInsert(offset int, description string) *Request {
	return &Request{
		ID:          uuid.NewString(),
		Kind:        KindAssetInsert,
		Start:       offset,
		End:         offset,
		Instruction: description,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
}

// overlaps reports whether two half-open spans intersect.
// Touching spans ([0,4) and [4,8)) do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
