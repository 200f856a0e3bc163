package event

import (
	"github.com/dshills/redline/internal/event/topic"
	"github.com/dshills/redline/internal/revision"
)

// Patch engine event topics.
const (
	// TopicRequestDispatched is published when a request is sent to the
	// rewrite collaborator.
	TopicRequestDispatched topic.Topic = "patch.request.dispatched"

	// TopicRequestFragment is published for each streamed replacement fragment.
	TopicRequestFragment topic.Topic = "patch.request.fragment"

	// TopicRequestResolved is published when a request's stream completes.
	TopicRequestResolved topic.Topic = "patch.request.resolved"

	// TopicRequestFailed is published when a request's stream fails.
	TopicRequestFailed topic.Topic = "patch.request.failed"

	// TopicBatchCompleted is published when every request in a batch resolved.
	TopicBatchCompleted topic.Topic = "patch.batch.completed"

	// TopicBatchAborted is published when a batch is abandoned after a failure.
	TopicBatchAborted topic.Topic = "patch.batch.aborted"
)

// Session event topics.
const (
	// TopicTransactionAccepted is published when a candidate becomes the new
	// authoritative revision.
	TopicTransactionAccepted topic.Topic = "session.transaction.accepted"

	// TopicTransactionDiscarded is published when a transaction is dropped.
	TopicTransactionDiscarded topic.Topic = "session.transaction.discarded"

	// TopicCheckpointCreated is published when a debounced edit checkpoint
	// produces a new revision.
	TopicCheckpointCreated topic.Topic = "session.checkpoint.created"

	// TopicSuggestionsReady is published when a suggestion pass yields a
	// validated critique list.
	TopicSuggestionsReady topic.Topic = "session.suggestions.ready"
)

// RequestDispatched is the payload for TopicRequestDispatched.
type RequestDispatched struct {
	RequestID string
}

// RequestFragment is the payload for TopicRequestFragment.
type RequestFragment struct {
	RequestID string
	Text      string
}

// RequestResolved is the payload for TopicRequestResolved.
type RequestResolved struct {
	RequestID string
	FinalText string
}

// RequestFailed is the payload for TopicRequestFailed.
type RequestFailed struct {
	RequestID string
	Err       error
}

// BatchCompleted is the payload for TopicBatchCompleted.
type BatchCompleted struct {
	CandidateText string
}

// BatchAborted is the payload for TopicBatchAborted.
type BatchAborted struct {
	Err error
}

// TransactionAccepted is the payload for TopicTransactionAccepted. Revision
// is the newly authoritative revision, content and metadata included.
type TransactionAccepted struct {
	DocumentID string
	Revision   *revision.Revision
}

// TransactionDiscarded is the payload for TopicTransactionDiscarded.
type TransactionDiscarded struct {
	DocumentID string
}

// CheckpointCreated is the payload for TopicCheckpointCreated.
type CheckpointCreated struct {
	DocumentID string
	Seq        int64
}

// SuggestionsReady is the payload for TopicSuggestionsReady.
type SuggestionsReady struct {
	DocumentID string
	Count      int
}
