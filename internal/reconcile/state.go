package reconcile

// RequestState is the lifecycle state of one request within a batch.
type RequestState uint8

const (
	// StatePending means the request has not been dispatched yet.
	StatePending RequestState = iota

	// StateDispatched means the rewrite call was issued but no fragment
	// has arrived.
	StateDispatched

	// StateStreaming means at least one fragment has arrived.
	StateStreaming

	// StateResolved means the stream completed and the replacement was
	// spliced into the working text.
	StateResolved

	// StateFailed means the stream failed; terminal.
	StateFailed
)

// String returns the state name.
func (s RequestState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDispatched:
		return "dispatched"
	case StateStreaming:
		return "streaming"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BatchState is the lifecycle state of a whole batch.
type BatchState uint8

const (
	// BatchIdle means Run has not been called.
	BatchIdle BatchState = iota

	// BatchRunning means requests are being processed.
	BatchRunning

	// BatchCompleted means every request resolved and candidate text exists.
	BatchCompleted

	// BatchAborted means a request failed and the batch was abandoned.
	BatchAborted
)

// String returns the state name.
func (s BatchState) String() string {
	switch s {
	case BatchIdle:
		return "idle"
	case BatchRunning:
		return "running"
	case BatchCompleted:
		return "completed"
	case BatchAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
