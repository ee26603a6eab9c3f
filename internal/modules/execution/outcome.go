package execution

import "time"

// State is the terminal state of one dispatch.
// Every dispatch starts Pending and ends in exactly one other state; there are no retries.
type State string

const (
	StatePending           State = "pending"
	StateSucceeded         State = "succeeded"
	StateRejected          State = "rejected"
	StateTransportFailed   State = "transport_failed"
	StateMalformedResponse State = "malformed_response"
)

// Terminal reports whether the state ends a dispatch
func (s State) Terminal() bool {
	return s != StatePending && s != ""
}

// Outcome is the result of a successful dispatch. Body is the engine's 2xx body, byte for byte.
type Outcome struct {
	State       State
	Body        []byte
	ContentType string
	StatusCode  int
	RequestID   string
	Elapsed     time.Duration
}

// stateForKind maps an engine-side failure to the dispatch state it ends in.
// Failures raised before the engine call never leave Pending.
func stateForKind(kind Kind) State {
	switch kind {
	case KindEngineRejected:
		return StateRejected
	case KindTransportFailure:
		return StateTransportFailed
	case KindMalformedEngineResponse:
		return StateMalformedResponse
	}
	return StatePending
}
