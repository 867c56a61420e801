package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_STARTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation the typed constructors build on.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSessionStarted fires when a profile session is created.
func NewSessionStarted(sessionId, owner, productName string) Event {
	return BaseEvent{
		Type: "SESSION_STARTED",
		Data: map[string]interface{}{
			"session_id": sessionId,
			"owner":      owner,
			"product":    productName,
		},
		OccurredAt: time.Now(),
	}
}

// NewApprovalsFinalized fires when the approval gate passes and the session
// advances to deep research.
func NewApprovalsFinalized(sessionId, actor string, approved int) Event {
	return BaseEvent{
		Type: "APPROVALS_FINALIZED",
		Data: map[string]interface{}{
			"session_id": sessionId,
			"actor":      actor,
			"approved":   approved,
		},
		OccurredAt: time.Now(),
	}
}

// NewResearchCompleted fires when a deep-research job reaches a terminal state.
func NewResearchCompleted(sessionId, jobId, status string) Event {
	return BaseEvent{
		Type: "RESEARCH_COMPLETED",
		Data: map[string]interface{}{
			"session_id": sessionId,
			"job_id":     jobId,
			"status":     status,
		},
		OccurredAt: time.Now(),
	}
}
