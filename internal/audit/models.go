package audit

import "time"

// Event is an immutable, append-only audit record of a signaling action.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit is best-effort; do not block signaling flows on audit failures.
// - Audit is not signaling state: nothing in the call lifecycle reads it back.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	// ActorUserID is the verified identity that caused the event.
	ActorUserID string `json:"actor_user_id,omitempty"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ip_address,omitempty"`

	CallID string `json:"call_id"`

	Message string `json:"message,omitempty"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventTypeCallCreated      EventType = "call_created"
	EventTypeCallEnded        EventType = "call_ended"
	EventTypeCredentialIssued EventType = "credential_issued"
)
