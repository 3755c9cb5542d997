package calls

import "time"

// Session is one caller/receiver pairing and its lifecycle.
//
// Invariants:
// - CallerID != ReceiverID.
// - ID is immutable and doubles as the media room name.
// - Status only moves pending -> ended; ended is terminal and sets EndedAt.
// - Sessions are never deleted; ended rows are call history.
//
// There is no persisted "active" state: joining is inferred from credential
// issuance, not observed.
type Session struct {
	ID         string     `json:"id" db:"id"`
	CallerID   string     `json:"callerId" db:"caller_id"`
	ReceiverID string     `json:"receiverId" db:"receiver_id"`
	Status     Status     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	EndedAt    *time.Time `json:"endedAt,omitempty" db:"ended_at"`
}

// IsParticipant reports whether userID is the caller or the receiver.
func (s Session) IsParticipant(userID string) bool {
	return userID != "" && (userID == s.CallerID || userID == s.ReceiverID)
}

func (s Session) IsEnded() bool { return s.Status == StatusEnded }

type Status string

const (
	StatusPending Status = "pending"
	StatusEnded   Status = "ended"
)

func ParseStatus(v string) (Status, bool) {
	switch Status(v) {
	case StatusPending:
		return StatusPending, true
	case StatusEnded:
		return StatusEnded, true
	default:
		return "", false
	}
}
