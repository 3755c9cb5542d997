package presence

import "time"

// Record is the last activity seen for one user. At most one live record
// exists per user; writes are last-write-wins.
type Record struct {
	UserID     string    `json:"userId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Policy selects which users ListReachable returns.
type Policy string

const (
	// PolicyRecent returns only users active within the presence window.
	PolicyRecent Policy = "recent"
	// PolicyAll returns every known user regardless of recency.
	PolicyAll Policy = "all"
)

// DefaultWindow is how long after the last activity a user stays reachable.
const DefaultWindow = 5 * time.Minute
