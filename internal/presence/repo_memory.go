package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory presence repository useful for tests and local runs.
type MemoryRepo struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{lastSeen: map[string]time.Time{}} }

func (r *MemoryRepo) Upsert(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen[userID] = at
	return nil
}

func (r *MemoryRepo) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.lastSeen[userID]
	return at, ok, nil
}

func (r *MemoryRepo) ListSince(ctx context.Context, since time.Time) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, len(r.lastSeen))
	for id, at := range r.lastSeen {
		if !since.IsZero() && at.Before(since) {
			continue
		}
		out = append(out, Record{UserID: id, LastSeenAt: at})
	}
	return out, nil
}
