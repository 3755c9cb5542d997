package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps the signaling trail in process, indexed by call.
// Tests use it to assert which events a call produced.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
	byCall map[string][]int
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byCall: map[string][]int{}} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCall[e.CallID] = append(r.byCall[e.CallID], len(r.events))
	r.events = append(r.events, e)
	return nil
}

// Events returns the whole trail in append order.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByCall returns the event types recorded for callID, oldest first.
func (r *MemoryRepo) ByCall(callID string) []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.byCall[callID]
	out := make([]EventType, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.events[i].Type)
	}
	return out
}
