package notify

import (
	"context"
	"sync"
)

const memoryBuffer = 8

// MemoryNotifier is an in-process Notifier for tests and single-instance runs.
type MemoryNotifier struct {
	mu   sync.Mutex
	subs map[string]map[*memorySub]struct{}
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: map[string]map[*memorySub]struct{}{}}
}

func (n *MemoryNotifier) Publish(ctx context.Context, receiverID, sessionID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for s := range n.subs[channelName(receiverID)] {
		select {
		case s.ch <- sessionID:
		default:
			// Slow subscriber; it will pick the call up on its next read.
		}
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(ctx context.Context, receiverID string) (Subscription, error) {
	s := &memorySub{
		owner: n,
		key:   channelName(receiverID),
		ch:    make(chan string, memoryBuffer),
		done:  make(chan struct{}),
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[s.key] == nil {
		n.subs[s.key] = map[*memorySub]struct{}{}
	}
	n.subs[s.key][s] = struct{}{}
	return s, nil
}

// Subscribers reports the number of live subscriptions for receiverID.
func (n *MemoryNotifier) Subscribers(receiverID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[channelName(receiverID)])
}

type memorySub struct {
	owner *MemoryNotifier
	key   string
	ch    chan string
	done  chan struct{}
	once  sync.Once
}

func (s *memorySub) Next(ctx context.Context) (string, error) {
	select {
	case id := <-s.ch:
		return id, nil
	case <-s.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.owner.mu.Lock()
		delete(s.owner.subs[s.key], s)
		if len(s.owner.subs[s.key]) == 0 {
			delete(s.owner.subs, s.key)
		}
		s.owner.mu.Unlock()
		close(s.done)
	})
	return nil
}
