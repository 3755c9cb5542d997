package notify

import (
	"context"
	"errors"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("notify: subscription closed")

// Notifier fans out "new incoming call" hints per receiver.
//
// Delivery is best-effort: a lost hint only delays discovery until the next
// poll, because the registry stays the source of truth.
type Notifier interface {
	Publish(ctx context.Context, receiverID, sessionID string) error
	Subscribe(ctx context.Context, receiverID string) (Subscription, error)
}

// Subscription yields session ids published for one receiver.
type Subscription interface {
	// Next blocks until a hint arrives or ctx is done.
	Next(ctx context.Context) (sessionID string, err error)
	Close() error
}

func channelName(receiverID string) string {
	return "calls:incoming:" + receiverID
}
