package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryNotifier_DeliversToReceiverOnly(t *testing.T) {
	n := NewMemoryNotifier()
	ctx := context.Background()

	subB, _ := n.Subscribe(ctx, "b")
	defer subB.Close()
	subC, _ := n.Subscribe(ctx, "c")
	defer subC.Close()

	if err := n.Publish(ctx, "b", "call-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := subB.Next(ctx)
	if err != nil || got != "call-1" {
		t.Fatalf("expected call-1, got %q %v", got, err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := subC.Next(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected no delivery to c, got %v", err)
	}
}

func TestMemoryNotifier_CloseUnregisters(t *testing.T) {
	n := NewMemoryNotifier()
	ctx := context.Background()

	sub, _ := n.Subscribe(ctx, "b")
	if n.Subscribers("b") != 1 {
		t.Fatalf("expected one subscriber")
	}
	_ = sub.Close()
	_ = sub.Close()
	if n.Subscribers("b") != 0 {
		t.Fatalf("expected subscriber removed")
	}
	if _, err := sub.Next(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := n.Publish(ctx, "b", "call-2"); err != nil {
		t.Fatalf("publish without subscribers must not fail: %v", err)
	}
}

func TestChannelName(t *testing.T) {
	if channelName("u1") != "calls:incoming:u1" {
		t.Fatalf("unexpected channel name %q", channelName("u1"))
	}
}
