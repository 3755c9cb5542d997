package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes hints over Redis pub/sub so every API instance
// can wake its own long-polling receivers.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, receiverID, sessionID string) error {
	if n.client == nil {
		return errors.New("notify: redis client is nil")
	}
	return n.client.Publish(ctx, channelName(receiverID), sessionID).Err()
}

func (n *RedisNotifier) Subscribe(ctx context.Context, receiverID string) (Subscription, error) {
	if n.client == nil {
		return nil, errors.New("notify: redis client is nil")
	}
	ps := n.client.Subscribe(ctx, channelName(receiverID))
	// Wait for the subscription to be confirmed so no publish after this
	// point is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("notify: subscribe failed: %w", err)
	}
	return &redisSub{ps: ps}, nil
}

type redisSub struct {
	ps *redis.PubSub
}

func (s *redisSub) Next(ctx context.Context) (string, error) {
	msg, err := s.ps.ReceiveMessage(ctx)
	if err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return "", ErrClosed
		}
		return "", err
	}
	return msg.Payload, nil
}

func (s *redisSub) Close() error { return s.ps.Close() }
