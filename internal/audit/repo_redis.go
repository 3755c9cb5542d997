package audit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStream = "signaling:audit"
	// defaultMaxLen caps the stream approximately; old entries are trimmed by Redis.
	defaultMaxLen = 100000
)

// RedisRepo appends events to a capped Redis stream.
type RedisRepo struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client, stream: defaultStream, maxLen: defaultMaxLen}
}

func (r *RedisRepo) Append(ctx context.Context, e Event) error {
	if r.client == nil {
		return errors.New("audit: redis client is nil")
	}
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: streamValues(e),
	}).Err()
}

func streamValues(e Event) map[string]any {
	return map[string]any{
		"id":            e.ID,
		"type":          string(e.Type),
		"actor_user_id": e.ActorUserID,
		"ip_address":    e.IPAddress,
		"call_id":       e.CallID,
		"message":       e.Message,
		"metadata":      e.Metadata,
		"created_at":    e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
