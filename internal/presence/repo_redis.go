package presence

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKey = "presence:last_seen"

	// MinRedisRetention is the shortest time an idle member stays in the set.
	MinRedisRetention = 24 * time.Hour
)

// RedisRetention returns the trim horizon for the sorted set. It is never
// shorter than window, so trimming cannot drop a member that IsReachable or
// ListReachable would still count. PolicyAll lists everyone, so nothing is trimmed.
func RedisRetention(window time.Duration, policy Policy) time.Duration {
	if policy == PolicyAll {
		return 0
	}
	if window > MinRedisRetention {
		return window
	}
	return MinRedisRetention
}

// RedisRepo stores presence in a single sorted set: member = user id,
// score = last activity in unix milliseconds.
type RedisRepo struct {
	client *redis.Client
	key    string

	// retention drops members older than this on every write; zero keeps everything.
	retention time.Duration
}

func NewRedisRepo(client *redis.Client, retention time.Duration) *RedisRepo {
	return &RedisRepo{client: client, key: defaultRedisKey, retention: retention}
}

func (r *RedisRepo) Upsert(ctx context.Context, userID string, at time.Time) error {
	if r.client == nil {
		return errors.New("presence: redis client is nil")
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, r.key, redis.Z{Score: float64(at.UnixMilli()), Member: userID})
		if maxScore, ok := r.trimBefore(at); ok {
			p.ZRemRangeByScore(ctx, r.key, "-inf", maxScore)
		}
		return nil
	})
	return err
}

func (r *RedisRepo) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	if r.client == nil {
		return time.Time{}, false, errors.New("presence: redis client is nil")
	}
	score, err := r.client.ZScore(ctx, r.key, userID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return scoreTime(score), true, nil
}

func (r *RedisRepo) ListSince(ctx context.Context, since time.Time) ([]Record, error) {
	if r.client == nil {
		return nil, errors.New("presence: redis client is nil")
	}
	zs, err := r.client.ZRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{
		Min: minScore(since),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, Record{UserID: id, LastSeenAt: scoreTime(z.Score)})
	}
	return out, nil
}

// trimBefore returns the exclusive upper score bound of members to drop on a
// write at at, or false when retention is disabled.
func (r *RedisRepo) trimBefore(at time.Time) (string, bool) {
	if r.retention <= 0 {
		return "", false
	}
	return "(" + strconv.FormatInt(at.Add(-r.retention).UnixMilli(), 10), true
}

func minScore(since time.Time) string {
	if since.IsZero() {
		return "-inf"
	}
	return strconv.FormatInt(since.UnixMilli(), 10)
}

func scoreTime(score float64) time.Time {
	return time.UnixMilli(int64(score)).UTC()
}
