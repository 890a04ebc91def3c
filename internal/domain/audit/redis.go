package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list holding audit entries.
const DefaultRedisKey = "medx:audit_log"

// RedisSink stores entries as JSON in a Redis list, newest at the head.
type RedisSink struct {
	client redis.Cmdable
	key    string
	max    int64
}

// NewRedisSink wraps client. A positive max trims the list to that many
// entries in the same transaction as each push.
func NewRedisSink(client redis.Cmdable, key string, max int64) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{client: client, key: key, max: max}
}

func (s *RedisSink) Append(ctx context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, b)
		if s.max > 0 {
			pipe.LTrim(ctx, s.key, 0, s.max-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("push audit entry: %w", err)
	}
	return nil
}

func (s *RedisSink) List(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
