package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is the redis-backed Store. Each flow lives in one hash whose
// TTL is refreshed on writes, so state survives process restarts and can
// be shared between instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the given redis URL (e.g.
// "redis://127.0.0.1:6379/0").
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: invalid redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Ping verifies the connection; called once at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func sessionKey(sid string) string {
	return "calingen:session:" + sid
}

func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	redisKey := sessionKey(sid)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisKey, key, value)
	pipe.Expire(ctx, redisKey, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, sessionKey(sid), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// popScript reads and deletes a hash field in one server-side step, so
// concurrent Pops of the same key hand the value to exactly one caller.
var popScript = redis.NewScript(`
local v = redis.call("HGET", KEYS[1], ARGV[1])
if v then
	redis.call("HDEL", KEYS[1], ARGV[1])
end
return v`)

func (s *RedisStore) Pop(ctx context.Context, sid, key string) (string, bool, error) {
	res, err := popScript.Run(ctx, s.client, []string{sessionKey(sid)}, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	value, ok := res.(string)
	if !ok {
		return "", false, fmt.Errorf("session: unexpected pop reply of type %T", res)
	}
	return value, true, nil
}
