package seen

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL is used when no window is configured, so keys never live forever.
const DefaultRedisTTL = 7 * 24 * time.Hour

// RedisStore keeps one expiring key per alert id.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the Redis server at rawURL and checks it with PING.
func NewRedisStore(ctx context.Context, rawURL, prefix string, ttl time.Duration) (*RedisStore, error) {
	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(options)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisStoreWithClient(client, prefix, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// MarkSeen implements Store with SET NX, which is atomic on the server.
func (s *RedisStore) MarkSeen(ctx context.Context, id int64) (bool, error) {
	added, err := s.client.SetNX(ctx, s.key(id), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark alert %d seen: %w", id, err)
	}

	return added, nil
}

// Contains implements Store.
func (s *RedisStore) Contains(ctx context.Context, id int64) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check alert %d: %w", id, err)
	}

	return n > 0, nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// key builds the Redis key of an alert id.
func (s *RedisStore) key(id int64) string {
	return s.prefix + ":seen:" + strconv.FormatInt(id, 10)
}
