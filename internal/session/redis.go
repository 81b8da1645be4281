package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
)

const redisKeyPrefix = "campusbot:conv:"

// RedisStore keeps each conversation as a JSON string with a TTL.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

// RedisOptions returns client options for addr with the pool settings used in production.
func RedisOptions(addr, password string, db int) *redis.Options {
	return &redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// NewRedisStore takes ownership of client.
func NewRedisStore(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, metrics: m}
}

func redisKey(chatID string) string {
	return redisKeyPrefix + chatID
}

func (s *RedisStore) Load(ctx context.Context, chatID string) (conv *Conversation, err error) {
	defer func(start time.Time) { observe(s.metrics, StoreRedis, "load", start, err) }(time.Now())

	data, err := s.client.Get(ctx, redisKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) Save(ctx context.Context, conv *Conversation) (err error) {
	defer func(start time.Time) { observe(s.metrics, StoreRedis, "save", start, err) }(time.Now())

	if conv == nil || conv.ChatID == "" {
		return fmt.Errorf("save conversation: %w", domerrors.ErrInvalidInput)
	}
	conv.ExpiresAt = time.Now().Add(s.ttl)
	data, err := encode(conv)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(conv.ChatID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, chatID string) (err error) {
	defer func(start time.Time) { observe(s.metrics, StoreRedis, "delete", start, err) }(time.Now())

	if err := s.client.Del(ctx, redisKey(chatID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
