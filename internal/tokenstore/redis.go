package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clinicdesk/internal/config"
)

// RedisStore keeps the flags in redis, for kiosks that share one client identity.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// DialRedis connects and pings before handing back the client.
func DialRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	return s.set(ctx, s.client, KeyToken, token)
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	return s.get(ctx, KeyToken)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(KeyToken), s.key(KeyUserID)).Err(); err != nil {
		return fmt.Errorf("clear flags: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveUserID(ctx context.Context, id string) error {
	return s.set(ctx, s.client, KeyUserID, id)
}

func (s *RedisStore) LoadUserID(ctx context.Context) (string, error) {
	return s.get(ctx, KeyUserID)
}

func (s *RedisStore) Put(ctx context.Context, flags Flags) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := s.set(ctx, pipe, KeyToken, flags.Token); err != nil {
			return err
		}
		return s.set(ctx, pipe, KeyUserID, flags.UserID)
	})
	if err != nil {
		return fmt.Errorf("put flags: %w", err)
	}
	return nil
}

func (s *RedisStore) Snapshot(ctx context.Context) (Flags, error) {
	values, err := s.client.MGet(ctx, s.key(KeyToken), s.key(KeyUserID)).Result()
	if err != nil {
		return Flags{}, fmt.Errorf("read flags: %w", err)
	}

	var flags Flags
	if v, ok := values[0].(string); ok {
		flags.Token = v
	}
	if v, ok := values[1].(string); ok {
		flags.UserID = v
	}
	return flags, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, name string) (string, error) {
	value, err := s.client.Get(ctx, s.key(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrAbsent
		}
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if value == "" {
		return "", ErrAbsent
	}
	return value, nil
}

// set writes through cmd, which is the client itself or a transaction pipeline.
func (s *RedisStore) set(ctx context.Context, cmd redis.Cmdable, name string, value string) error {
	if value == "" {
		return cmd.Del(ctx, s.key(name)).Err()
	}
	return cmd.Set(ctx, s.key(name), value, 0).Err()
}
