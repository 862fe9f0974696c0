package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Mall/internal/config"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each conversation as a JSON value whose TTL is
// refreshed on every save, so idle rooms expire without a janitor.
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisRepository(cfg config.RedisConfig, ttl time.Duration) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisRepositoryWithClient(client, cfg.Prefix, ttl), nil
}

func NewRedisRepositoryWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRepository {
	if prefix == "" {
		prefix = "mall:conversation"
	}
	return &RedisRepository{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRepository) key(room domain.RoomID) string {
	return fmt.Sprintf("%s:%s", r.prefix, room)
}

func (r *RedisRepository) Load(ctx context.Context, room domain.RoomID) (*Conversation, error) {
	data, err := r.client.Get(ctx, r.key(room)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

func (r *RedisRepository) Save(ctx context.Context, room domain.RoomID, conv *Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := r.client.Set(ctx, r.key(room), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, room domain.RoomID) error {
	if err := r.client.Del(ctx, r.key(room)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
