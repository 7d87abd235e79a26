package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/sac-service/internal/domain"
)

// RedisPasswordResetRepository keeps reset tokens in Redis with a TTL matching their expiry.
type RedisPasswordResetRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPasswordResetRepository creates a Redis-backed token store.
func NewRedisPasswordResetRepository(client *redis.Client, ttl time.Duration) *RedisPasswordResetRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisPasswordResetRepository{client: client, prefix: "sac:password_reset:", ttl: ttl}
}

func (r *RedisPasswordResetRepository) Save(ctx context.Context, token *domain.PasswordResetToken) error {
	if token == nil || token.Token == "" {
		return errors.New("password reset token is empty")
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	if token.ExpiresAt.Before(token.CreatedAt) {
		token.ExpiresAt = token.CreatedAt.Add(r.ttl)
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return err
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		ttl = r.ttl
	}
	return r.client.Set(ctx, r.key(token.Token), payload, ttl).Err()
}

func (r *RedisPasswordResetRepository) Get(ctx context.Context, tokenStr string) (*domain.PasswordResetToken, error) {
	result, err := r.client.Get(ctx, r.key(tokenStr)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var token domain.PasswordResetToken
	if err := json.Unmarshal([]byte(result), &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// MarkUsed claims the token under WATCH so only one caller can use it.
func (r *RedisPasswordResetRepository) MarkUsed(ctx context.Context, tokenStr string) error {
	key := r.key(tokenStr)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		var token domain.PasswordResetToken
		if err := json.Unmarshal(raw, &token); err != nil {
			return err
		}
		if token.UsedAt != nil {
			return ErrNotFound
		}
		now := time.Now()
		token.UsedAt = &now
		payload, err := json.Marshal(token)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrNotFound
	}
	return err
}

func (r *RedisPasswordResetRepository) key(token string) string {
	return fmt.Sprintf("%s%s", r.prefix, token)
}
