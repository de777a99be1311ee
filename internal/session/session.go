// Package session keeps login state server side, keyed by an opaque id that
// travels in a cookie. Sessions expire after a fixed TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "session:"

var ErrNotFound = errors.New("session not found")

type Session struct {
	UserID    int64     `json:"user_id"`
	Flash     string    `json:"flash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, id string, s Session) error
	Delete(ctx context.Context, id string) error
}

var _ Store = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Create(ctx context.Context, s Session) (string, error) {
	id := uuid.NewString()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("erro ao serializar sessão: %w", err)
	}

	ok, err := r.client.SetNX(ctx, keyPrefix+id, data, r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("erro ao criar sessão: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("colisão de id de sessão")
	}

	return id, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrNotFound
	}

	val, err := r.client.Get(ctx, keyPrefix+id).Result()
	if err == redis.Nil {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("erro ao buscar sessão: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return Session{}, fmt.Errorf("erro ao deserializar sessão: %w", err)
	}

	return s, nil
}

// Save overwrites an existing session without extending its expiry.
func (r *RedisStore) Save(ctx context.Context, id string, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("erro ao serializar sessão: %w", err)
	}

	ok, err := r.client.SetXX(ctx, keyPrefix+id, data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("erro ao salvar sessão: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}
