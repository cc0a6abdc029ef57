package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "session:"

// Store persists sessions keyed by token. Get returns ErrNotFound for
// tokens that were never saved, have expired or were deleted.
type Store interface {
	Save(ctx context.Context, token string, s *Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Store backed by Redis with per-key TTL expiry.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Save(ctx context.Context, token string, sess *Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	return s.client.Set(ctx, sessionPrefix+token, payload, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, token string) (*Session, error) {
	payload, err := s.client.Get(ctx, sessionPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &sess, nil
}

func (s *redisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionPrefix+token).Err()
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore returns an in-process Store for tests and single-node
// development setups.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]Session)}
}

func (s *memoryStore) Save(_ context.Context, token string, sess *Session, _ time.Duration) error {
	s.mu.Lock()
	s.sessions[token] = *sess
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil, ErrNotFound
	}
	out := sess
	return &out, nil
}

func (s *memoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}
