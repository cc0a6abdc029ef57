package siwe

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const noncePrefix = "siwe:nonce:"

// NonceStore tracks outstanding challenge nonces. Consume is single-use:
// it reports true exactly once per issued nonce, and false for nonces that
// are unknown, expired or already consumed.
type NonceStore interface {
	Issue(ctx context.Context, ttl time.Duration) (string, error)
	Consume(ctx context.Context, nonce string) (bool, error)
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

type redisNonceStore struct {
	client *redis.Client
}

// NewRedisNonceStore returns a NonceStore backed by Redis. Expiry is
// delegated to key TTLs and consumption uses GETDEL, so a nonce can be
// redeemed by at most one verification even across concurrent requests.
func NewRedisNonceStore(client *redis.Client) NonceStore {
	return &redisNonceStore{client: client}
}

func (s *redisNonceStore) Issue(ctx context.Context, ttl time.Duration) (string, error) {
	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, noncePrefix+nonce, "1", ttl).Err(); err != nil {
		return "", fmt.Errorf("storing nonce: %w", err)
	}
	return nonce, nil
}

func (s *redisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	err := s.client.GetDel(ctx, noncePrefix+nonce).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consuming nonce: %w", err)
	}
	return true, nil
}

type memoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
}

// NewMemoryNonceStore returns an in-process NonceStore for tests and
// single-node development setups.
func NewMemoryNonceStore() NonceStore {
	return &memoryNonceStore{nonces: make(map[string]time.Time)}
}

func (s *memoryNonceStore) Issue(_ context.Context, ttl time.Duration) (string, error) {
	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.nonces[nonce] = time.Now().Add(ttl)
	s.mu.Unlock()
	return nonce, nil
}

func (s *memoryNonceStore) Consume(_ context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.nonces[nonce]
	if !ok {
		return false, nil
	}
	delete(s.nonces, nonce)
	if time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}
