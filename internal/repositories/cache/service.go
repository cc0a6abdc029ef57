package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aurum/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Client exposes the underlying Redis client for subsystems that manage
// their own keyspace (sessions, nonces, event streams).
func (s *CacheService) Client() *redis.Client {
	return s.client
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Identity caching. An identity is cached under every handle it can be
// looked up by, so invalidation must clear the full key set.
func (s *CacheService) CacheIdentity(ctx context.Context, identity *models.Identity) error {
	if identity == nil {
		return errors.New("cannot cache nil identity")
	}

	keys := []string{
		s.GenerateKey("identity", "id", identity.ID),
		s.GenerateKey("identity", "username", identity.Username),
	}
	if identity.Email != nil {
		keys = append(keys, s.GenerateKey("identity", "email", *identity.Email))
	}
	if identity.WalletAddress != nil {
		keys = append(keys, s.GenerateKey("identity", "wallet", *identity.WalletAddress))
	}

	for _, key := range keys {
		if err := s.Set(ctx, key, identity); err != nil {
			return err
		}
	}
	return nil
}

func (s *CacheService) GetIdentity(ctx context.Context, key string) (*models.Identity, error) {
	var identity models.Identity
	found, err := s.Get(ctx, key, &identity)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("identity not found in cache")
	}
	return &identity, nil
}

// Invalidation patterns
func (s *CacheService) InvalidateIdentity(ctx context.Context, identityID uint) error {
	identity, err := s.GetIdentity(ctx, s.GenerateKey("identity", "id", identityID))
	if err != nil {
		// Nothing cached under the primary key means nothing to clear.
		return nil
	}

	keys := []string{
		s.GenerateKey("identity", "id", identityID),
		s.GenerateKey("identity", "username", identity.Username),
	}
	if identity.Email != nil {
		keys = append(keys, s.GenerateKey("identity", "email", *identity.Email))
	}
	if identity.WalletAddress != nil {
		keys = append(keys, s.GenerateKey("identity", "wallet", *identity.WalletAddress))
	}

	return s.Delete(ctx, keys...)
}

// FlushAll flushes all keys from the cache
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
