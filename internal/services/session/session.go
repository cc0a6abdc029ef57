// Package session manages opaque bearer sessions. Tokens are random,
// carry no claims, and resolve to an identity only through the backing
// store, so revocation is immediate.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is how long a session stays resolvable unless revoked.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNotFound is returned by Resolve when the token is unknown, expired
// or revoked. Callers cannot distinguish the three cases.
var ErrNotFound = errors.New("session not found")

// Session binds a bearer token to an identity for a bounded lifetime.
type Session struct {
	Token      string    `json:"-"`
	IdentityID uint      `json:"identity_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Manager issues, resolves and revokes sessions against a Store.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl}
}

// Issue creates a fresh session for the identity and returns it with its
// bearer token. Issuing never touches other sessions, so an identity may
// hold several concurrently.
func (m *Manager) Issue(ctx context.Context, identityID uint) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	s := &Session{
		Token:      token,
		IdentityID: identityID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, token, s, m.ttl); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return s, nil
}

// Resolve returns the live session for a token, or ErrNotFound.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if time.Now().After(s.ExpiresAt) {
		return nil, ErrNotFound
	}
	s.Token = token
	return s, nil
}

// Revoke drops the session for a token. Revoking a token that no longer
// resolves is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, token)
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
