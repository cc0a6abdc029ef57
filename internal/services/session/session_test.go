package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndResolve(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	sess, err := m.Issue(ctx, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, uint(42), sess.IdentityID)
	assert.True(t, sess.ExpiresAt.After(sess.CreatedAt))

	resolved, err := m.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.IdentityID, resolved.IdentityID)
	assert.Equal(t, sess.Token, resolved.Token)
}

func TestTokensAreOpaqueAndUnique(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		sess, err := m.Issue(ctx, 7)
		require.NoError(t, err)
		assert.False(t, seen[sess.Token], "token reuse")
		seen[sess.Token] = true
	}
}

func TestConcurrentSessionsStayIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	first, err := m.Issue(ctx, 7)
	require.NoError(t, err)
	second, err := m.Issue(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, first.Token))

	_, err = m.Resolve(ctx, first.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	// The other session for the same identity is untouched.
	_, err = m.Resolve(ctx, second.Token)
	assert.NoError(t, err)
}

func TestResolveFailures(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	_, err := m.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Resolve(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredSessionDoesNotResolve(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, time.Hour)

	sess, err := m.Issue(ctx, 9)
	require.NoError(t, err)

	// Backdate the stored session past its expiry.
	sess.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, sess.Token, sess, time.Hour))

	_, err = m.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeUnknownTokenIsNoError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), time.Hour)

	assert.NoError(t, m.Revoke(ctx, ""))
	assert.NoError(t, m.Revoke(ctx, "never-issued"))
}
