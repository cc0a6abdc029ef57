// Package events publishes authentication and billing domain events to a
// Redis stream so downstream consumers (mailers, analytics, fraud checks)
// can react without coupling to the auth service.
package events

import (
	"context"
	"time"
)

// Stream topics. Consumers subscribe by topic, one event type per topic.
const (
	TopicIdentityRegistered = "aurum.identity.registered"
	TopicLogin              = "aurum.auth.login"
	TopicLogout             = "aurum.auth.logout"
	TopicPremiumChanged     = "aurum.billing.premium_changed"
)

// IdentityRegistered is emitted once per new identity, for both
// credential registration and implicit wallet registration.
type IdentityRegistered struct {
	IdentityID uint      `json:"identity_id"`
	Username   string    `json:"username"`
	AuthType   string    `json:"auth_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Login is emitted when a login flow reaches the authenticated state.
type Login struct {
	IdentityID uint      `json:"identity_id"`
	Method     string    `json:"method"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Logout is emitted when a session is revoked by its owner.
type Logout struct {
	IdentityID uint      `json:"identity_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PremiumChanged is emitted when billing flips an identity's premium flag.
type PremiumChanged struct {
	IdentityID uint      `json:"identity_id"`
	Premium    bool      `json:"premium"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits domain events. Implementations must be safe for
// concurrent use. Publishing is best effort: callers treat failures as
// log-worthy, never as a reason to fail the originating request.
type Publisher interface {
	PublishIdentityRegistered(ctx context.Context, event IdentityRegistered) error
	PublishLogin(ctx context.Context, event Login) error
	PublishLogout(ctx context.Context, event Logout) error
	PublishPremiumChanged(ctx context.Context, event PremiumChanged) error
	Close() error
}

// NoopPublisher discards all events. It stands in where no broker is
// configured, tests included.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (*NoopPublisher) PublishIdentityRegistered(context.Context, IdentityRegistered) error {
	return nil
}
func (*NoopPublisher) PublishLogin(context.Context, Login) error   { return nil }
func (*NoopPublisher) PublishLogout(context.Context, Logout) error { return nil }
func (*NoopPublisher) PublishPremiumChanged(context.Context, PremiumChanged) error {
	return nil
}
func (*NoopPublisher) Close() error { return nil }
