// Package billing wraps the payment processor behind a thin adapter. It
// creates subscription checkout sessions and applies webhook events to
// the identity's premium entitlement and the payment ledger.
package billing

import "time"

// Config carries the processor credentials and redirect targets.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the client-confrontable payment handle returned to
// the frontend, which redirects the user to URL.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// WebhookResult reports what a processed event changed, for logging.
type WebhookResult struct {
	EventID     string
	EventType   string
	IdentityID  uint
	Duplicate   bool
	ProcessedAt time.Time
}

// MetricsCollector records webhook traffic.
type MetricsCollector interface {
	WebhookEvent(eventType string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) WebhookEvent(string) {}
