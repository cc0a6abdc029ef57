package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment statuses as reported by the billing gateway.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"
)

// PaymentRecord is an append-only row created from billing webhook events.
// EventID is the gateway's event id; the unique index makes webhook retries
// idempotent.
type PaymentRecord struct {
	gorm.Model
	IdentityID  uint      `gorm:"index;not null" json:"identity_id"`
	EventID     string    `gorm:"uniqueIndex;not null" json:"event_id"`
	InvoiceID   string    `json:"invoice_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	EventType   string    `json:"event_type"`
	PaidAt      time.Time `json:"paid_at"`
}

// SubscriptionPlan maps a public plan code to a billing-gateway price.
type SubscriptionPlan struct {
	gorm.Model
	Code          string `gorm:"uniqueIndex;not null" json:"code"`
	Name          string `gorm:"not null" json:"name"`
	StripePriceID string `gorm:"not null" json:"-"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Interval      string `json:"interval"`
}
