package models

import (
	"time"

	"gorm.io/gorm"
)

// Auth types record which proof of identity an account was created with.
const (
	AuthTypeCredential = "credential"
	AuthTypeWallet     = "wallet"
	AuthTypeOAuth      = "oauth"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is an account row. Username, email and wallet address are stored
// lowercased so the unique indexes double as case-insensitive constraints.
// PasswordHash is never empty: wallet and oauth accounts carry an unusable
// random hash so password login can never succeed for them. Email is unset
// for wallet accounts, which register implicitly without one.
type Identity struct {
	gorm.Model
	Username         string    `gorm:"uniqueIndex;not null" json:"username"`
	Email            *string   `gorm:"uniqueIndex;default:null" json:"email,omitempty"`
	PasswordHash     string    `gorm:"not null" json:"-"`
	WalletAddress    *string   `gorm:"uniqueIndex;default:null" json:"wallet_address,omitempty"`
	AuthType         string    `gorm:"default:'credential'" json:"auth_type"`
	TOTPSecret       string    `json:"-"`
	TOTPEnabled      bool      `gorm:"default:false" json:"totp_enabled"`
	Role             string    `gorm:"default:'user'" json:"role"`
	Premium          bool      `gorm:"default:false" json:"premium"`
	StripeCustomerID string    `json:"-"`
	LastLoginAt      time.Time `json:"last_login_at"`
}

// TableName keeps the table aligned with what the rest of the stack expects.
func (Identity) TableName() string { return "identities" }

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// PublicIdentity is the caller-facing view of an identity. Secrets, hashes
// and billing internals never leave through it.
type PublicIdentity struct {
	ID            uint       `json:"id"`
	Username      string     `json:"username"`
	Email         *string    `json:"email,omitempty"`
	WalletAddress *string    `json:"wallet_address,omitempty"`
	AuthType      string     `json:"auth_type"`
	TOTPEnabled   bool       `json:"totp_enabled"`
	Role          string     `json:"role"`
	Premium       bool       `json:"premium"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Public returns the external view of the identity.
func (i *Identity) Public() PublicIdentity {
	view := PublicIdentity{
		ID:            i.ID,
		Username:      i.Username,
		Email:         i.Email,
		WalletAddress: i.WalletAddress,
		AuthType:      i.AuthType,
		TOTPEnabled:   i.TOTPEnabled,
		Role:          i.Role,
		Premium:       i.Premium,
		CreatedAt:     i.CreatedAt,
	}
	if !i.LastLoginAt.IsZero() {
		t := i.LastLoginAt
		view.LastLoginAt = &t
	}
	return view
}

// RegisterInput carries a registration request into the auth service.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
