package repositories

import (
	"errors"

	"aurum/internal/models"
)

var (
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrDuplicateKey      = errors.New("identity attribute already taken")
	ErrDatabaseOperation = errors.New("database operation failed")
)

// IdentityRepository defines the interface for identity-related database
// operations. Lookup handles (username, email, wallet address) are stored
// lowercase; callers normalize before querying.
type IdentityRepository interface {
	// Create persists a new identity. Unique-index violations are
	// reported as ErrDuplicateKey.
	Create(identity *models.Identity) error

	// GetByID retrieves an identity by its ID
	GetByID(id uint) (*models.Identity, error)

	// GetByUsername retrieves an identity by its username
	GetByUsername(username string) (*models.Identity, error)

	// GetByEmail retrieves an identity by its email address
	GetByEmail(email string) (*models.Identity, error)

	// GetByWallet retrieves an identity by its wallet address
	GetByWallet(address string) (*models.Identity, error)

	// GetByStripeCustomer retrieves an identity by its billing customer id
	GetByStripeCustomer(customerID string) (*models.Identity, error)

	// Update updates an existing identity's information
	Update(identity *models.Identity) error

	// Delete removes an identity from the database
	Delete(id uint) error

	// List retrieves identities with pagination
	List(offset, limit int) ([]*models.Identity, int64, error)

	// UpdatePassword updates the identity's password hash
	UpdatePassword(identityID uint, passwordHash string) error

	// UpdateSecondFactor stores the TOTP secret and whether the second
	// factor gate is active
	UpdateSecondFactor(identityID uint, secret string, enabled bool) error

	// UpdatePremium flips the premium entitlement flag
	UpdatePremium(identityID uint, premium bool) error

	// UpdateStripeCustomer records the billing provider's customer id
	UpdateStripeCustomer(identityID uint, customerID string) error

	// UpdateRole changes the identity's role
	UpdateRole(identityID uint, role string) error

	// TouchLastLogin records a successful authentication time
	TouchLastLogin(identityID uint) error
}

// Implementation is in identity_repository_impl.go
