package auth

import (
	"time"

	"aurum/internal/models"
	"aurum/internal/services/session"
)

// LoginState is the position of a login attempt in the state machine.
type LoginState string

const (
	StateAuthenticated        LoginState = "authenticated"
	StateAwaitingSecondFactor LoginState = "awaiting_second_factor"
)

// LoginResult is the successful outcome of a login transition. Exactly one
// of the two shapes is populated: Identity and Session when the attempt
// reached StateAuthenticated, PendingRef when it stopped at
// StateAwaitingSecondFactor.
type LoginResult struct {
	State      LoginState
	Identity   *models.Identity
	Session    *session.Session
	PendingRef string

	// Registered is true when a wallet or oauth submission created the
	// identity as part of this login.
	Registered bool
}

// WalletChallenge is an issued sign-in message awaiting a signature. The
// wallet must sign Message byte for byte.
type WalletChallenge struct {
	Message   string    `json:"message"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SecondFactorSetup carries a freshly generated TOTP secret back to the
// caller. The secret stays inert until EnableSecondFactor verifies one
// code against it.
type SecondFactorSetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// ExternalProfile is an identity profile already validated against an
// oauth provider. Provider and Subject identify the remote account; Email
// links it to a local identity.
type ExternalProfile struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// MetricsCollector records authentication flow outcomes.
type MetricsCollector interface {
	LoginAttempt(method, outcome string)
	SecondFactorCheck(outcome string)
	SessionIssued()
}
