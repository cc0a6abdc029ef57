package auth

import "time"

// Login methods as reported to metrics and events.
const (
	MethodCredential = "credential"
	MethodWallet     = "wallet"
	MethodOAuth      = "oauth"
)

// Attempt outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePending = "pending_second_factor"
)

// DefaultPendingTokenTTL bounds how long a half-finished credential login
// may wait for its TOTP code.
const DefaultPendingTokenTTL = 5 * time.Minute
