package models

import "github.com/golang-jwt/jwt/v5"

// AudiencePendingSecondFactor marks the short-lived token handed back when a
// credential login still needs its TOTP step. The token is the only state the
// server keeps about the half-finished login; no session exists yet.
const AudiencePendingSecondFactor = "auth:2fa"

// PendingSecondFactorClaims is the claim set of the pending-2FA token.
type PendingSecondFactorClaims struct {
	jwt.RegisteredClaims
	IdentityID uint `json:"identity_id"`
}
