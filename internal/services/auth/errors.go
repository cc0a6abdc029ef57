package auth

import (
	"errors"

	"aurum/internal/services/siwe"
)

// Service errors. Each is the terminal outcome of one attempt.
var (
	// ErrInvalidCredentials covers both unknown username and wrong
	// password, indistinguishably, to resist account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidState       = errors.New("invalid state for this step")
	ErrInvalidCode        = errors.New("invalid second-factor code")
	ErrAlreadyExists      = errors.New("username or email already taken")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrPasswordPolicy     = errors.New("password rejected by policy")

	// Wallet submissions fail with the verifier's own kinds so that
	// errors.Is checks agree across layers.
	ErrSignatureInvalid = siwe.ErrSignatureInvalid
	ErrMalformedMessage = siwe.ErrMalformedMessage
	ErrExpired          = siwe.ErrExpired
)
