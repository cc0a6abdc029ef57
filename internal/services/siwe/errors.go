package siwe

import "errors"

// Verifier errors
var (
	// ErrMalformedMessage covers structural defects and messages bound to a
	// different domain or chain than this service accepts.
	ErrMalformedMessage = errors.New("malformed sign-in message")

	// ErrSignatureInvalid covers undecodable signatures and any mismatch
	// between the claimed address, the message address and the recovered
	// signer.
	ErrSignatureInvalid = errors.New("invalid wallet signature")

	// ErrExpired covers messages outside their validity window and
	// challenges whose nonce is unknown or already consumed.
	ErrExpired = errors.New("sign-in message expired")
)
