package oauth

import "errors"

// Service errors
var (
	ErrUnknownProvider   = errors.New("unknown oauth provider")
	ErrStateMismatch     = errors.New("oauth state missing or already used")
	ErrExchangeFailed    = errors.New("oauth code exchange failed")
	ErrProfileIncomplete = errors.New("oauth profile missing required fields")
)
