package validation

import "regexp"

const (
	// Password requirements
	MinPasswordLength = 6
	MaxPasswordLength = 72

	// Username requirements. The upper bound leaves room for
	// wallet-derived usernames, which are full hex addresses.
	MinUsernameLength = 3
	MaxUsernameLength = 64
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)
