// Package totp wraps time-based one-time password enrollment and
// verification for the second login factor.
package totp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the code time step in seconds.
	Period = 30
	// Skew is how many adjacent steps are accepted on each side of now,
	// tolerating roughly ±30s of clock drift between server and phone.
	Skew = 1
)

// Service issues per-account secrets and verifies submitted codes.
type Service struct {
	issuer string
}

// NewService creates a TOTP service. The issuer shows up in authenticator
// apps next to the account name.
func NewService(issuer string) *Service {
	return &Service{issuer: issuer}
}

// GenerateSecret produces a fresh random base32 secret plus the otpauth://
// provisioning URI for the given account. Rendering the URI as a QR code is
// the caller's concern.
func (s *Service) GenerateSecret(account string) (secret, provisioningURI string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: account,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// Verify reports whether code is valid for secret at the given time,
// accepting Skew adjacent steps on each side. Codes are not tracked after
// use; a code stays accepted for its whole validity window.
func (s *Service) Verify(secret, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
