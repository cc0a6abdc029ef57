package auth

import (
	"errors"
	"fmt"
	"time"

	"aurum/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// issuePendingToken signs the opaque reference returned when a credential
// login still owes its TOTP code. The token is the only state held for
// the half-finished attempt.
func (s *service) issuePendingToken(identityID uint) (string, error) {
	now := time.Now()
	claims := &models.PendingSecondFactorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{models.AudiencePendingSecondFactor},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.pendingTTL)),
		},
		IdentityID: identityID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.pendingSecret)
	if err != nil {
		return "", fmt.Errorf("signing pending reference: %w", err)
	}
	return signed, nil
}

// parsePendingToken validates a pending reference and returns the identity
// it was issued for. An expired reference maps to ErrExpired, anything
// else that fails validation to ErrInvalidState.
func (s *service) parsePendingToken(ref string) (uint, error) {
	claims := &models.PendingSecondFactorClaims{}
	_, err := jwt.ParseWithClaims(ref, claims,
		func(*jwt.Token) (interface{}, error) { return s.pendingSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(models.AudiencePendingSecondFactor),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: pending reference expired", ErrExpired)
		}
		return 0, fmt.Errorf("%w: bad pending reference", ErrInvalidState)
	}
	if claims.IdentityID == 0 {
		return 0, ErrInvalidState
	}
	return claims.IdentityID, nil
}
