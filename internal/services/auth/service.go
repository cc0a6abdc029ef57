package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"aurum/internal/events"
	"aurum/internal/models"
	"aurum/internal/repositories"
	"aurum/internal/services/password"
	"aurum/internal/services/session"
	"aurum/internal/services/siwe"
	"aurum/internal/services/totp"
	"aurum/internal/validation"
)

type Service interface {
	// Register creates a credential identity and logs it in immediately.
	Register(ctx context.Context, input models.RegisterInput) (*LoginResult, error)

	// SubmitCredentials runs the first step of a credential login. The
	// result is StateAuthenticated, or StateAwaitingSecondFactor when the
	// account has its second factor enabled.
	SubmitCredentials(ctx context.Context, username, plaintext string) (*LoginResult, error)

	// SubmitSecondFactor completes a login halted at the second-factor
	// gate, identified by the pending reference from SubmitCredentials.
	SubmitSecondFactor(ctx context.Context, pendingRef, code string) (*LoginResult, error)

	// WalletChallenge issues a sign-in message for the wallet to sign.
	WalletChallenge(ctx context.Context, address string) (*WalletChallenge, error)

	// SubmitWalletSignature verifies a signed challenge and logs the
	// wallet's identity in, creating it on first contact.
	SubmitWalletSignature(ctx context.Context, address, signature, message string) (*LoginResult, error)

	// SubmitExternalProfile logs in a provider-verified oauth profile,
	// creating an identity keyed by its email on first contact.
	SubmitExternalProfile(ctx context.Context, profile ExternalProfile) (*LoginResult, error)

	// ResolveSession maps a bearer token to its identity.
	ResolveSession(ctx context.Context, token string) (*models.Identity, *session.Session, error)

	// Logout revokes the session behind the token.
	Logout(ctx context.Context, token string) error

	ChangePassword(ctx context.Context, identityID uint, oldPassword, newPassword string) error

	// SetupSecondFactor generates and stores a TOTP secret without
	// activating it. EnableSecondFactor activates it after the caller
	// proves possession by submitting one valid code.
	SetupSecondFactor(ctx context.Context, identityID uint) (*SecondFactorSetup, error)
	EnableSecondFactor(ctx context.Context, identityID uint, code string) error
	DisableSecondFactor(ctx context.Context, identityID uint) error
}

// Config carries the service's own tunables; collaborator configuration
// lives with the collaborators.
type Config struct {
	PendingTokenSecret string
	PendingTokenTTL    time.Duration
}

type service struct {
	identities    repositories.IdentityRepository
	sessions      *session.Manager
	verifier      *siwe.Verifier
	totp          *totp.Service
	publisher     events.Publisher
	metrics       MetricsCollector
	pendingSecret []byte
	pendingTTL    time.Duration
}

// NewService creates the authentication service. A nil publisher or
// metrics collector is replaced with a no-op implementation.
func NewService(
	identities repositories.IdentityRepository,
	sessions *session.Manager,
	verifier *siwe.Verifier,
	totpSvc *totp.Service,
	publisher events.Publisher,
	metrics MetricsCollector,
	cfg Config,
) Service {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if cfg.PendingTokenTTL <= 0 {
		cfg.PendingTokenTTL = DefaultPendingTokenTTL
	}
	return &service{
		identities:    identities,
		sessions:      sessions,
		verifier:      verifier,
		totp:          totpSvc,
		publisher:     publisher,
		metrics:       metrics,
		pendingSecret: []byte(cfg.PendingTokenSecret),
		pendingTTL:    cfg.PendingTokenTTL,
	}
}

func (s *service) Register(ctx context.Context, input models.RegisterInput) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Both handles must be free before anything is written.
	if _, err := s.identities.GetByUsername(username); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, repositories.ErrIdentityNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if _, err := s.identities.GetByEmail(email); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, repositories.ErrIdentityNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	identity := &models.Identity{
		Username:     username,
		Email:        &email,
		PasswordHash: hash,
		AuthType:     models.AuthTypeCredential,
		Role:         models.RoleUser,
	}
	if err := s.identities.Create(identity); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("creating identity: %w", err)
	}
	s.publishRegistered(ctx, identity)

	// Registration implies login.
	return s.finalizeLogin(ctx, identity, MethodCredential)
}

func (s *service) SubmitCredentials(ctx context.Context, username, plaintext string) (*LoginResult, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	identity, err := s.identities.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			s.metrics.LoginAttempt(MethodCredential, OutcomeFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up identity: %w", err)
	}

	if !password.Verify(plaintext, identity.PasswordHash) {
		log.Printf("Login failed: incorrect password for identity %d", identity.ID)
		s.metrics.LoginAttempt(MethodCredential, OutcomeFailure)
		return nil, ErrInvalidCredentials
	}

	if identity.TOTPEnabled {
		ref, err := s.issuePendingToken(identity.ID)
		if err != nil {
			return nil, err
		}
		s.metrics.LoginAttempt(MethodCredential, OutcomePending)
		return &LoginResult{State: StateAwaitingSecondFactor, PendingRef: ref}, nil
	}

	return s.finalizeLogin(ctx, identity, MethodCredential)
}

func (s *service) SubmitSecondFactor(ctx context.Context, pendingRef, code string) (*LoginResult, error) {
	identityID, err := s.parsePendingToken(pendingRef)
	if err != nil {
		return nil, err
	}

	identity, err := s.identities.GetByID(identityID)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("looking up identity: %w", err)
	}
	if !identity.TOTPEnabled || identity.TOTPSecret == "" {
		return nil, ErrInvalidState
	}

	if !s.totp.Verify(identity.TOTPSecret, code, time.Now()) {
		s.metrics.SecondFactorCheck(OutcomeFailure)
		return nil, ErrInvalidCode
	}
	s.metrics.SecondFactorCheck(OutcomeSuccess)

	return s.finalizeLogin(ctx, identity, MethodCredential)
}

func (s *service) WalletChallenge(ctx context.Context, address string) (*WalletChallenge, error) {
	msg, err := s.verifier.IssueChallenge(ctx, address)
	if err != nil {
		return nil, err
	}
	return &WalletChallenge{
		Message:   msg.String(),
		Nonce:     msg.Nonce,
		ExpiresAt: msg.ExpirationTime,
	}, nil
}

func (s *service) SubmitWalletSignature(ctx context.Context, address, signature, message string) (*LoginResult, error) {
	msg, err := s.verifier.Verify(ctx, message, signature, address, time.Now())
	if err != nil {
		if errors.Is(err, ErrSignatureInvalid) || errors.Is(err, ErrMalformedMessage) || errors.Is(err, ErrExpired) {
			s.metrics.LoginAttempt(MethodWallet, OutcomeFailure)
		}
		return nil, err
	}

	addr := strings.ToLower(msg.Address)
	registered := false
	identity, err := s.identities.GetByWallet(addr)
	switch {
	case errors.Is(err, repositories.ErrIdentityNotFound):
		// Implicit registration: first contact from this address.
		identity = &models.Identity{
			Username:      addr,
			PasswordHash:  password.MustHashUnusable(),
			WalletAddress: &addr,
			AuthType:      models.AuthTypeWallet,
			Role:          models.RoleUser,
		}
		if createErr := s.identities.Create(identity); createErr != nil {
			if !errors.Is(createErr, repositories.ErrDuplicateKey) {
				return nil, fmt.Errorf("creating identity: %w", createErr)
			}
			// Lost a race with a concurrent first login for the address.
			identity, err = s.identities.GetByWallet(addr)
			if err != nil {
				return nil, fmt.Errorf("loading identity: %w", err)
			}
		} else {
			registered = true
			s.publishRegistered(ctx, identity)
		}
	case err != nil:
		return nil, fmt.Errorf("looking up identity: %w", err)
	}

	result, err := s.finalizeLogin(ctx, identity, MethodWallet)
	if err != nil {
		return nil, err
	}
	result.Registered = registered
	return result, nil
}

func (s *service) SubmitExternalProfile(ctx context.Context, profile ExternalProfile) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: provider profile carries no email", ErrInvalidState)
	}

	registered := false
	identity, err := s.identities.GetByEmail(email)
	switch {
	case errors.Is(err, repositories.ErrIdentityNotFound):
		identity, err = s.createFromProfile(email)
		if err != nil {
			return nil, err
		}
		registered = true
		s.publishRegistered(ctx, identity)
	case err != nil:
		return nil, fmt.Errorf("looking up identity: %w", err)
	}

	result, err := s.finalizeLogin(ctx, identity, MethodOAuth)
	if err != nil {
		return nil, err
	}
	result.Registered = registered
	return result, nil
}

func (s *service) createFromProfile(email string) (*models.Identity, error) {
	username := usernameFromEmail(email)
	for attempt := 0; attempt < 3; attempt++ {
		identity := &models.Identity{
			Username:     username,
			Email:        &email,
			PasswordHash: password.MustHashUnusable(),
			AuthType:     models.AuthTypeOAuth,
			Role:         models.RoleUser,
		}
		err := s.identities.Create(identity)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("creating identity: %w", err)
		}
		// The email may have been taken by a concurrent callback.
		if existing, lookupErr := s.identities.GetByEmail(email); lookupErr == nil {
			return existing, nil
		}
		// Otherwise the derived username collided; retry with a suffix.
		username = usernameFromEmail(email) + "_" + randomSuffix()
	}
	return nil, fmt.Errorf("creating identity: %w", repositories.ErrDuplicateKey)
}

func (s *service) ResolveSession(ctx context.Context, token string) (*models.Identity, *session.Session, error) {
	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil, ErrNotAuthenticated
		}
		return nil, nil, fmt.Errorf("resolving session: %w", err)
	}

	identity, err := s.identities.GetByID(sess.IdentityID)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			// The account is gone; drop its dangling session.
			if revokeErr := s.sessions.Revoke(ctx, token); revokeErr != nil {
				log.Printf("Failed to revoke dangling session: %v", revokeErr)
			}
			return nil, nil, ErrNotAuthenticated
		}
		return nil, nil, fmt.Errorf("looking up identity: %w", err)
	}
	return identity, sess, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("resolving session: %w", err)
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	if err := s.publisher.PublishLogout(ctx, events.Logout{
		IdentityID: sess.IdentityID,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		log.Printf("Failed to publish logout event: %v", err)
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, identityID uint, oldPassword, newPassword string) error {
	identity, err := s.identities.GetByID(identityID)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("looking up identity: %w", err)
	}

	if !password.Verify(oldPassword, identity.PasswordHash) {
		return ErrInvalidCredentials
	}

	v := validation.New()
	v.Password("password", newPassword)
	if !v.Valid() {
		return fmt.Errorf("%w: %s", ErrPasswordPolicy, v.Errors["password"])
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.identities.UpdatePassword(identityID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

func (s *service) SetupSecondFactor(ctx context.Context, identityID uint) (*SecondFactorSetup, error) {
	identity, err := s.identities.GetByID(identityID)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("looking up identity: %w", err)
	}
	if identity.TOTPEnabled {
		return nil, fmt.Errorf("%w: second factor already enabled", ErrInvalidState)
	}

	secret, uri, err := s.totp.GenerateSecret(identity.Username)
	if err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}

	// Stored inert: the enabled flag stays false until one code verifies.
	if err := s.identities.UpdateSecondFactor(identity.ID, secret, false); err != nil {
		return nil, fmt.Errorf("storing secret: %w", err)
	}
	return &SecondFactorSetup{Secret: secret, ProvisioningURI: uri}, nil
}

func (s *service) EnableSecondFactor(ctx context.Context, identityID uint, code string) error {
	identity, err := s.identities.GetByID(identityID)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("looking up identity: %w", err)
	}
	if identity.TOTPEnabled {
		return fmt.Errorf("%w: second factor already enabled", ErrInvalidState)
	}
	if identity.TOTPSecret == "" {
		return fmt.Errorf("%w: no secret set up", ErrInvalidState)
	}

	if !s.totp.Verify(identity.TOTPSecret, code, time.Now()) {
		s.metrics.SecondFactorCheck(OutcomeFailure)
		return ErrInvalidCode
	}
	s.metrics.SecondFactorCheck(OutcomeSuccess)

	return s.identities.UpdateSecondFactor(identity.ID, identity.TOTPSecret, true)
}

func (s *service) DisableSecondFactor(ctx context.Context, identityID uint) error {
	if _, err := s.identities.GetByID(identityID); err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("looking up identity: %w", err)
	}
	// Cleared unconditionally; holding a valid session is the only guard.
	return s.identities.UpdateSecondFactor(identityID, "", false)
}

// finalizeLogin is the single Authenticated edge: it stamps last-login,
// issues the session, and reports the success.
func (s *service) finalizeLogin(ctx context.Context, identity *models.Identity, method string) (*LoginResult, error) {
	sess, err := s.sessions.Issue(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing session: %w", err)
	}

	if err := s.identities.TouchLastLogin(identity.ID); err != nil {
		log.Printf("Failed to record last login for identity %d: %v", identity.ID, err)
	}
	identity.LastLoginAt = time.Now()

	s.metrics.LoginAttempt(method, OutcomeSuccess)
	s.metrics.SessionIssued()

	if err := s.publisher.PublishLogin(ctx, events.Login{
		IdentityID: identity.ID,
		Method:     method,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		log.Printf("Failed to publish login event: %v", err)
	}

	return &LoginResult{State: StateAuthenticated, Identity: identity, Session: sess}, nil
}

func (s *service) publishRegistered(ctx context.Context, identity *models.Identity) {
	if err := s.publisher.PublishIdentityRegistered(ctx, events.IdentityRegistered{
		IdentityID: identity.ID,
		Username:   identity.Username,
		AuthType:   identity.AuthType,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		log.Printf("Failed to publish registration event: %v", err)
	}
}

// usernameFromEmail derives a valid username from an email's local part.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '+':
			b.WriteRune('_')
		}
	}
	name := b.String()
	if len(name) < validation.MinUsernameLength {
		name = "user_" + randomSuffix()
	}
	if len(name) > validation.MaxUsernameLength {
		name = name[:validation.MaxUsernameLength]
	}
	return name
}

func randomSuffix() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "0"
	}
	return hex.EncodeToString(buf)
}
