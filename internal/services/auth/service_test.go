package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"aurum/internal/events"
	"aurum/internal/models"
	"aurum/internal/repositories"
	"aurum/internal/services/session"
	"aurum/internal/services/siwe"
	"aurum/internal/services/totp"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	totplib "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeIdentityRepo is an in-memory IdentityRepository with the same
// duplicate-key semantics as the real one.
type fakeIdentityRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.Identity
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{rows: make(map[uint]*models.Identity)}
}

func cloneIdentity(i *models.Identity) *models.Identity {
	out := *i
	if i.Email != nil {
		email := *i.Email
		out.Email = &email
	}
	if i.WalletAddress != nil {
		addr := *i.WalletAddress
		out.WalletAddress = &addr
	}
	return &out
}

func (r *fakeIdentityRepo) Create(identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Username == identity.Username {
			return repositories.ErrDuplicateKey
		}
		if identity.Email != nil && row.Email != nil && *row.Email == *identity.Email {
			return repositories.ErrDuplicateKey
		}
		if identity.WalletAddress != nil && row.WalletAddress != nil && *row.WalletAddress == *identity.WalletAddress {
			return repositories.ErrDuplicateKey
		}
	}
	r.nextID++
	identity.ID = r.nextID
	identity.CreatedAt = time.Now()
	r.rows[identity.ID] = cloneIdentity(identity)
	return nil
}

func (r *fakeIdentityRepo) GetByID(id uint) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrIdentityNotFound
	}
	return cloneIdentity(row), nil
}

func (r *fakeIdentityRepo) findBy(match func(*models.Identity) bool) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if match(row) {
			return cloneIdentity(row), nil
		}
	}
	return nil, repositories.ErrIdentityNotFound
}

func (r *fakeIdentityRepo) GetByUsername(username string) (*models.Identity, error) {
	return r.findBy(func(i *models.Identity) bool { return i.Username == username })
}

func (r *fakeIdentityRepo) GetByEmail(email string) (*models.Identity, error) {
	return r.findBy(func(i *models.Identity) bool { return i.Email != nil && *i.Email == email })
}

func (r *fakeIdentityRepo) GetByWallet(address string) (*models.Identity, error) {
	return r.findBy(func(i *models.Identity) bool { return i.WalletAddress != nil && *i.WalletAddress == address })
}

func (r *fakeIdentityRepo) GetByStripeCustomer(customerID string) (*models.Identity, error) {
	return r.findBy(func(i *models.Identity) bool { return i.StripeCustomerID == customerID })
}

func (r *fakeIdentityRepo) Update(identity *models.Identity) error {
	return r.mutate(identity.ID, func(row *models.Identity) { *row = *cloneIdentity(identity) })
}

func (r *fakeIdentityRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repositories.ErrIdentityNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeIdentityRepo) List(offset, limit int) ([]*models.Identity, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	var out []*models.Identity
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, cloneIdentity(r.rows[ids[i]]))
	}
	return out, int64(len(ids)), nil
}

func (r *fakeIdentityRepo) mutate(id uint, fn func(*models.Identity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repositories.ErrIdentityNotFound
	}
	fn(row)
	return nil
}

func (r *fakeIdentityRepo) UpdatePassword(identityID uint, passwordHash string) error {
	return r.mutate(identityID, func(i *models.Identity) { i.PasswordHash = passwordHash })
}

func (r *fakeIdentityRepo) UpdateSecondFactor(identityID uint, secret string, enabled bool) error {
	return r.mutate(identityID, func(i *models.Identity) {
		i.TOTPSecret = secret
		i.TOTPEnabled = enabled
	})
}

func (r *fakeIdentityRepo) UpdatePremium(identityID uint, premium bool) error {
	return r.mutate(identityID, func(i *models.Identity) { i.Premium = premium })
}

func (r *fakeIdentityRepo) UpdateStripeCustomer(identityID uint, customerID string) error {
	return r.mutate(identityID, func(i *models.Identity) { i.StripeCustomerID = customerID })
}

func (r *fakeIdentityRepo) UpdateRole(identityID uint, role string) error {
	return r.mutate(identityID, func(i *models.Identity) { i.Role = role })
}

func (r *fakeIdentityRepo) TouchLastLogin(identityID uint) error {
	return r.mutate(identityID, func(i *models.Identity) { i.LastLoginAt = time.Now() })
}

var testConfig = Config{PendingTokenSecret: "test-pending-secret"}

func buildTestService(repo *fakeIdentityRepo, publisher events.Publisher, metrics MetricsCollector, cfg Config) Service {
	verifier := siwe.NewVerifier(siwe.Config{
		Domain:    "app.example.com",
		URI:       "https://app.example.com",
		Statement: "Sign in to Aurum",
		ChainID:   1,
	}, siwe.NewMemoryNonceStore())
	return NewService(
		repo,
		session.NewManager(session.NewMemoryStore(), time.Hour),
		verifier,
		totp.NewService("Aurum"),
		publisher,
		metrics,
		cfg,
	)
}

func newTestService(repo *fakeIdentityRepo) Service {
	return buildTestService(repo, nil, nil, testConfig)
}

func register(t *testing.T, svc Service, username, email, pw string) *LoginResult {
	t.Helper()
	result, err := svc.Register(context.Background(), models.RegisterInput{
		Username: username,
		Email:    email,
		Password: pw,
	})
	require.NoError(t, err)
	return result
}

// walletSigner generates a throwaway keypair and returns its address plus
// a personal_sign implementation over it.
func walletSigner(t *testing.T) (string, func(string) string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	sign := func(message string) string {
		sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
		require.NoError(t, err)
		return hexutil.Encode(sig)
	}
	return address, sign
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeIdentityRepo())

	result, err := svc.Register(ctx, models.RegisterInput{
		Username: "Alice",
		Email:    "Alice@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)

	assert.Equal(t, StateAuthenticated, result.State)
	require.NotNil(t, result.Session)
	assert.NotEmpty(t, result.Session.Token)
	assert.Equal(t, "alice", result.Identity.Username, "handles are stored lowercase")
	require.NotNil(t, result.Identity.Email)
	assert.Equal(t, "alice@example.com", *result.Identity.Email)
	assert.Equal(t, models.AuthTypeCredential, result.Identity.AuthType)

	// Registration implies login: the returned session already resolves.
	identity, _, err := svc.ResolveSession(ctx, result.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Identity.ID, identity.ID)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Register(ctx, models.RegisterInput{
			Username: "alice", Email: "other@example.com", Password: "secret1",
		})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, models.RegisterInput{
			Username: "bob", Email: "alice@example.com", Password: "secret1",
		})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestSubmitCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeIdentityRepo())
	register(t, svc, "alice", "alice@example.com", "secret1")

	t.Run("success", func(t *testing.T) {
		result, err := svc.SubmitCredentials(ctx, "alice", "secret1")
		require.NoError(t, err)
		assert.Equal(t, StateAuthenticated, result.State)
		assert.NotEmpty(t, result.Session.Token)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := svc.SubmitCredentials(ctx, "mallory", "secret1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SubmitCredentials(ctx, "alice", "secret2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("username is case-insensitive", func(t *testing.T) {
		result, err := svc.SubmitCredentials(ctx, "ALICE", "secret1")
		require.NoError(t, err)
		assert.Equal(t, StateAuthenticated, result.State)
	})

	t.Run("each login issues a distinct session", func(t *testing.T) {
		first, err := svc.SubmitCredentials(ctx, "alice", "secret1")
		require.NoError(t, err)
		second, err := svc.SubmitCredentials(ctx, "alice", "secret1")
		require.NoError(t, err)
		assert.NotEqual(t, first.Session.Token, second.Session.Token)

		// Both stay live; issuing never revokes siblings.
		_, _, err = svc.ResolveSession(ctx, first.Session.Token)
		assert.NoError(t, err)
	})
}

func TestSecondFactorLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newFakeIdentityRepo()
	svc := newTestService(repo)
	id := register(t, svc, "alice", "alice@example.com", "secret1").Identity.ID

	setup, err := svc.SetupSecondFactor(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.ProvisioningURI, "otpauth://totp/")

	// The secret is stored inert: logins stay single-step until one code
	// has verified.
	result, err := svc.SubmitCredentials(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, result.State)

	code, err := totplib.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	assert.ErrorIs(t, svc.EnableSecondFactor(ctx, id, wrong), ErrInvalidCode)
	identity, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.False(t, identity.TOTPEnabled, "a failed code must not enable the factor")

	require.NoError(t, svc.EnableSecondFactor(ctx, id, code))
	identity, err = repo.GetByID(id)
	require.NoError(t, err)
	assert.True(t, identity.TOTPEnabled)

	// A second setup while the factor is active is rejected.
	_, err = svc.SetupSecondFactor(ctx, id)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Logins now stop at the second-factor gate, without a session.
	pending, err := svc.SubmitCredentials(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSecondFactor, pending.State)
	assert.NotEmpty(t, pending.PendingRef)
	assert.Nil(t, pending.Session)

	_, err = svc.SubmitSecondFactor(ctx, pending.PendingRef, wrong)
	assert.ErrorIs(t, err, ErrInvalidCode)

	code, err = totplib.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	finished, err := svc.SubmitSecondFactor(ctx, pending.PendingRef, code)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, finished.State)
	assert.NotEmpty(t, finished.Session.Token)

	// Disable drops the gate and the secret in one stroke.
	require.NoError(t, svc.DisableSecondFactor(ctx, id))
	identity, err = repo.GetByID(id)
	require.NoError(t, err)
	assert.False(t, identity.TOTPEnabled)
	assert.Empty(t, identity.TOTPSecret)

	direct, err := svc.SubmitCredentials(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, direct.State)
}

func TestPendingReferenceValidation(t *testing.T) {
	ctx := context.Background()
	repo := newFakeIdentityRepo()
	svc := newTestService(repo)
	id := register(t, svc, "alice", "alice@example.com", "secret1").Identity.ID

	setup, err := svc.SetupSecondFactor(ctx, id)
	require.NoError(t, err)
	code, err := totplib.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableSecondFactor(ctx, id, code))

	t.Run("garbage reference", func(t *testing.T) {
		_, err := svc.SubmitSecondFactor(ctx, "not-a-token", code)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("reference signed with another secret", func(t *testing.T) {
		other := buildTestService(repo, nil, nil, Config{PendingTokenSecret: "other-secret"})
		pending, err := other.SubmitCredentials(ctx, "alice", "secret1")
		require.NoError(t, err)

		_, err = svc.SubmitSecondFactor(ctx, pending.PendingRef, code)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("reference with wrong audience", func(t *testing.T) {
		claims := &models.PendingSecondFactorClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Audience:  jwt.ClaimStrings{"auth:password_reset"},
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			IdentityID: id,
		}
		ref, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte(testConfig.PendingTokenSecret))
		require.NoError(t, err)

		_, err = svc.SubmitSecondFactor(ctx, ref, code)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("expired reference", func(t *testing.T) {
		shortLived := buildTestService(repo, nil, nil, Config{
			PendingTokenSecret: "test-pending-secret",
			PendingTokenTTL:    time.Nanosecond,
		})
		pending, err := shortLived.SubmitCredentials(ctx, "alice", "secret1")
		require.NoError(t, err)

		_, err = shortLived.SubmitSecondFactor(ctx, pending.PendingRef, code)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("factor disabled after reference issued", func(t *testing.T) {
		pending, err := svc.SubmitCredentials(ctx, "alice", "secret1")
		require.NoError(t, err)
		require.NoError(t, svc.DisableSecondFactor(ctx, id))

		_, err = svc.SubmitSecondFactor(ctx, pending.PendingRef, code)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestWalletLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeIdentityRepo())
	address, sign := walletSigner(t)

	challenge, err := svc.WalletChallenge(ctx, address)
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.Nonce)
	assert.Contains(t, challenge.Message, "app.example.com wants you to sign in")

	result, err := svc.SubmitWalletSignature(ctx, address, sign(challenge.Message), challenge.Message)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, result.State)
	assert.True(t, result.Registered, "first contact registers implicitly")
	assert.Equal(t, strings.ToLower(address), result.Identity.Username)
	require.NotNil(t, result.Identity.WalletAddress)
	assert.Equal(t, strings.ToLower(address), *result.Identity.WalletAddress)
	assert.Equal(t, models.AuthTypeWallet, result.Identity.AuthType)
	assert.Nil(t, result.Identity.Email)

	t.Run("same address maps to the same identity", func(t *testing.T) {
		again, err := svc.WalletChallenge(ctx, address)
		require.NoError(t, err)
		second, err := svc.SubmitWalletSignature(ctx, address, sign(again.Message), again.Message)
		require.NoError(t, err)
		assert.False(t, second.Registered)
		assert.Equal(t, result.Identity.ID, second.Identity.ID)
	})

	t.Run("challenge replay is rejected", func(t *testing.T) {
		_, err := svc.SubmitWalletSignature(ctx, address, sign(challenge.Message), challenge.Message)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("password login can never succeed for a wallet account", func(t *testing.T) {
		_, err := svc.SubmitCredentials(ctx, strings.ToLower(address), "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = svc.SubmitCredentials(ctx, strings.ToLower(address), "password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("signature from another key is rejected", func(t *testing.T) {
		_, otherSign := walletSigner(t)
		fresh, err := svc.WalletChallenge(ctx, address)
		require.NoError(t, err)
		_, err = svc.SubmitWalletSignature(ctx, address, otherSign(fresh.Message), fresh.Message)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})
}

func TestSubmitExternalProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeIdentityRepo())

	profile := ExternalProfile{Provider: "google", Subject: "sub-1", Email: "Jane.Doe@Example.com", Name: "Jane Doe"}

	result, err := svc.SubmitExternalProfile(ctx, profile)
	require.NoError(t, err)
	assert.True(t, result.Registered)
	assert.Equal(t, "jane_doe", result.Identity.Username)
	require.NotNil(t, result.Identity.Email)
	assert.Equal(t, "jane.doe@example.com", *result.Identity.Email)
	assert.Equal(t, models.AuthTypeOAuth, result.Identity.AuthType)

	t.Run("second callback reuses the identity", func(t *testing.T) {
		second, err := svc.SubmitExternalProfile(ctx, profile)
		require.NoError(t, err)
		assert.False(t, second.Registered)
		assert.Equal(t, result.Identity.ID, second.Identity.ID)
	})

	t.Run("matches an existing credential account by email", func(t *testing.T) {
		reg := register(t, svc, "bob", "bob@example.com", "secret1")
		linked, err := svc.SubmitExternalProfile(ctx, ExternalProfile{Provider: "github", Subject: "42", Email: "bob@example.com"})
		require.NoError(t, err)
		assert.False(t, linked.Registered)
		assert.Equal(t, reg.Identity.ID, linked.Identity.ID)
		assert.Equal(t, models.AuthTypeCredential, linked.Identity.AuthType)
	})

	t.Run("derived username collision gets a suffix", func(t *testing.T) {
		taken, err := svc.SubmitExternalProfile(ctx, ExternalProfile{Provider: "google", Subject: "s2", Email: "jane.doe@other.com"})
		require.NoError(t, err)
		assert.True(t, taken.Registered)
		assert.True(t, strings.HasPrefix(taken.Identity.Username, "jane_doe_"), "got %q", taken.Identity.Username)
	})

	t.Run("profile without email is rejected", func(t *testing.T) {
		_, err := svc.SubmitExternalProfile(ctx, ExternalProfile{Provider: "google", Subject: "s3"})
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newFakeIdentityRepo()
	svc := newTestService(repo)
	result := register(t, svc, "alice", "alice@example.com", "secret1")
	token := result.Session.Token

	identity, sess, err := svc.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, result.Identity.ID, identity.ID)
	assert.Equal(t, result.Identity.ID, sess.IdentityID)

	t.Run("unknown token", func(t *testing.T) {
		_, _, err := svc.ResolveSession(ctx, "never-issued")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("logout revokes exactly this session", func(t *testing.T) {
		second, err := svc.SubmitCredentials(ctx, "alice", "secret1")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, token))
		_, _, err = svc.ResolveSession(ctx, token)
		assert.ErrorIs(t, err, ErrNotAuthenticated)

		_, _, err = svc.ResolveSession(ctx, second.Session.Token)
		assert.NoError(t, err)
	})

	t.Run("logout of a dead token reports not authenticated", func(t *testing.T) {
		assert.ErrorIs(t, svc.Logout(ctx, token), ErrNotAuthenticated)
	})

	t.Run("session of a deleted identity stops resolving", func(t *testing.T) {
		doomed, err := svc.SubmitCredentials(ctx, "alice", "secret1")
		require.NoError(t, err)
		require.NoError(t, repo.Delete(doomed.Identity.ID))

		_, _, err = svc.ResolveSession(ctx, doomed.Session.Token)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeIdentityRepo())
	id := register(t, svc, "alice", "alice@example.com", "secret1").Identity.ID

	assert.ErrorIs(t, svc.ChangePassword(ctx, id, "wrong", "anotherpass"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, id, "secret1", "tiny"), ErrPasswordPolicy)

	require.NoError(t, svc.ChangePassword(ctx, id, "secret1", "much-better-secret"))

	_, err := svc.SubmitCredentials(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := svc.SubmitCredentials(ctx, "alice", "much-better-secret")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, result.State)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) LoginAttempt(method, outcome string) { m.Called(method, outcome) }
func (m *MockMetrics) SecondFactorCheck(outcome string)    { m.Called(outcome) }
func (m *MockMetrics) SessionIssued()                      { m.Called() }

func TestLoginMetrics(t *testing.T) {
	ctx := context.Background()
	metrics := new(MockMetrics)
	svc := buildTestService(newFakeIdentityRepo(), nil, metrics, testConfig)

	metrics.On("LoginAttempt", MethodCredential, OutcomeSuccess).Return()
	metrics.On("SessionIssued").Return()
	register(t, svc, "alice", "alice@example.com", "secret1")

	metrics.On("LoginAttempt", MethodCredential, OutcomeFailure).Return()
	_, err := svc.SubmitCredentials(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	metrics.AssertExpectations(t)
	metrics.AssertNumberOfCalls(t, "LoginAttempt", 2)
	metrics.AssertNumberOfCalls(t, "SessionIssued", 1)
}

type recordingPublisher struct {
	mu         sync.Mutex
	registered []events.IdentityRegistered
	logins     []events.Login
	logouts    []events.Logout
}

func (p *recordingPublisher) PublishIdentityRegistered(_ context.Context, e events.IdentityRegistered) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, e)
	return nil
}

func (p *recordingPublisher) PublishLogin(_ context.Context, e events.Login) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, e)
	return nil
}

func (p *recordingPublisher) PublishLogout(_ context.Context, e events.Logout) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, e)
	return nil
}

func (p *recordingPublisher) PublishPremiumChanged(context.Context, events.PremiumChanged) error {
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestDomainEventsEmitted(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := buildTestService(newFakeIdentityRepo(), pub, nil, testConfig)

	result, err := svc.Register(ctx, models.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	require.Len(t, pub.registered, 1)
	assert.Equal(t, "alice", pub.registered[0].Username)
	assert.Equal(t, models.AuthTypeCredential, pub.registered[0].AuthType)
	require.Len(t, pub.logins, 1)
	assert.Equal(t, MethodCredential, pub.logins[0].Method)

	require.NoError(t, svc.Logout(ctx, result.Session.Token))
	require.Len(t, pub.logouts, 1)
	assert.Equal(t, result.Identity.ID, pub.logouts[0].IdentityID)

	// A failed attempt emits nothing.
	_, err = svc.SubmitCredentials(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Len(t, pub.logins, 1)
}

func TestUsernameFromEmail(t *testing.T) {
	tests := []struct{ email, want string }{
		{"jane.doe@example.com", "jane_doe"},
		{"bob@example.com", "bob"},
		{"a+b-c@example.com", "a_b_c"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, usernameFromEmail(tt.email))
	}

	// Local parts too short for a username fall back to a generated name.
	assert.True(t, strings.HasPrefix(usernameFromEmail("x@example.com"), "user_"))
}
