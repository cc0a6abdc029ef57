package siwe

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSigner generates a throwaway keypair and returns its address plus a
// personal_sign implementation over it.
func newSigner(t *testing.T) (string, func(string) string) {
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

func newTestVerifier() *Verifier {
	return NewVerifier(Config{
		Domain:    "app.example.com",
		URI:       "https://app.example.com",
		Statement: "Sign in to Aurum",
		ChainID:   1,
	}, NewMemoryNonceStore())
}

func TestVerifierHappyPath(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier()
	address, sign := newSigner(t)

	challenge, err := v.IssueChallenge(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, address, challenge.Address)
	assert.GreaterOrEqual(t, len(challenge.Nonce), 8)
	assert.False(t, challenge.ExpirationTime.IsZero())

	raw := challenge.String()
	msg, err := v.Verify(ctx, raw, sign(raw), address, time.Now())
	require.NoError(t, err)
	assert.Equal(t, challenge.Nonce, msg.Nonce)
}

func TestVerifierAcceptsLegacyRecoveryID(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier()
	address, sign := newSigner(t)

	challenge, err := v.IssueChallenge(ctx, address)
	require.NoError(t, err)

	raw := challenge.String()
	sig, err := hexutil.Decode(sign(raw))
	require.NoError(t, err)
	// Wallets commonly emit v as 27/28 instead of 0/1.
	sig[crypto.RecoveryIDOffset] += 27

	_, err = v.Verify(ctx, raw, hexutil.Encode(sig), address, time.Now())
	assert.NoError(t, err)
}

func TestVerifierNonceSingleUse(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier()
	address, sign := newSigner(t)

	challenge, err := v.IssueChallenge(ctx, address)
	require.NoError(t, err)

	raw := challenge.String()
	signature := sign(raw)

	_, err = v.Verify(ctx, raw, signature, address, time.Now())
	require.NoError(t, err)

	// Replaying the identical submission must fail: the nonce is gone.
	_, err = v.Verify(ctx, raw, signature, address, time.Now())
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifierRejectedSubmissionKeepsNonce(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier()
	address, sign := newSigner(t)
	_, otherSign := newSigner(t)

	challenge, err := v.IssueChallenge(ctx, address)
	require.NoError(t, err)
	raw := challenge.String()

	// A submission signed by the wrong key fails without consuming the
	// challenge, so the real signer can still complete it.
	_, err = v.Verify(ctx, raw, otherSign(raw), address, time.Now())
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = v.Verify(ctx, raw, sign(raw), address, time.Now())
	assert.NoError(t, err)
}

func TestVerifierValidityWindow(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier()
	address, sign := newSigner(t)

	challenge, err := v.IssueChallenge(ctx, address)
	require.NoError(t, err)
	raw := challenge.String()
	signature := sign(raw)

	_, err = v.Verify(ctx, raw, signature, address, challenge.IssuedAt.Add(-time.Second))
	assert.ErrorIs(t, err, ErrExpired)

	_, err = v.Verify(ctx, raw, signature, address, challenge.ExpirationTime.Add(time.Second))
	assert.ErrorIs(t, err, ErrExpired)

	// Still consumable inside the window after the failed attempts.
	_, err = v.Verify(ctx, raw, signature, address, challenge.IssuedAt.Add(time.Minute))
	assert.NoError(t, err)
}

func TestVerifierRejectsForeignMessages(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier()
	address, sign := newSigner(t)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	foreign := &Message{
		Domain:         "evil.example.com",
		Address:        address,
		URI:            "https://evil.example.com",
		Version:        MessageVersion,
		ChainID:        1,
		Nonce:          "a1b2c3d4e5f60718",
		IssuedAt:       now,
		ExpirationTime: now.Add(5 * time.Minute),
	}
	raw := foreign.String()
	_, err := v.Verify(ctx, raw, sign(raw), address, now)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	wrongChain := *foreign
	wrongChain.Domain = "app.example.com"
	wrongChain.ChainID = 137
	raw = wrongChain.String()
	_, err = v.Verify(ctx, raw, sign(raw), address, now)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	noExpiry := wrongChain
	noExpiry.ChainID = 1
	noExpiry.ExpirationTime = time.Time{}
	raw = noExpiry.String()
	_, err = v.Verify(ctx, raw, sign(raw), address, now)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestVerifierRejectsAddressMismatch(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier()
	address, sign := newSigner(t)
	otherAddress, _ := newSigner(t)

	challenge, err := v.IssueChallenge(ctx, address)
	require.NoError(t, err)
	raw := challenge.String()

	// Claiming someone else's address fails even with a valid signature
	// over the message.
	_, err = v.Verify(ctx, raw, sign(raw), otherAddress, time.Now())
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifierRejectsTamperedMessage(t *testing.T) {
	ctx := context.Background()
	v := newTestVerifier()
	address, sign := newSigner(t)

	challenge, err := v.IssueChallenge(ctx, address)
	require.NoError(t, err)
	raw := challenge.String()
	signature := sign(raw)

	// Swap the statement after signing; the signature no longer covers
	// the submitted bytes.
	tampered, err := ParseMessage(raw)
	require.NoError(t, err)
	tampered.Statement = "Sign over all your assets"

	_, err = v.Verify(ctx, tampered.String(), signature, address, time.Now())
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestRecoverAddress(t *testing.T) {
	address, sign := newSigner(t)
	message := "sign me"

	recovered, err := RecoverAddress(message, sign(message))
	require.NoError(t, err)
	assert.Equal(t, address, recovered.Hex())

	tests := []struct {
		name      string
		signature string
	}{
		{"not hex", "zzzz"},
		{"missing 0x prefix", "deadbeef"},
		{"wrong length", "0xdeadbeef"},
		{"bad recovery id", func() string {
			sig, _ := hexutil.Decode(sign(message))
			sig[crypto.RecoveryIDOffset] = 9
			return hexutil.Encode(sig)
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecoverAddress(message, tt.signature)
			assert.ErrorIs(t, err, ErrSignatureInvalid)
		})
	}
}
