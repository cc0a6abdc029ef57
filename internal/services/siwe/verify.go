package siwe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultChallengeTTL bounds how long an issued challenge stays signable.
const DefaultChallengeTTL = 5 * time.Minute

// Config carries the fields every challenge issued by this service shares.
type Config struct {
	Domain       string
	URI          string
	Statement    string
	ChainID      int64
	ChallengeTTL time.Duration
}

// Verifier issues sign-in challenges and verifies signed submissions
// against them.
type Verifier struct {
	cfg    Config
	nonces NonceStore
}

func NewVerifier(cfg Config, nonces NonceStore) *Verifier {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	return &Verifier{cfg: cfg, nonces: nonces}
}

// IssueChallenge builds a challenge message for the given wallet address
// and registers its nonce. The returned message's String form is what the
// wallet must sign, unchanged.
func (v *Verifier) IssueChallenge(ctx context.Context, address string) (*Message, error) {
	if !addressPattern.MatchString(address) {
		return nil, fmt.Errorf("%w: bad account address", ErrMalformedMessage)
	}
	nonce, err := v.nonces.Issue(ctx, v.cfg.ChallengeTTL)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	return &Message{
		Domain:         v.cfg.Domain,
		Address:        common.HexToAddress(address).Hex(),
		Statement:      v.cfg.Statement,
		URI:            v.cfg.URI,
		Version:        MessageVersion,
		ChainID:        v.cfg.ChainID,
		Nonce:          nonce,
		IssuedAt:       now,
		ExpirationTime: now.Add(v.cfg.ChallengeTTL),
	}, nil
}

// Verify checks a raw signed message against the signature and the address
// the caller claims to control. The signature is verified over the raw
// bytes as submitted, not over a re-rendering, so clients may sign exactly
// what they received. On success the nonce is consumed and the parsed
// message is returned.
func (v *Verifier) Verify(ctx context.Context, rawMessage, signature, claimedAddress string, at time.Time) (*Message, error) {
	msg, err := ParseMessage(rawMessage)
	if err != nil {
		return nil, err
	}
	if msg.Domain != v.cfg.Domain {
		return nil, fmt.Errorf("%w: message bound to domain %q", ErrMalformedMessage, msg.Domain)
	}
	if msg.ChainID != v.cfg.ChainID {
		return nil, fmt.Errorf("%w: message bound to chain %d", ErrMalformedMessage, msg.ChainID)
	}
	if msg.ExpirationTime.IsZero() {
		return nil, fmt.Errorf("%w: missing expiration time", ErrMalformedMessage)
	}

	if !addressPattern.MatchString(claimedAddress) {
		return nil, fmt.Errorf("%w: bad claimed address", ErrSignatureInvalid)
	}
	if !strings.EqualFold(msg.Address, claimedAddress) {
		return nil, fmt.Errorf("%w: message address does not match claimed address", ErrSignatureInvalid)
	}

	if at.Before(msg.IssuedAt) || at.After(msg.ExpirationTime) {
		return nil, fmt.Errorf("%w: outside validity window", ErrExpired)
	}

	recovered, err := RecoverAddress(rawMessage, signature)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(recovered.Hex(), claimedAddress) {
		return nil, fmt.Errorf("%w: signer does not match claimed address", ErrSignatureInvalid)
	}

	// The nonce is consumed only after every other check passes, so a
	// rejected submission does not burn the outstanding challenge.
	ok, err := v.nonces.Consume(ctx, msg.Nonce)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: challenge nonce already used or unknown", ErrExpired)
	}
	return msg, nil
}

// RecoverAddress recovers the signer of an EIP-191 personal_sign signature
// over the given message text. The signature is the 65-byte r||s||v form
// produced by wallets, hex-encoded, with v accepted as 0/1 or 27/28.
func RecoverAddress(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: undecodable signature", ErrSignatureInvalid)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature must be %d bytes", ErrSignatureInvalid, crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, fmt.Errorf("%w: bad recovery id", ErrSignatureInvalid)
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
