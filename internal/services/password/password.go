// Package password implements the salted one-way password hashing used for
// credential accounts. Records are argon2id digests serialized together with
// their salt; verification is constant-time.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Memory-hard on purpose: 64 MiB per derivation keeps
// offline brute force expensive without noticeable login latency.
const (
	saltLength  = 16
	timeCost    = 1
	memoryCost  = 64 * 1024
	parallelism = 4
	keyLength   = 32
)

// Hash derives an argon2id digest from the password and a fresh random salt
// and returns the serialized "digest.salt" record (both parts base64).
// Two calls with the same password produce different records.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt, timeCost, memoryCost, parallelism, keyLength)

	record := base64.RawStdEncoding.EncodeToString(digest) +
		"." + base64.RawStdEncoding.EncodeToString(salt)
	return record, nil
}

// Verify re-derives the digest with the record's salt and compares it to the
// stored digest in constant time. Any malformed record fails closed.
func Verify(password, record string) bool {
	digestPart, saltPart, found := strings.Cut(record, ".")
	if !found {
		return false
	}

	digest, err := base64.RawStdEncoding.DecodeString(digestPart)
	if err != nil || len(digest) != keyLength {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(saltPart)
	if err != nil || len(salt) != saltLength {
		return false
	}

	derived := argon2.IDKey([]byte(password), salt, timeCost, memoryCost, parallelism, keyLength)
	return subtle.ConstantTimeCompare(derived, digest) == 1
}

// MustHashUnusable returns the hash of a random throwaway password. Wallet
// and oauth accounts store one so the password column is never empty while
// no password can ever verify against it.
func MustHashUnusable() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		panic("failed to generate unusable password: " + err.Error())
	}
	record, err := Hash(base64.RawStdEncoding.EncodeToString(raw))
	if err != nil {
		panic("failed to hash unusable password: " + err.Error())
	}
	return record
}
