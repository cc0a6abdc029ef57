package siwe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func testMessage() *Message {
	issued := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &Message{
		Domain:         "app.example.com",
		Address:        testAddress,
		Statement:      "Sign in to Aurum",
		URI:            "https://app.example.com",
		Version:        MessageVersion,
		ChainID:        1,
		Nonce:          "a1b2c3d4e5f60718",
		IssuedAt:       issued,
		ExpirationTime: issued.Add(5 * time.Minute),
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := testMessage()
	raw := msg.String()

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)

	assert.Equal(t, msg.Domain, parsed.Domain)
	assert.Equal(t, msg.Address, parsed.Address)
	assert.Equal(t, msg.Statement, parsed.Statement)
	assert.Equal(t, msg.URI, parsed.URI)
	assert.Equal(t, msg.Version, parsed.Version)
	assert.Equal(t, msg.ChainID, parsed.ChainID)
	assert.Equal(t, msg.Nonce, parsed.Nonce)
	assert.True(t, msg.IssuedAt.Equal(parsed.IssuedAt))
	assert.True(t, msg.ExpirationTime.Equal(parsed.ExpirationTime))

	// Re-rendering the parsed message must reproduce the raw bytes, since
	// those bytes are what the wallet signed.
	assert.Equal(t, raw, parsed.String())
}

func TestMessageRoundTripVariants(t *testing.T) {
	t.Run("without statement", func(t *testing.T) {
		msg := testMessage()
		msg.Statement = ""
		raw := msg.String()

		parsed, err := ParseMessage(raw)
		require.NoError(t, err)
		assert.Empty(t, parsed.Statement)
		assert.Equal(t, raw, parsed.String())
	})

	t.Run("with resources", func(t *testing.T) {
		msg := testMessage()
		msg.Resources = []string{"https://app.example.com/profile", "ipfs://QmXoypizjW3WknFiJnKLwHCnL72vedxjQkDDP1mXWo6uco"}
		raw := msg.String()

		parsed, err := ParseMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, msg.Resources, parsed.Resources)
		assert.Equal(t, raw, parsed.String())
	})
}

func TestParseMessageRejectsMalformed(t *testing.T) {
	valid := testMessage().String()

	tests := []struct {
		name   string
		mutate func(string) string
	}{
		{"empty input", func(string) string { return "" }},
		{"missing preamble", func(raw string) string {
			return strings.Replace(raw, addressPreamble, " says:", 1)
		}},
		{"bad address", func(raw string) string {
			return strings.Replace(raw, testAddress, "0x1234", 1)
		}},
		{"missing separator after address", func(raw string) string {
			return strings.Replace(raw, "\n\nSign in to Aurum", "\nSign in to Aurum", 1)
		}},
		{"unsupported version", func(raw string) string {
			return strings.Replace(raw, "Version: 1", "Version: 2", 1)
		}},
		{"bad chain id", func(raw string) string {
			return strings.Replace(raw, "Chain ID: 1", "Chain ID: mainnet", 1)
		}},
		{"short nonce", func(raw string) string {
			return strings.Replace(raw, "Nonce: a1b2c3d4e5f60718", "Nonce: abc", 1)
		}},
		{"bad issued-at", func(raw string) string {
			return strings.Replace(raw, "Issued At: 2025-06-01T10:00:00Z", "Issued At: yesterday", 1)
		}},
		{"trailing content", func(raw string) string {
			return raw + "\nP.S. also sign this"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage(tt.mutate(valid))
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}
