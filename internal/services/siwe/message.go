// Package siwe implements sign-in-with-Ethereum challenges: building the
// canonical EIP-4361 message, strict parsing of submitted messages, and
// EIP-191 personal_sign signature verification.
package siwe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MessageVersion is the only EIP-4361 version this service accepts.
	MessageVersion = "1"

	addressPreamble = " wants you to sign in with your Ethereum account:"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Message is a parsed EIP-4361 sign-in message. String renders it back to
// the canonical wire layout, so a message built by the server round-trips
// byte for byte.
type Message struct {
	Domain         string
	Address        string
	Statement      string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime time.Time
	Resources      []string
}

// String renders the message in the canonical EIP-4361 layout. The result
// is the exact byte sequence the wallet is asked to sign.
func (m *Message) String() string {
	var b strings.Builder
	b.WriteString(m.Domain)
	b.WriteString(addressPreamble)
	b.WriteString("\n")
	b.WriteString(m.Address)
	b.WriteString("\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement)
		b.WriteString("\n\n")
	}
	b.WriteString("URI: " + m.URI + "\n")
	b.WriteString("Version: " + m.Version + "\n")
	b.WriteString("Chain ID: " + strconv.FormatInt(m.ChainID, 10) + "\n")
	b.WriteString("Nonce: " + m.Nonce + "\n")
	b.WriteString("Issued At: " + m.IssuedAt.UTC().Format(time.RFC3339))
	if !m.ExpirationTime.IsZero() {
		b.WriteString("\nExpiration Time: " + m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	if len(m.Resources) > 0 {
		b.WriteString("\nResources:")
		for _, r := range m.Resources {
			b.WriteString("\n- " + r)
		}
	}
	return b.String()
}

// ParseMessage parses a raw EIP-4361 message. Parsing is strict: every
// required field must be present, in order, with the exact labels of the
// canonical layout. Any deviation returns ErrMalformedMessage.
func ParseMessage(raw string) (*Message, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) < 8 {
		return nil, fmt.Errorf("%w: too few lines", ErrMalformedMessage)
	}

	msg := &Message{}

	domain, ok := strings.CutSuffix(lines[0], addressPreamble)
	if !ok || domain == "" {
		return nil, fmt.Errorf("%w: bad header line", ErrMalformedMessage)
	}
	msg.Domain = domain

	if !addressPattern.MatchString(lines[1]) {
		return nil, fmt.Errorf("%w: bad account address", ErrMalformedMessage)
	}
	msg.Address = lines[1]

	if lines[2] != "" {
		return nil, fmt.Errorf("%w: missing separator after address", ErrMalformedMessage)
	}

	idx := 3
	if !strings.HasPrefix(lines[idx], "URI: ") {
		msg.Statement = lines[idx]
		idx++
		if idx >= len(lines) || lines[idx] != "" {
			return nil, fmt.Errorf("%w: missing separator after statement", ErrMalformedMessage)
		}
		idx++
	}

	uri, err := requiredField(lines, &idx, "URI: ")
	if err != nil {
		return nil, err
	}
	msg.URI = uri

	version, err := requiredField(lines, &idx, "Version: ")
	if err != nil {
		return nil, err
	}
	if version != MessageVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedMessage, version)
	}
	msg.Version = version

	chainStr, err := requiredField(lines, &idx, "Chain ID: ")
	if err != nil {
		return nil, err
	}
	chainID, err := strconv.ParseInt(chainStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad chain id", ErrMalformedMessage)
	}
	msg.ChainID = chainID

	nonce, err := requiredField(lines, &idx, "Nonce: ")
	if err != nil {
		return nil, err
	}
	if len(nonce) < 8 {
		return nil, fmt.Errorf("%w: nonce too short", ErrMalformedMessage)
	}
	msg.Nonce = nonce

	issuedStr, err := requiredField(lines, &idx, "Issued At: ")
	if err != nil {
		return nil, err
	}
	issuedAt, err := time.Parse(time.RFC3339, issuedStr)
	if err != nil {
		return nil, fmt.Errorf("%w: bad issued-at timestamp", ErrMalformedMessage)
	}
	msg.IssuedAt = issuedAt

	if idx < len(lines) && strings.HasPrefix(lines[idx], "Expiration Time: ") {
		expStr := strings.TrimPrefix(lines[idx], "Expiration Time: ")
		exp, err := time.Parse(time.RFC3339, expStr)
		if err != nil {
			return nil, fmt.Errorf("%w: bad expiration timestamp", ErrMalformedMessage)
		}
		msg.ExpirationTime = exp
		idx++
	}

	if idx < len(lines) && lines[idx] == "Resources:" {
		idx++
		for ; idx < len(lines); idx++ {
			res, ok := strings.CutPrefix(lines[idx], "- ")
			if !ok || res == "" {
				return nil, fmt.Errorf("%w: bad resource entry", ErrMalformedMessage)
			}
			msg.Resources = append(msg.Resources, res)
		}
	}

	if idx != len(lines) {
		return nil, fmt.Errorf("%w: trailing content", ErrMalformedMessage)
	}
	return msg, nil
}

func requiredField(lines []string, idx *int, label string) (string, error) {
	if *idx >= len(lines) {
		return "", fmt.Errorf("%w: missing %q field", ErrMalformedMessage, strings.TrimSuffix(label, ": "))
	}
	value, ok := strings.CutPrefix(lines[*idx], label)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: missing %q field", ErrMalformedMessage, strings.TrimSuffix(label, ": "))
	}
	*idx++
	return value, nil
}
