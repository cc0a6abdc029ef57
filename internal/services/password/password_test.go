package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashProducesUniqueRecords(t *testing.T) {
	first, err := Hash("secret1")
	require.NoError(t, err)
	second, err := Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "every hash gets a fresh salt")
	assert.True(t, Verify("secret1", first))
	assert.True(t, Verify("secret1", second))
}

func TestVerify(t *testing.T) {
	record, err := Hash("correct horse battery staple")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		record   string
		want     bool
	}{
		{"matching password", "correct horse battery staple", record, true},
		{"wrong password", "Correct horse battery staple", record, false},
		{"empty password", "", record, false},
		{"empty record", "x", "", false},
		{"record without separator", "x", "notARecord", false},
		{"record with bad base64", "x", "!!!.###", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(tt.password, tt.record))
		})
	}
}

func TestRecordShape(t *testing.T) {
	record, err := Hash("hunter2")
	require.NoError(t, err)

	digest, salt, found := strings.Cut(record, ".")
	require.True(t, found, "record is digest.salt")
	assert.NotEmpty(t, digest)
	assert.NotEmpty(t, salt)
}

func TestMustHashUnusable(t *testing.T) {
	record := MustHashUnusable()
	assert.NotEmpty(t, record)
	assert.False(t, Verify("", record))
	assert.False(t, Verify("password", record))
	assert.NotEqual(t, record, MustHashUnusable())
}
