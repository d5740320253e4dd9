package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credledger/pkg/domain-errors"
)

const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestParseAddress(t *testing.T) {
	t.Run("keeps the supplied representation", func(t *testing.T) {
		a, err := ParseAddress(checksummed)
		require.NoError(t, err)
		assert.Equal(t, checksummed, a.String())
	})

	t.Run("adds a missing prefix", func(t *testing.T) {
		a, err := ParseAddress(strings.TrimPrefix(checksummed, "0x"))
		require.NoError(t, err)
		assert.Equal(t, checksummed, a.String())
	})

	t.Run("rejects empty and malformed input", func(t *testing.T) {
		for _, s := range []string{"", "0x1234", "not-an-address"} {
			_, err := ParseAddress(s)
			require.Error(t, err, s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestAddressEqual(t *testing.T) {
	a := MustAddress(checksummed)
	b := MustAddress(strings.ToLower(checksummed))

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.String(), b.String(), "storage form is never lower-cased")
	assert.True(t, MustAddress("0x0000000000000000000000000000000000000000").IsZero())
	assert.False(t, a.IsZero())
}

func TestParseHash(t *testing.T) {
	raw := strings.Repeat("Ab", 32)

	h, err := ParseHash(raw)
	require.NoError(t, err)
	assert.Equal(t, Hash("0x"+strings.ToLower(raw)), h)

	_, err = ParseHash("0xabcd")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestPublicKey(t *testing.T) {
	k, err := ParsePublicKey("DEADBEEF")
	require.NoError(t, err)
	assert.Equal(t, PublicKey("0xdeadbeef"), k)
	assert.False(t, k.IsUnset())

	zero, err := ParsePublicKey("00")
	require.NoError(t, err)
	assert.False(t, zero.IsUnset(), "a zero-valued key is still a key")

	assert.True(t, UnsetPublicKey.IsUnset())

	_, err = ParsePublicKey("0x")
	assert.Error(t, err)
}

func TestParseRequestID(t *testing.T) {
	id, err := ParseRequestID("42")
	require.NoError(t, err)
	assert.Equal(t, RequestID(42), id)

	for _, s := range []string{"0", "-1", "abc", ""} {
		_, err := ParseRequestID(s)
		assert.Error(t, err, s)
	}
}
