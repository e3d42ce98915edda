package secrets

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := NewCipher("0123456789abcdef")

	for _, plaintext := range []string{
		"wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY",
		"short",
		"a value longer than a single aes block, padded across several",
		"",
	} {
		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)
		assert.Contains(t, encrypted, ":")

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptProducesFreshIV(t *testing.T) {
	c := NewCipher("0123456789abcdef")

	first, err := c.Encrypt("same secret")
	require.NoError(t, err)
	second, err := c.Encrypt("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, strings.SplitN(first, ":", 2)[0], strings.SplitN(second, ":", 2)[0])
}

func TestDecryptMalformed(t *testing.T) {
	c := NewCipher("0123456789abcdef")

	// empty, no separator, not hex, short iv, unaligned or empty ciphertext
	for _, encoded := range []string{
		"",
		"no-separator",
		"zz:zz",
		"abcd:ef01",
		strings.Repeat("00", 16) + ":ab",
		strings.Repeat("00", 16) + ":",
	} {
		_, err := c.Decrypt(encoded)
		assert.True(t, errors.Is(err, ErrMalformed), "expected ErrMalformed for %q, got %v", encoded, err)
	}
}

func TestShortSecretIsZeroPadded(t *testing.T) {
	short := NewCipher("abc")
	encrypted, err := short.Encrypt("value")
	require.NoError(t, err)

	decrypted, err := NewCipher("abc").Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "value", decrypted)
}
