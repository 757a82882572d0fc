package secretbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiqbot/keypool/internal/ports"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	cipher := New("master secret")

	payload, err := cipher.Encrypt("sk-or-v1-abcdef")
	require.NoError(t, err)
	assert.NotContains(t, payload, "sk-or-v1-abcdef")
	assert.Contains(t, payload, ":")

	plaintext, err := cipher.Decrypt(payload)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-v1-abcdef", plaintext)
}

func TestEncryptProducesUniquePayloads(t *testing.T) {
	t.Parallel()

	cipher := New("master secret")

	first, err := cipher.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecryptWithDifferentMaterialFails(t *testing.T) {
	t.Parallel()

	payload, err := New("material one").Encrypt("secret value")
	require.NoError(t, err)

	_, err = New("material two").Decrypt(payload)
	assert.ErrorIs(t, err, ports.ErrCiphertextInvalid)
}

func TestUnconfiguredCipher(t *testing.T) {
	t.Parallel()

	cipher := New("")

	_, err := cipher.Encrypt("anything")
	assert.ErrorIs(t, err, ports.ErrCipherUnconfigured)

	_, err = cipher.Decrypt("whatever:payload")
	assert.ErrorIs(t, err, ports.ErrCipherUnconfigured)
}

func TestDecryptMalformedPayload(t *testing.T) {
	t.Parallel()

	cipher := New("master secret")

	tests := []struct {
		name    string
		payload string
	}{
		{"no separator", "justonechunk"},
		{"bad nonce encoding", "!!!:aGVsbG8="},
		{"short nonce", "aGVsbG8=:aGVsbG8="},
		{"bad box encoding", strings.Repeat("A", 32) + ":!!!"},
		{"tampered box", mustEncrypt(t, "master secret", "value")[:20] + "TAMPERED"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := cipher.Decrypt(tt.payload)
			assert.ErrorIs(t, err, ports.ErrCiphertextInvalid)
		})
	}
}

func mustEncrypt(t *testing.T, material, plaintext string) string {
	t.Helper()
	payload, err := New(material).Encrypt(plaintext)
	require.NoError(t, err)
	return payload
}
