package ports

import "errors"

var (
	// ErrCipherUnconfigured means the cipher's master key material is
	// absent. This is a deployment problem, not a per-payload one, so a
	// dispatch cannot recover by trying another credential.
	ErrCipherUnconfigured = errors.New("secret cipher is not configured")

	// ErrCiphertextInvalid means one stored payload is corrupt or was
	// produced under different key material.
	ErrCiphertextInvalid = errors.New("ciphertext payload is invalid")
)

// SecretCipher encrypts credential secrets at rest. Payloads are opaque
// strings; only the cipher can interpret them.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(payload string) (string, error)
}
