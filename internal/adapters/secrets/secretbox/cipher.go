// Package secretbox encrypts credential secrets with NaCl SecretBox. The
// 32-byte box key is the sha256 digest of an operator-supplied master
// secret, so the same secret always opens the same stored payloads.
package secretbox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/logiqbot/keypool/internal/ports"
)

const nonceSize = 24

// Cipher implements ports.SecretCipher. A Cipher built from empty material
// is unconfigured and fails every operation with ErrCipherUnconfigured.
type Cipher struct {
	key *[32]byte
}

var _ ports.SecretCipher = (*Cipher)(nil)

func New(material string) *Cipher {
	if material == "" {
		return &Cipher{}
	}
	key := sha256.Sum256([]byte(material))
	return &Cipher{key: &key}
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if c.key == nil {
		return "", ports.ErrCipherUnconfigured
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nil, []byte(plaintext), &nonce, c.key)

	return base64.StdEncoding.EncodeToString(nonce[:]) + ":" +
		base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(payload string) (string, error) {
	if c.key == nil {
		return "", ports.ErrCipherUnconfigured
	}

	encodedNonce, encodedBox, found := strings.Cut(payload, ":")
	if !found {
		return "", ports.ErrCiphertextInvalid
	}

	rawNonce, err := base64.StdEncoding.DecodeString(encodedNonce)
	if err != nil || len(rawNonce) != nonceSize {
		return "", ports.ErrCiphertextInvalid
	}

	box, err := base64.StdEncoding.DecodeString(encodedBox)
	if err != nil {
		return "", ports.ErrCiphertextInvalid
	}

	var nonce [nonceSize]byte
	copy(nonce[:], rawNonce)

	opened, ok := secretbox.Open(nil, box, &nonce, c.key)
	if !ok {
		return "", ports.ErrCiphertextInvalid
	}

	return string(opened), nil
}
