package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Credential is one pooled upstream API key scoped to a guild. The plaintext
// key is never stored; EncryptedKey holds the opaque cipher payload and
// Fingerprint is the only displayable derivative.
type Credential struct {
	GuildID      int64
	Name         string
	EncryptedKey string
	Fingerprint  string

	RPMLimit int
	RPDLimit int

	MinuteWindowStart time.Time
	MinuteWindowCount int
	DayWindowStart    time.Time
	DayWindowCount    int

	Enabled       bool
	CooldownUntil time.Time

	Notes        string
	ProviderInfo string

	LastUsedAt    time.Time
	LastErrorCode int
	LastError     string
	LastErrorAt   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Credential) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if c.GuildID == 0 {
		return fmt.Errorf("guild id is required")
	}
	if c.RPMLimit < 1 || c.RPDLimit < 1 {
		return fmt.Errorf("rpm and rpd limits must be at least 1")
	}
	return nil
}

// FingerprintKey derives a short display fingerprint from a plaintext key:
// the first 8 hex chars of its sha256 digest plus the last 4 characters.
func FingerprintKey(apiKey string) string {
	digest := sha256.Sum256([]byte(apiKey))
	last4 := apiKey
	if len(apiKey) >= 4 {
		last4 = apiKey[len(apiKey)-4:]
	}
	return hex.EncodeToString(digest[:])[:8] + ":" + last4
}
