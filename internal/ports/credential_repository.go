package ports

import (
	"context"
	"time"

	"github.com/logiqbot/keypool/internal/domain"
)

// CredentialUpdate names the fields a partial update may touch. Nil pointers
// leave the stored value alone; the Clear flags reset their field to the
// zero value.
type CredentialUpdate struct {
	Enabled  *bool
	RPMLimit *int
	RPDLimit *int

	MinuteWindowStart *time.Time
	MinuteWindowCount *int
	DayWindowStart    *time.Time
	DayWindowCount    *int

	CooldownUntil *time.Time
	ClearCooldown bool

	LastUsedAt    *time.Time
	LastErrorCode *int
	LastError     *string
	LastErrorAt   *time.Time
	ClearError    bool

	Notes        *string
	ProviderInfo *string

	UpdatedAt time.Time
}

// Apply merges the update into a credential in place. Document stores
// translate the update to their native partial-write form instead.
func (u CredentialUpdate) Apply(c *domain.Credential) {
	if u.Enabled != nil {
		c.Enabled = *u.Enabled
	}
	if u.RPMLimit != nil {
		c.RPMLimit = *u.RPMLimit
	}
	if u.RPDLimit != nil {
		c.RPDLimit = *u.RPDLimit
	}
	if u.MinuteWindowStart != nil {
		c.MinuteWindowStart = *u.MinuteWindowStart
	}
	if u.MinuteWindowCount != nil {
		c.MinuteWindowCount = *u.MinuteWindowCount
	}
	if u.DayWindowStart != nil {
		c.DayWindowStart = *u.DayWindowStart
	}
	if u.DayWindowCount != nil {
		c.DayWindowCount = *u.DayWindowCount
	}
	if u.ClearCooldown {
		c.CooldownUntil = time.Time{}
	}
	if u.CooldownUntil != nil {
		c.CooldownUntil = *u.CooldownUntil
	}
	if u.LastUsedAt != nil {
		c.LastUsedAt = *u.LastUsedAt
	}
	if u.ClearError {
		c.LastErrorCode = 0
		c.LastError = ""
		c.LastErrorAt = time.Time{}
	}
	if u.LastErrorCode != nil {
		c.LastErrorCode = *u.LastErrorCode
	}
	if u.LastError != nil {
		c.LastError = *u.LastError
	}
	if u.LastErrorAt != nil {
		c.LastErrorAt = *u.LastErrorAt
	}
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
	if u.ProviderInfo != nil {
		c.ProviderInfo = *u.ProviderInfo
	}
	if !u.UpdatedAt.IsZero() {
		c.UpdatedAt = u.UpdatedAt
	}
}

type CredentialRepository interface {
	List(ctx context.Context, guildID int64) ([]domain.Credential, error)
	GetByName(ctx context.Context, guildID int64, name string) (domain.Credential, error)
	Create(ctx context.Context, credential domain.Credential) error
	Update(ctx context.Context, guildID int64, name string, update CredentialUpdate) error
	Delete(ctx context.Context, guildID int64, name string) error
}
