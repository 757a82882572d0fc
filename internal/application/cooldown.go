package application

import (
	"sync"
	"time"
)

type CooldownScope string

const (
	CooldownScopeUser    CooldownScope = "user"
	CooldownScopeChannel CooldownScope = "channel"
)

type cooldownKey struct {
	guildID int64
	id      int64
}

// CooldownTracker enforces minimum spacing between requests per
// (guild, user) and per (guild, channel). Timestamps come from the process
// monotonic clock, so wall-clock adjustments cannot shorten or extend a
// cooldown.
type CooldownTracker struct {
	mu       sync.Mutex
	users    map[cooldownKey]time.Time
	channels map[cooldownKey]time.Time
	now      func() time.Time
}

func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{
		users:    make(map[cooldownKey]time.Time),
		channels: make(map[cooldownKey]time.Time),
		now:      time.Now,
	}
}

// Check returns the remaining unmet cooldown, user scope checked before
// channel scope. ok is false when no cooldown blocks the request.
func (t *CooldownTracker) Check(guildID, userID, channelID int64, userCooldown, channelCooldown time.Duration) (time.Duration, CooldownScope, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.users[cooldownKey{guildID, userID}]; ok {
		if remaining := userCooldown - now.Sub(last); remaining > 0 {
			return remaining, CooldownScopeUser, true
		}
	}
	if last, ok := t.channels[cooldownKey{guildID, channelID}]; ok {
		if remaining := channelCooldown - now.Sub(last); remaining > 0 {
			return remaining, CooldownScopeChannel, true
		}
	}
	return 0, "", false
}

// Commit unconditionally stamps now for both keys. It runs after every
// other admission check has passed and before dispatch, so a request that
// fails upstream still consumes its cooldown.
func (t *CooldownTracker) Commit(guildID, userID, channelID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.users[cooldownKey{guildID, userID}] = now
	t.channels[cooldownKey{guildID, channelID}] = now
}
