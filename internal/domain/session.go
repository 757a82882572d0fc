package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversational session.
type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Session is the bounded conversational history for one
// (guild, user, channel) triple.
type Session struct {
	GuildID   int64
	UserID    int64
	ChannelID int64

	Turns          []Turn
	Active         bool
	PrivateDefault bool
	Mode           string

	UpdatedAt time.Time
}

// TrimTurns bounds a turn sequence to the most recent maxUserTurns
// user-authored turns, keeping assistant turns that follow the earliest
// retained user turn. Relative order is preserved. A non-positive cap
// empties the history.
func TrimTurns(turns []Turn, maxUserTurns int) []Turn {
	if maxUserTurns <= 0 {
		return nil
	}

	userTurns := 0
	start := 0
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			userTurns++
		}
		start = i
		if userTurns >= maxUserTurns {
			break
		}
	}

	trimmed := make([]Turn, len(turns)-start)
	copy(trimmed, turns[start:])
	return trimmed
}
