package domain

import "errors"

var (
	ErrCredentialNotFound    = errors.New("credential not found")
	ErrCredentialExists      = errors.New("credential already exists")
	ErrGuildSettingsNotFound = errors.New("guild settings not found")
	ErrSessionNotFound       = errors.New("session not found")
)
