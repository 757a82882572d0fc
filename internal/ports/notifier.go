package ports

import "context"

// OperatorNotifier surfaces credential lifecycle events that need human
// attention, such as a key disabled after an auth or credit failure.
type OperatorNotifier interface {
	CredentialDisabled(ctx context.Context, guildID int64, name string, statusCode int)
}

type NopNotifier struct{}

func (NopNotifier) CredentialDisabled(context.Context, int64, string, int) {}
