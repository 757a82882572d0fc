package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/logiqbot/keypool/internal/ports"
)

// LogNotifier reports credential lifecycle events through the process
// logger. Deployments with an operator channel can swap in their own
// ports.OperatorNotifier.
type LogNotifier struct {
	Log *zap.Logger
}

var _ ports.OperatorNotifier = LogNotifier{}

func (n LogNotifier) CredentialDisabled(_ context.Context, guildID int64, name string, statusCode int) {
	log := n.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Warn("AI key disabled",
		zap.Int64("guild_id", guildID),
		zap.String("key", name),
		zap.Int("status", statusCode))
}
