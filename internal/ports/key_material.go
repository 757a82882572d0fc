package ports

import (
	"context"
	"errors"
)

// ErrNoKeyMaterial means a source has nothing configured; resolution moves
// on to the next source in the chain.
var ErrNoKeyMaterial = errors.New("no encryption key material configured")

// KeyMaterialSource yields the master secret the credential cipher derives
// its key from.
type KeyMaterialSource interface {
	Material(ctx context.Context) (string, error)
}
