// Package chain resolves the master encryption secret by trying a list of
// sources in order. Sources reporting no configured material are skipped;
// any other failure, including context cancellation, stops the walk.
package chain

import (
	"context"
	"errors"
	"fmt"

	envsource "github.com/logiqbot/keypool/internal/adapters/secrets/env"
	filesource "github.com/logiqbot/keypool/internal/adapters/secrets/file"
	passsource "github.com/logiqbot/keypool/internal/adapters/secrets/pass"
	"github.com/logiqbot/keypool/internal/ports"
)

type Source struct {
	sources []ports.KeyMaterialSource
}

var _ ports.KeyMaterialSource = (*Source)(nil)

var errNoSources = errors.New("key material chain has no sources")

func NewSource(sources ...ports.KeyMaterialSource) (*Source, error) {
	if len(sources) == 0 {
		return nil, errNoSources
	}
	for _, source := range sources {
		if source == nil {
			return nil, errors.New("key material source is nil")
		}
	}
	return &Source{sources: sources}, nil
}

// NewDefault builds the standard resolution order: environment variable,
// then pass, then a secret file under the data directory.
func NewDefault(secretFilePath string) (*Source, error) {
	return NewSource(
		envsource.NewSource(envsource.DefaultVar),
		passsource.NewSource(passsource.DefaultEntry),
		filesource.NewSource(secretFilePath),
	)
}

func (s *Source) Material(ctx context.Context) (string, error) {
	var firstErr error
	for _, source := range s.sources {
		material, err := source.Material(ctx)
		if err == nil {
			return material, nil
		}
		if shouldStop(err) {
			return "", err
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return "", fmt.Errorf("no key material source succeeded: %w", firstErr)
}

func shouldStop(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return !errors.Is(err, ports.ErrNoKeyMaterial)
}
