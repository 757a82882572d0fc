// Package file reads the master encryption secret from a plain file. The
// last resort in the default chain, for hosts without pass.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/logiqbot/keypool/internal/ports"
)

const (
	secretDirMode  = 0o700
	secretFileMode = 0o600
)

type Source struct {
	path string
	mu   sync.RWMutex
}

var _ ports.KeyMaterialSource = (*Source)(nil)

func NewSource(path string) *Source {
	return &Source{path: filepath.Clean(path)}
}

func (s *Source) Material(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("secret file %q not found: %w", s.path, ports.ErrNoKeyMaterial)
		}
		return "", fmt.Errorf("read secret file %q: %w", s.path, err)
	}

	material := strings.TrimSpace(string(data))
	if material == "" {
		return "", fmt.Errorf("secret file %q is empty: %w", s.path, ports.ErrNoKeyMaterial)
	}

	return material, nil
}

// Store writes the master secret with owner-only permissions.
func (s *Source) Store(ctx context.Context, material string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), secretDirMode); err != nil {
		return fmt.Errorf("create secret directory: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(material+"\n"), secretFileMode); err != nil {
		return fmt.Errorf("write secret file %q: %w", s.path, err)
	}

	return nil
}
