// Package env reads the master encryption secret from an environment
// variable. It is the first and cheapest source in the default chain.
package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/logiqbot/keypool/internal/ports"
)

const DefaultVar = "KEYPOOL_ENC_SECRET"

type Source struct {
	varName string
}

var _ ports.KeyMaterialSource = (*Source)(nil)

func NewSource(varName string) *Source {
	if varName == "" {
		varName = DefaultVar
	}
	return &Source{varName: varName}
}

func (s *Source) Material(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value := strings.TrimSpace(os.Getenv(s.varName))
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", s.varName, ports.ErrNoKeyMaterial)
	}
	return value, nil
}
