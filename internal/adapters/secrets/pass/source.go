// Package pass resolves the master encryption secret from the standard
// unix password manager.
package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/logiqbot/keypool/internal/ports"
)

const DefaultEntry = "keypool/enc-secret"

var ErrUnavailable = errors.New("pass command unavailable")

type runFunc func(ctx context.Context, input string, args ...string) (stdout string, stderr string, err error)

type Source struct {
	entry string
	run   runFunc
}

var _ ports.KeyMaterialSource = (*Source)(nil)

func NewSource(entry string) *Source {
	if entry == "" {
		entry = DefaultEntry
	}
	return &Source{entry: entry, run: runPassCommand}
}

func (s *Source) Material(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, "", "show", s.entry)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return "", fmt.Errorf("pass show %q: %w: %w", s.entry, err, ports.ErrNoKeyMaterial)
		}
		if isEntryMissing(err, stderr) {
			return "", fmt.Errorf("pass entry %q not found: %w", s.entry, ports.ErrNoKeyMaterial)
		}
		return "", formatError("show", s.entry, err, stderr)
	}

	stdout = strings.TrimSuffix(stdout, "\n")
	stdout = strings.TrimSuffix(stdout, "\r")
	if stdout == "" {
		return "", fmt.Errorf("pass entry %q is empty: %w", s.entry, ports.ErrNoKeyMaterial)
	}

	return stdout, nil
}

// Store writes the master secret into the pass entry, creating it when
// missing.
func (s *Source) Store(ctx context.Context, material string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := s.run(ctx, material+"\n", "insert", "-m", "-f", s.entry)
	if err != nil {
		return formatError("insert", s.entry, err, stderr)
	}

	return nil
}

// isEntryMissing recognizes the missing-entry outcome of pass show, which
// exits 1 with an "is not in the password store" message. gpg and store
// failures exit with other codes and stay hard errors.
func isEntryMissing(err error, stderr string) bool {
	if strings.Contains(stderr, "is not in the password store") {
		return true
	}

	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

func runPassCommand(ctx context.Context, input string, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func formatError(op string, entry string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("pass %s %q: %w", op, entry, err)
	}

	return fmt.Errorf("pass %s %q: %w: %s", op, entry, err, stderr)
}
