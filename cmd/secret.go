package cmd

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const generatedSecretBytes = 32

func newSecretCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the master encryption secret",
		Long:  "The master secret encrypts stored API keys. It is resolved from KEYPOOL_ENC_SECRET, then pass, then the data directory.",
	}

	cmd.AddCommand(newSecretSetCmd(app), newSecretGenerateCmd(app))

	return cmd
}

func newSecretSetCmd(app *app) *cobra.Command {
	var value string
	var toPass bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the master secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			material := strings.TrimSpace(value)
			if material == "" {
				// No flag given: read one line from stdin so the secret
				// stays out of shell history.
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read secret from stdin: %w", err)
				}
				material = strings.TrimSpace(line)
			}
			if material == "" {
				return fmt.Errorf("secret cannot be empty")
			}

			return storeSecret(cmd, app, material, toPass)
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "secret value; omit to read from stdin")
	cmd.Flags().BoolVar(&toPass, "pass", false, "also store the secret in pass")

	return cmd
}

func newSecretGenerateCmd(app *app) *cobra.Command {
	var toPass bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and store a random master secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw := make([]byte, generatedSecretBytes)
			if _, err := rand.Read(raw); err != nil {
				return fmt.Errorf("generate secret: %w", err)
			}

			return storeSecret(cmd, app, base64.StdEncoding.EncodeToString(raw), toPass)
		},
	}

	cmd.Flags().BoolVar(&toPass, "pass", false, "also store the secret in pass")

	return cmd
}

func storeSecret(cmd *cobra.Command, app *app, material string, toPass bool) error {
	if err := app.secretFile.Store(cmd.Context(), material); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "secret stored in data directory")

	if toPass {
		if err := app.secretPass.Store(cmd.Context(), material); err != nil {
			return fmt.Errorf("store secret in pass: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "secret stored in pass")
	}

	return nil
}
