package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "github.com/logiqbot/keypool/internal/adapters/render/status"
	"github.com/logiqbot/keypool/internal/application"
)

func newKeysCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the guild's AI key pool",
	}

	cmd.AddCommand(
		newKeysAddCmd(app),
		newKeysListCmd(app),
		newKeysEnableCmd(app),
		newKeysDisableCmd(app),
		newKeysRemoveCmd(app),
		newKeysProbeCmd(app),
	)

	return cmd
}

func newKeysAddCmd(app *app) *cobra.Command {
	var guildID int64
	var name, apiKey, notes string
	var rpm, rpd int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Validate an API key upstream and add it to the pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, err := app.keys.AddKey(cmd.Context(), application.AddKeyCommand{
				GuildID: guildID,
				Name:    name,
				APIKey:  apiKey,
				RPM:     rpm,
				RPD:     rpd,
				Notes:   notes,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added key %s (%s) rpm=%d rpd=%d\n",
				cred.Name, cred.Fingerprint, cred.RPMLimit, cred.RPDLimit)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().StringVar(&name, "name", "", "unique key name within the guild")
	cmd.Flags().StringVar(&apiKey, "key", "", "plaintext API key; stored encrypted")
	cmd.Flags().IntVar(&rpm, "rpm", 0, "requests per minute limit (default 20)")
	cmd.Flags().IntVar(&rpd, "rpd", 0, "requests per day limit (default 200)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form operator notes")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func newKeysListCmd(app *app) *cobra.Command {
	var guildID int64
	var probe bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show pool status with per-window usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := app.keys.ListKeys(cmd.Context(), guildID)
			if err != nil {
				return err
			}

			if probe {
				for _, cred := range creds {
					if _, err := app.keys.ProbeKey(cmd.Context(), guildID, cred.Name); err != nil {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "probe %s: %v\n", cred.Name, err)
					}
				}
				if creds, err = app.keys.ListKeys(cmd.Context(), guildID); err != nil {
					return err
				}
			}

			output, err := app.statusRenderer(creds, statusadapter.RenderOptions{Now: app.now().UTC()})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().BoolVar(&probe, "probe", false, "probe each key upstream before rendering")
	_ = cmd.MarkFlagRequired("guild")

	return cmd
}

func newKeysEnableCmd(app *app) *cobra.Command {
	return newKeysToggleCmd(app, "enable", "Re-enable a disabled key", true)
}

func newKeysDisableCmd(app *app) *cobra.Command {
	return newKeysToggleCmd(app, "disable", "Disable a key without removing it", false)
}

func newKeysToggleCmd(app *app, use, short string, enabled bool) *cobra.Command {
	var guildID int64
	var name string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.keys.SetEnabled(cmd.Context(), guildID, name, enabled); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "key %s %sd\n", name, use)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newKeysRemoveCmd(app *app) *cobra.Command {
	var guildID int64
	var name string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a key from the pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.keys.RemoveKey(cmd.Context(), guildID, name); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "key %s removed\n", name)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newKeysProbeCmd(app *app) *cobra.Command {
	var guildID int64
	var name string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Query the upstream key endpoint and refresh provider info",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := app.keys.ProbeKey(cmd.Context(), guildID, name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), info)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
