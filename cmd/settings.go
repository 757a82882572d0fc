package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logiqbot/keypool/internal/domain"
)

func newSettingsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change guild policy",
	}

	cmd.AddCommand(
		newSettingsShowCmd(app),
		newSettingsEnableCmd(app),
		newSettingsDisableCmd(app),
		newSettingsLimitsCmd(app),
		newSettingsMaxTurnsCmd(app),
		newSettingsModelCmd(app),
		newSettingsAllowChannelCmd(app),
		newSettingsDisallowChannelCmd(app),
	)

	return cmd
}

func newSettingsShowCmd(app *app) *cobra.Command {
	var guildID int64

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the guild's effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.Get(cmd.Context(), guildID)
			if err != nil {
				return err
			}
			writeSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	_ = cmd.MarkFlagRequired("guild")

	return cmd
}

func writeSettings(cmd *cobra.Command, settings domain.GuildSettings) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "guild:            %d\n", settings.GuildID)
	_, _ = fmt.Fprintf(out, "enabled:          %t\n", settings.Enabled)
	_, _ = fmt.Fprintf(out, "default model:    %s\n", settings.DefaultModelID)
	_, _ = fmt.Fprintf(out, "default mode:     %s\n", settings.DefaultMode)
	_, _ = fmt.Fprintf(out, "model allowlist:  %s\n", strings.Join(settings.ModelAllowlist, ", "))
	_, _ = fmt.Fprintf(out, "channels:         %s\n", formatChannelIDs(settings.AllowedChannelIDs))
	_, _ = fmt.Fprintf(out, "user cooldown:    %ds\n", settings.UserCooldownSeconds)
	_, _ = fmt.Fprintf(out, "channel cooldown: %ds\n", settings.ChannelCooldownSeconds)
	_, _ = fmt.Fprintf(out, "max concurrent:   %d\n", settings.MaxConcurrent)
	_, _ = fmt.Fprintf(out, "session turns:    %d\n", settings.SessionMaxTurns)
}

func formatChannelIDs(ids []int64) string {
	if len(ids) == 0 {
		return "(none allowed)"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

func newSettingsEnableCmd(app *app) *cobra.Command {
	return newSettingsToggleCmd(app, "enable", "Enable AI requests for the guild", true)
}

func newSettingsDisableCmd(app *app) *cobra.Command {
	return newSettingsToggleCmd(app, "disable", "Disable AI requests for the guild", false)
}

func newSettingsToggleCmd(app *app, use, short string, enabled bool) *cobra.Command {
	var guildID int64

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.SetEnabled(cmd.Context(), guildID, enabled)
			if err != nil {
				return err
			}
			writeSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	_ = cmd.MarkFlagRequired("guild")

	return cmd
}

func newSettingsLimitsCmd(app *app) *cobra.Command {
	var guildID int64
	var userCooldown, channelCooldown, maxConcurrent int

	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Set cooldowns and the concurrency ceiling",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.SetLimits(cmd.Context(), guildID, userCooldown, channelCooldown, maxConcurrent)
			if err != nil {
				return err
			}
			writeSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().IntVar(&userCooldown, "user-cooldown", domain.DefaultUserCooldownSeconds, "seconds between requests per user")
	cmd.Flags().IntVar(&channelCooldown, "channel-cooldown", domain.DefaultChannelCooldownSeconds, "seconds between requests per channel")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", domain.DefaultMaxConcurrent, "in-flight requests per guild")
	_ = cmd.MarkFlagRequired("guild")

	return cmd
}

func newSettingsMaxTurnsCmd(app *app) *cobra.Command {
	var guildID int64
	var maxTurns int

	cmd := &cobra.Command{
		Use:   "max-turns",
		Short: "Set how many conversation turns sessions keep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.SetSessionMaxTurns(cmd.Context(), guildID, maxTurns)
			if err != nil {
				return err
			}
			writeSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().IntVar(&maxTurns, "turns", domain.DefaultSessionMaxTurns, "retained turns per session")
	_ = cmd.MarkFlagRequired("guild")

	return cmd
}

func newSettingsModelCmd(app *app) *cobra.Command {
	var guildID int64
	var modelID string
	var paidOK bool

	cmd := &cobra.Command{
		Use:   "model",
		Short: "Set the guild's default model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.SetDefaultModel(cmd.Context(), guildID, modelID, paidOK)
			if err != nil {
				return err
			}
			writeSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().StringVar(&modelID, "id", "", "model id, e.g. meta-llama/llama-3.3-70b-instruct:free")
	cmd.Flags().BoolVar(&paidOK, "paid-ok", false, "confirm a model that may cost credits")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newSettingsAllowChannelCmd(app *app) *cobra.Command {
	var guildID, channelID int64

	cmd := &cobra.Command{
		Use:   "allow-channel",
		Short: "Add a channel to the allowlist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.AllowChannel(cmd.Context(), guildID, channelID)
			if err != nil {
				return err
			}
			writeSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().Int64Var(&channelID, "channel", 0, "channel id")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

func newSettingsDisallowChannelCmd(app *app) *cobra.Command {
	var guildID, channelID int64

	cmd := &cobra.Command{
		Use:   "disallow-channel",
		Short: "Remove a channel from the allowlist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings.DisallowChannel(cmd.Context(), guildID, channelID)
			if err != nil {
				return err
			}
			writeSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().Int64Var(&channelID, "channel", 0, "channel id")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}
