package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
	}

	cmd.AddCommand(newSessionStartCmd(app), newSessionResetCmd(app))

	return cmd
}

func newSessionStartCmd(app *app) *cobra.Command {
	var guildID, userID, channelID int64
	var private bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open a session with an empty history in the channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.chat.StartSession(cmd.Context(), guildID, userID, channelID, private); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session started in channel %d\n", channelID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().Int64Var(&channelID, "channel", 0, "channel id")
	cmd.Flags().BoolVar(&private, "private", false, "default replies to private")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

func newSessionResetCmd(app *app) *cobra.Command {
	var guildID, userID, channelID int64

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored conversation history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			existed, err := app.chat.ResetSession(cmd.Context(), guildID, userID, channelID)
			if err != nil {
				return err
			}
			if !existed {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no session to reset")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "session reset")
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().Int64Var(&channelID, "channel", 0, "channel id")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}
