package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logiqbot/keypool/internal/application"
)

func newAskCmd(app *app) *cobra.Command {
	var guildID, userID, channelID int64
	var mode string
	var private, useSession, plain bool

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send a prompt through the key pool",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := application.AskRequest{
				GuildID:    guildID,
				UserID:     userID,
				ChannelID:  channelID,
				Prompt:     strings.Join(args, " "),
				Mode:       mode,
				UseSession: useSession,
			}
			if cmd.Flags().Changed("private") {
				req.Private = &private
			}

			var resp application.AskResponse
			askFn := func(ctx context.Context) error {
				var err error
				resp, err = app.chat.Ask(ctx, req)
				return err
			}

			if plain {
				if err := askFn(cmd.Context()); err != nil {
					return err
				}
			} else {
				if err := runAskSpinner(cmd.Context(), cmd.ErrOrStderr(), askFn); err != nil {
					return err
				}
			}

			// The reply itself stays on stdout; the privacy marker goes to
			// stderr so piped output is just the text.
			if resp.Private {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "(private reply)")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id")
	cmd.Flags().Int64Var(&userID, "user", 0, "requesting user id")
	cmd.Flags().Int64Var(&channelID, "channel", 0, "channel id")
	cmd.Flags().StringVar(&mode, "mode", "", "reply mode: fast or think")
	cmd.Flags().BoolVar(&private, "private", false, "prefer a private reply")
	cmd.Flags().BoolVar(&useSession, "session", false, "load and persist conversation history")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable the progress spinner")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}
