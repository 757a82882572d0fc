package cmd

import "github.com/spf13/cobra"

func Execute() error {
	root, cleanup := newRootCmd()
	defer cleanup()
	return root.Execute()
}

func newRootCmd() (*cobra.Command, func()) {
	rootCmd := &cobra.Command{
		Use:           "keypool",
		Short:         "keypool: pooled AI API keys with rate-limit aware failover",
		Long:          "keypool manages a per-guild pool of encrypted AI API keys, schedules requests across them by remaining rate-limit headroom, and fails over when a key is throttled, broken or out of credit.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd, func() {}
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newKeysCmd(app),
		newAskCmd(app),
		newSessionCmd(app),
		newSettingsCmd(app),
		newSecretCmd(app),
	)

	return rootCmd, app.close
}
