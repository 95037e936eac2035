package cmd

import (
	"github.com/spf13/cobra"

	"gatekeep/internal/cli"
)

func newLoginCmd() *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the identity provider",
		Long: `Opens the provider's sign-in page in your browser and waits for it to
redirect back to gatekeep. A new session is started even if the current one
is still valid.

With --manual no local server is started. Copy the full address your browser
ends up on after signing in and paste it at the prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return rt.Login(cmd.Context(), cli.LoginOptions{Manual: manual})
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "Paste the callback address instead of using a local server")
	return cmd
}
