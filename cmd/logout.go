package cmd

import (
	"github.com/spf13/cobra"

	"gatekeep/internal/cli"
)

func newLogoutCmd() *cobra.Command {
	var (
		relogin bool
		manual  bool
	)

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Long: `Removes the stored credentials. If they cannot be removed from storage,
gatekeep still treats you as signed out and reports the failure.

With --relogin a new sign-in starts right away.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			return rt.Logout(cmd.Context(), relogin, cli.LoginOptions{Manual: manual})
		},
	}

	cmd.Flags().BoolVar(&relogin, "relogin", false, "Sign in again after signing out")
	cmd.Flags().BoolVar(&manual, "manual", false, "With --relogin, paste the callback address instead of using a local server")
	return cmd
}
