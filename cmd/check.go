package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gatekeep/internal/cli"
)

func newCheckCmd() *cobra.Command {
	var (
		noLogin bool
		manual  bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Make sure a valid session exists",
		Long: `Checks the stored session. If it is missing or expired, a sign-in is
started and check returns once it completes.

With --no-login nothing is started; the exit code tells the result:
  0  authenticated
  2  not authenticated or session expired`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			if noLogin {
				status, err := rt.Verify(cmd.Context())
				if err != nil {
					return err
				}
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "Authenticated until %s.\n", status.ExpiresAt.Local().Format(time.RFC1123))
				}
				return nil
			}

			return rt.EnsureAuthenticated(cmd.Context(), cli.LoginOptions{Manual: manual})
		},
	}

	cmd.Flags().BoolVar(&noLogin, "no-login", false, "Only report the session state, never start a sign-in")
	cmd.Flags().BoolVar(&manual, "manual", false, "Paste the callback address instead of using a local server")
	return cmd
}
