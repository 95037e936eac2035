package cmd

import (
	"github.com/spf13/cobra"

	"gatekeep/internal/cli"
)

func newCallbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "callback [address]",
		Short: "Complete a sign-in with the address the provider redirected to",
		Long: `Completes a sign-in started elsewhere, for example with 'gatekeep login
--manual' on another terminal. Pass the full address your browser was
redirected to, or only its fragment. Without an argument you are prompted
for it.

Quote the address; the '&' characters in it are special to most shells.`,
		Example: `  gatekeep callback 'http://localhost:4200/callback#access_token=...&id_token=...&expires_in=86400&state=...'`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			var address string
			if len(args) == 1 {
				address = args[0]
			} else {
				address, err = cli.PromptFragment("Paste the address your browser was redirected to: ")
				if err != nil {
					return &cli.AuthFailedError{Reason: err}
				}
			}
			return rt.Resume(cmd.Context(), address)
		},
	}
}
