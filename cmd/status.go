package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gatekeep/internal/formatting"
)

func newStatusCmd() *cobra.Command {
	var (
		watch  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Long: `Shows whether a session is stored, when it expires and who it belongs to.
The identity is read from the stored ID token.

With --watch the status is shown again whenever another gatekeep process
changes the stored credentials. This requires the file storage backend.

Use --output json or --output yaml for scripts. Tokens are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseFormat(output)
			if err != nil {
				return err
			}
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if !watch {
				return rt.ShowStatus(cmd.Context(), format)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return rt.WatchStatus(ctx, format)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and show changes")
	cmd.Flags().StringVarP(&output, "output", "o", string(formatting.FormatTable), "Output format: table, json or yaml")
	return cmd
}
