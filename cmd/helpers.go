package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gatekeep/internal/cli"
	"gatekeep/internal/config"
)

// resolveConfigPath returns --config-path or the default directory.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.GetDefaultConfigPathOrPanic()
}

// loadRuntime loads and validates the configuration and builds the runtime
// that all session commands share.
func loadRuntime(cmd *cobra.Command) (*cli.Runtime, error) {
	path := resolveConfigPath()

	cfg, err := config.LoadConfig(path)
	if err != nil {
		var cfgErr config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(cmd.ErrOrStderr(), cfgErr.DetailedError())
		}
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s:\n%w", path, err)
	}

	return cli.NewRuntime(cfg, cli.Options{
		ConfigPath: path,
		Out:        cmd.OutOrStdout(),
		NoBrowser:  noBrowser,
		Quiet:      quiet,
	})
}
