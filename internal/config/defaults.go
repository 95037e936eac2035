package config

import "time"

const (
	// DefaultCallbackPort is the loopback port of the default redirect URI.
	DefaultCallbackPort = 4200

	// DefaultCallbackPath is the path of the default redirect URI.
	DefaultCallbackPath = "/callback"

	// DefaultScope is requested when no scope is configured.
	DefaultScope = "openid"

	// DefaultKeyringService is the keyring service name credentials are kept under.
	DefaultKeyringService = "gatekeep"

	// DefaultStorageTimeout bounds every credential store access.
	DefaultStorageTimeout = 10 * time.Second

	// DefaultCallbackTimeout is how long login waits for the browser.
	DefaultCallbackTimeout = 10 * time.Minute
)

// GetDefaultConfig returns the default configuration. Provider settings
// have no defaults and must come from config.yaml or flags.
func GetDefaultConfig() GatekeepConfig {
	return GatekeepConfig{
		Provider: ProviderConfig{
			Scope:        DefaultScope,
			CallbackPort: DefaultCallbackPort,
			CallbackPath: DefaultCallbackPath,
		},
		Storage: StorageConfig{
			Backend:        StorageBackendFile,
			KeyringService: DefaultKeyringService,
		},
		Session: SessionConfig{
			StorageTimeout:  DefaultStorageTimeout,
			CallbackTimeout: DefaultCallbackTimeout,
			VerifyIDToken:   true,
		},
	}
}
