package config

import "time"

// GatekeepConfig is the top-level configuration structure for gatekeep.
type GatekeepConfig struct {
	Provider ProviderConfig `yaml:"provider"`
	Storage  StorageConfig  `yaml:"storage"`
	Session  SessionConfig  `yaml:"session"`
}

// ProviderConfig describes the identity provider tenant and the client
// registered with it.
type ProviderConfig struct {
	Domain       string `yaml:"domain"`                 // Tenant domain, e.g. tenant.eu.auth0.com
	ClientID     string `yaml:"clientId"`               // Public client identifier
	Audience     string `yaml:"audience,omitempty"`     // API audience requested for the access token
	Scope        string `yaml:"scope,omitempty"`        // Space separated scopes (default: openid)
	CallbackPort int    `yaml:"callbackPort,omitempty"` // Loopback port of the redirect URI (default: 4200)
	CallbackPath string `yaml:"callbackPath,omitempty"` // Path of the redirect URI (default: /callback)
}

// StorageBackend selects where the Credential Record is persisted.
type StorageBackend string

const (
	// StorageBackendFile keeps credentials in a 0600 JSON file.
	StorageBackendFile StorageBackend = "file"
	// StorageBackendKeyring keeps credentials in the OS keyring.
	StorageBackendKeyring StorageBackend = "keyring"
	// StorageBackendMemory keeps credentials for the lifetime of the process.
	StorageBackendMemory StorageBackend = "memory"
)

// StorageConfig configures the credential store backend.
type StorageConfig struct {
	Backend        StorageBackend `yaml:"backend"`
	Dir            string         `yaml:"dir,omitempty"`            // File backend directory (default: the config directory)
	KeyringService string         `yaml:"keyringService,omitempty"` // Keyring service name (default: gatekeep)
}

// SessionConfig tunes the session lifecycle.
type SessionConfig struct {
	StorageTimeout  time.Duration `yaml:"storageTimeout"`  // Bound on every credential store access
	CallbackTimeout time.Duration `yaml:"callbackTimeout"` // How long login waits for the browser
	VerifyIDToken   bool          `yaml:"verifyIdToken"`   // Verify ID token signature, nonce and at_hash
}
