// Package config loads the gatekeep configuration.
//
// Configuration is read from a single directory, ~/.config/gatekeep by
// default or the directory given with --config-path. The directory holds
// config.yaml; the file credential backend keeps its credentials.json there
// too unless storage.dir says otherwise.
//
// # Configuration Structure
//
//	provider:
//	  domain: tenant.eu.auth0.com        # Identity provider tenant (required)
//	  clientId: abc123                   # Public client id (required)
//	  audience: https://api.example.com  # Access token audience
//	  scope: openid                      # Requested scopes (default: openid)
//	  callbackPort: 4200                 # Redirect URI port (default: 4200)
//	  callbackPath: /callback            # Redirect URI path (default: /callback)
//	storage:
//	  backend: file                      # file, keyring or memory (default: file)
//	  dir: ""                            # File backend directory (default: config dir)
//	  keyringService: gatekeep           # Keyring service name
//	session:
//	  storageTimeout: 10s                # Bound on credential store access
//	  callbackTimeout: 10m               # How long login waits for the browser
//	  verifyIdToken: true                # Verify the ID token against the provider JWKS
//
// The redirect URI registered with the provider must be
// http://localhost:{callbackPort}{callbackPath}.
//
// # Usage
//
//	cfg, err := config.LoadConfig(config.GetDefaultConfigPathOrPanic())
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
