package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gatekeep/internal/callback"
	"gatekeep/internal/config"
	"gatekeep/internal/gateway"
	"gatekeep/internal/session"
	"gatekeep/internal/store"
)

// TransactionFileName is where the state and nonce of a pending login are
// kept, inside the config directory.
const TransactionFileName = "transaction.json"

// Options controls how a Runtime talks to the user.
type Options struct {
	// ConfigPath is the configuration directory.
	ConfigPath string
	// Out receives user-facing output. Defaults to os.Stdout.
	Out io.Writer
	// NoBrowser prints the authorize URL instead of opening a browser.
	NoBrowser bool
	// Quiet suppresses spinners and informational output.
	Quiet bool
}

// Runtime holds the components built from one configuration. Session
// managers are created per run with NewManager.
type Runtime struct {
	Config     config.GatekeepConfig
	ConfigPath string
	Backend    store.Backend
	Store      *store.Store
	Gateway    *gateway.Gateway

	out   io.Writer
	quiet bool
}

// NewRuntime wires the credential store, gateway and verifier for cfg.
// cfg must already be validated.
func NewRuntime(cfg config.GatekeepConfig, opts Options) (*Runtime, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	backend, err := NewBackend(cfg, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	var nav gateway.Navigator = gateway.BrowserNavigator{Out: out}
	if opts.NoBrowser {
		nav = gateway.PrintNavigator{Out: out}
	}

	gwCfg := gateway.Config{
		Domain:      cfg.Provider.Domain,
		ClientID:    cfg.Provider.ClientID,
		Audience:    cfg.Provider.Audience,
		RedirectURI: callback.RedirectURI(cfg.Provider.CallbackPort, cfg.Provider.CallbackPath),
		Scopes:      strings.Fields(cfg.Provider.Scope),
	}
	gwOpts := []gateway.Option{
		gateway.WithNavigator(nav),
		gateway.WithTransactions(gateway.NewFileTransactions(filepath.Join(opts.ConfigPath, TransactionFileName))),
	}
	if cfg.Session.VerifyIDToken {
		gwOpts = append(gwOpts, gateway.WithVerifier(gateway.NewOIDCVerifier(gwCfg.Issuer(), gwCfg.ClientID, nil)))
	}

	gw, err := gateway.New(gwCfg, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid provider configuration: %w", err)
	}

	return &Runtime{
		Config:     cfg,
		ConfigPath: opts.ConfigPath,
		Backend:    backend,
		Store:      store.New(backend),
		Gateway:    gw,
		out:        out,
		quiet:      opts.Quiet,
	}, nil
}

// NewBackend creates the credential backend selected by cfg.
func NewBackend(cfg config.GatekeepConfig, configPath string) (store.Backend, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendFile, "":
		return store.NewFileBackend(cfg.ResolveStorageDir(configPath)), nil
	case config.StorageBackendKeyring:
		return store.NewKeyringBackend(cfg.Storage.KeyringService), nil
	case config.StorageBackendMemory:
		return store.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// NewManager creates a session manager, as a freshly started application
// would.
func (r *Runtime) NewManager() *session.Manager {
	return session.NewManager(r.Store, r.Gateway,
		session.WithStorageTimeout(r.Config.Session.StorageTimeout))
}

// Out returns the user-facing writer.
func (r *Runtime) Out() io.Writer {
	return r.out
}

func (r *Runtime) printf(format string, args ...any) {
	if r.quiet {
		return
	}
	_, _ = fmt.Fprintf(r.out, format, args...)
}
