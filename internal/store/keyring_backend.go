package store

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the service name credentials are filed under in
// the OS keychain.
const DefaultKeyringService = "gatekeep"

// keyringProbeKey is read by Ready to find out whether the keychain answers.
const keyringProbeKey = KeyExpiresAt

// KeyringBackend stores each key as a separate secret in the OS keychain
// (macOS Keychain, Secret Service, Windows Credential Manager).
type KeyringBackend struct {
	service string
}

// NewKeyringBackend creates a keychain backend for the given service name.
func NewKeyringBackend(service string) *KeyringBackend {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringBackend{service: service}
}

// Ready implements Backend. The keychain has no explicit init step, so it
// probes with a read; only "not found" counts as healthy.
func (b *KeyringBackend) Ready(ctx context.Context) error {
	return withContext(ctx, func() error {
		_, err := keyring.Get(b.service, keyringProbeKey)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return err
		}
		return nil
	})
}

// Get implements Backend.
func (b *KeyringBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := withContext(ctx, func() error {
		v, err := keyring.Get(b.service, key)
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		value = v
		return err
	})
	return value, err
}

// Set implements Backend.
func (b *KeyringBackend) Set(ctx context.Context, key, value string) error {
	return withContext(ctx, func() error {
		return keyring.Set(b.service, key, value)
	})
}

// Remove implements Backend.
func (b *KeyringBackend) Remove(ctx context.Context, key string) error {
	return withContext(ctx, func() error {
		err := keyring.Delete(b.service, key)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	})
}

// withContext runs fn but stops waiting for it when ctx is done. Keychain
// calls go over D-Bus or XPC and can block indefinitely when the daemon is
// wedged.
func withContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
