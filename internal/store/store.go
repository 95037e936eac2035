package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gatekeep/pkg/logging"
)

// Storage keys of the Credential Record.
const (
	KeyAccessToken = "access_token"
	KeyIDToken     = "id_token"
	KeyExpiresAt   = "expires_at"
)

// Record is the persisted Credential Record. The three fields are written
// and read as one unit.
type Record struct {
	// AccessToken is the opaque bearer token for resource access.
	AccessToken string
	// IDToken is the identity token issued alongside the access token.
	IDToken string
	// ExpiresAt is the absolute expiry in epoch milliseconds.
	ExpiresAt int64
}

// Complete reports whether all three fields are present.
func (r Record) Complete() bool {
	return r.AccessToken != "" && r.IDToken != "" && r.ExpiresAt != 0
}

// ValidAt reports whether the record is still valid at now.
// The comparison is strict: a record expiring exactly at now is expired.
func (r Record) ValidAt(now time.Time) bool {
	return now.UnixMilli() < r.ExpiresAt
}

// Expiry returns ExpiresAt as a time.Time.
func (r Record) Expiry() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}

// Store reads and writes the Credential Record through a Backend.
// Every operation waits on Backend.Ready first.
type Store struct {
	backend Backend
}

// New creates a credential store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Ready waits until the backend is usable.
func (s *Store) Ready(ctx context.Context) error {
	start := time.Now()
	if err := s.backend.Ready(ctx); err != nil {
		return unavailable("ready", "", err)
	}
	logging.Debug("CredentialStore", "Backend ready in %s", logging.Since(start))
	return nil
}

// Get reads a single key. Absent keys return ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := s.Ready(ctx); err != nil {
		return "", err
	}
	return s.get(ctx, key)
}

// Set writes a single key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.Ready(ctx); err != nil {
		return err
	}
	return s.set(ctx, key, value)
}

// Remove deletes a single key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.Ready(ctx); err != nil {
		return err
	}
	return s.remove(ctx, key)
}

// Load reads the Credential Record. It returns ErrNoRecord when any of the
// three keys is missing or the expiry is not an integer; a partial record is
// never returned.
func (s *Store) Load(ctx context.Context) (Record, error) {
	if err := s.Ready(ctx); err != nil {
		return Record{}, err
	}

	var rec Record
	var rawExpiry string
	for _, f := range []struct {
		key string
		dst *string
	}{
		{KeyAccessToken, &rec.AccessToken},
		{KeyIDToken, &rec.IDToken},
		{KeyExpiresAt, &rawExpiry},
	} {
		v, err := s.get(ctx, f.key)
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNoRecord
		}
		if err != nil {
			return Record{}, err
		}
		*f.dst = v
	}

	expiresAt, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		logging.Warn("CredentialStore", "Ignoring stored record with malformed %s", KeyExpiresAt)
		return Record{}, ErrNoRecord
	}
	rec.ExpiresAt = expiresAt

	if !rec.Complete() {
		return Record{}, ErrNoRecord
	}
	return rec, nil
}

// Save overwrites the Credential Record. The stored expiry is removed before
// the tokens are written and the new one is written last, so an interrupted
// save always leaves an incomplete record that Load rejects. Save returns
// only after all three writes completed.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if !rec.Complete() {
		return ErrIncompleteRecord
	}
	if err := s.Ready(ctx); err != nil {
		return err
	}

	if err := s.remove(ctx, KeyExpiresAt); err != nil {
		logging.Audit("CredentialStore", "credentials_store_failed", "Credential record storage failed",
			"key", KeyExpiresAt,
			"error", err.Error(),
		)
		return err
	}

	writes := []struct{ key, value string }{
		{KeyAccessToken, rec.AccessToken},
		{KeyIDToken, rec.IDToken},
		{KeyExpiresAt, strconv.FormatInt(rec.ExpiresAt, 10)},
	}
	for _, w := range writes {
		if err := s.set(ctx, w.key, w.value); err != nil {
			logging.Audit("CredentialStore", "credentials_store_failed", "Credential record storage failed",
				"key", w.key,
				"error", err.Error(),
			)
			return err
		}
	}

	logging.Audit("CredentialStore", "credentials_stored", "Credential record stored",
		"expires_at", rec.Expiry().UTC().Format(time.RFC3339),
	)
	return nil
}

// Clear removes the Credential Record. The expiry goes first so that a
// failure half way leaves an incomplete, and therefore invalid, record.
// All three removals are attempted; their errors are joined.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.Ready(ctx); err != nil {
		return err
	}

	var errs []error
	for _, key := range []string{KeyExpiresAt, KeyIDToken, KeyAccessToken} {
		if err := s.remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logging.Audit("CredentialStore", "credentials_clear_failed", "Credential record removal failed",
			"error", err.Error(),
		)
		return err
	}

	logging.Audit("CredentialStore", "credentials_cleared", "Credential record removed")
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.backend.Get(ctx, key)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, ErrNotFound) {
		return "", ErrNotFound
	}
	return "", unavailable("get", key, err)
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if err := s.backend.Set(ctx, key, value); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, key string) error {
	if err := s.backend.Remove(ctx, key); err != nil {
		return unavailable("remove", key, err)
	}
	return nil
}

// String describes a record without exposing token values.
func (r Record) String() string {
	return fmt.Sprintf("Record{access_token:%t id_token:%t expires_at:%d}",
		r.AccessToken != "", r.IDToken != "", r.ExpiresAt)
}
