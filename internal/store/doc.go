// Package store persists the Credential Record: the access token, identity
// token and expiry obtained from the identity provider.
//
// A Store sits on top of a Backend (file, OS keychain or memory) and exposes
// the record as a unit. Keys on the backend are access_token, id_token and
// expires_at (epoch milliseconds as a decimal string). Any backend failure
// is reported as ErrStorageUnavailable; a missing or partial record is
// reported as ErrNoRecord.
package store
