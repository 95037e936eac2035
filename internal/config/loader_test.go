package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	tempFilePath := filepath.Join(dir, configFileName)
	err := os.WriteFile(tempFilePath, []byte(content), 0644)
	require.NoError(t, err)
	return tempFilePath
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	loaded, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
}

func TestLoadConfig_Override(t *testing.T) {
	dir := t.TempDir()
	createTempConfigFile(t, dir, `
provider:
  domain: tenant.eu.auth0.com
  clientId: client-123
  audience: https://tenant.eu.auth0.com/userinfo
  callbackPort: 9000
storage:
  backend: keyring
session:
  storageTimeout: 3s
  verifyIdToken: false
`)

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "tenant.eu.auth0.com", loaded.Provider.Domain)
	assert.Equal(t, "client-123", loaded.Provider.ClientID)
	assert.Equal(t, 9000, loaded.Provider.CallbackPort)
	assert.Equal(t, StorageBackendKeyring, loaded.Storage.Backend)
	assert.Equal(t, 3*time.Second, loaded.Session.StorageTimeout)
	assert.False(t, loaded.Session.VerifyIDToken)

	// Unset fields keep their defaults.
	assert.Equal(t, DefaultCallbackPath, loaded.Provider.CallbackPath)
	assert.Equal(t, DefaultScope, loaded.Provider.Scope)
	assert.Equal(t, DefaultKeyringService, loaded.Storage.KeyringService)
	assert.Equal(t, DefaultCallbackTimeout, loaded.Session.CallbackTimeout)
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := createTempConfigFile(t, dir, "provider: [unterminated\n")

	_, err := LoadConfig(dir)
	require.Error(t, err)

	var cfgErr ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrorTypeParse, cfgErr.ErrorType)
	assert.Equal(t, path, cfgErr.FilePath)
	assert.Contains(t, cfgErr.DetailedError(), "Suggestions:")
}

func TestLoadConfig_WrongType(t *testing.T) {
	dir := t.TempDir()
	createTempConfigFile(t, dir, "provider:\n  callbackPort: lots\n")

	_, err := LoadConfig(dir)
	var cfgErr ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 2, cfgErr.LineNumber)
}

func TestLoadConfig_Unreadable(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be cannot be read.
	require.NoError(t, os.Mkdir(filepath.Join(dir, configFileName), 0755))

	_, err := LoadConfig(dir)
	var cfgErr ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrorTypeIO, cfgErr.ErrorType)
}

func TestGetDefaultConfigPathOrPanic(t *testing.T) {
	original := osUserHomeDir
	defer func() { osUserHomeDir = original }()

	osUserHomeDir = func() (string, error) { return "/home/alex", nil }
	assert.Equal(t, "/home/alex/.config/gatekeep", GetDefaultConfigPathOrPanic())

	osUserHomeDir = func() (string, error) { return "", errors.New("no home") }
	assert.Panics(t, func() { GetDefaultConfigPathOrPanic() })
}

func TestResolveStorageDir(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.Equal(t, "/cfg", cfg.ResolveStorageDir("/cfg"))

	cfg.Storage.Dir = "/var/lib/gatekeep"
	assert.Equal(t, "/var/lib/gatekeep", cfg.ResolveStorageDir("/cfg"))
}
