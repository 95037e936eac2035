package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() GatekeepConfig {
	cfg := GetDefaultConfig()
	cfg.Provider.Domain = "tenant.eu.auth0.com"
	cfg.Provider.ClientID = "client-123"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*GatekeepConfig)
		wantFields []string
	}{
		{
			name:   "valid",
			mutate: func(*GatekeepConfig) {},
		},
		{
			name:   "domain as URL",
			mutate: func(c *GatekeepConfig) { c.Provider.Domain = "http://localhost:8080" },
		},
		{
			name: "defaults lack provider",
			mutate: func(c *GatekeepConfig) {
				c.Provider.Domain = ""
				c.Provider.ClientID = " "
			},
			wantFields: []string{"provider.domain", "provider.clientId"},
		},
		{
			name:       "domain URL without host",
			mutate:     func(c *GatekeepConfig) { c.Provider.Domain = "https://" },
			wantFields: []string{"provider.domain"},
		},
		{
			name:       "port out of range",
			mutate:     func(c *GatekeepConfig) { c.Provider.CallbackPort = 70000 },
			wantFields: []string{"provider.callbackPort"},
		},
		{
			name:       "relative callback path",
			mutate:     func(c *GatekeepConfig) { c.Provider.CallbackPath = "callback" },
			wantFields: []string{"provider.callbackPath"},
		},
		{
			name:       "unknown backend",
			mutate:     func(c *GatekeepConfig) { c.Storage.Backend = "s3" },
			wantFields: []string{"storage.backend"},
		},
		{
			name: "keyring without service",
			mutate: func(c *GatekeepConfig) {
				c.Storage.Backend = StorageBackendKeyring
				c.Storage.KeyringService = ""
			},
			wantFields: []string{"storage.keyringService"},
		},
		{
			name: "non-positive timeouts",
			mutate: func(c *GatekeepConfig) {
				c.Session.StorageTimeout = 0
				c.Session.CallbackTimeout = -1
			},
			wantFields: []string{"session.storageTimeout", "session.callbackTimeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
			var fields []string
			for _, ve := range verrs {
				fields = append(fields, ve.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())

	var errs ValidationErrors
	errs.Add("a", "is required")
	assert.Equal(t, "field 'a': is required", errs.Error())

	errs.Add("b", "must be positive", 0)
	assert.Equal(t, "validation failed: field 'a': is required; field 'b': must be positive", errs.Error())
	assert.Equal(t, 0, errs[1].Value)
}
