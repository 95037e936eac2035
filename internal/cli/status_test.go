package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeep/internal/config"
	"gatekeep/internal/session"
)

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestParseIDTokenClaims(t *testing.T) {
	exp := time.Unix(1_700_003_600, 0)
	raw := signedIDToken(t, jwt.MapClaims{
		"sub":   "auth0|123",
		"iss":   "https://tenant.eu.auth0.com/",
		"email": "alex@example.com",
		"name":  "Alex Doe",
		"exp":   exp.Unix(),
	})

	claims, err := ParseIDTokenClaims(raw)
	require.NoError(t, err)
	assert.Equal(t, "auth0|123", claims.Subject)
	assert.Equal(t, "https://tenant.eu.auth0.com/", claims.Issuer)
	assert.Equal(t, "alex@example.com", claims.Email)
	assert.Equal(t, "Alex Doe", claims.Name)
	assert.True(t, exp.Equal(claims.ExpiresAt))
}

func TestParseIDTokenClaims_Malformed(t *testing.T) {
	_, err := ParseIDTokenClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestRenderStatus(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("authenticated with claims", func(t *testing.T) {
		var buf bytes.Buffer
		RenderStatus(&buf, StatusView{
			Status: session.Status{
				State:     session.StateAuthenticated,
				ExpiresAt: now.Add(90 * time.Minute),
				IDToken:   signedIDToken(t, jwt.MapClaims{"sub": "auth0|123", "email": "alex@example.com"}),
			},
			Backend: config.StorageBackendFile,
			Domain:  "tenant.eu.auth0.com",
			Now:     now,
		})

		out := buf.String()
		assert.Contains(t, out, "Authenticated")
		assert.Contains(t, out, "in 1h30m")
		assert.Contains(t, out, "alex@example.com")
		assert.Contains(t, out, "auth0|123")
		assert.Contains(t, out, "tenant.eu.auth0.com")
		assert.Contains(t, out, "file")
	})

	t.Run("expired", func(t *testing.T) {
		var buf bytes.Buffer
		RenderStatus(&buf, StatusView{
			Status:  session.Status{State: session.StateExpired, ExpiresAt: now.Add(-2 * time.Hour)},
			Backend: config.StorageBackendKeyring,
			Now:     now,
		})

		out := buf.String()
		assert.Contains(t, out, "Expired")
		assert.Contains(t, out, "expired 2h0m ago")
	})

	t.Run("no session", func(t *testing.T) {
		var buf bytes.Buffer
		RenderStatus(&buf, StatusView{
			Status:  session.Status{State: session.StateUnauthenticated},
			Backend: config.StorageBackendMemory,
			Now:     now,
		})

		out := buf.String()
		assert.Contains(t, out, "Not authenticated")
		assert.False(t, strings.Contains(out, "Expires"))
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 3*time.Minute, "2h3m"},
		{50 * time.Hour, "2d2h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestStatusView_Report(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	view := StatusView{
		Status: session.Status{
			State:     session.StateExpired,
			ExpiresAt: now.Add(-time.Minute),
			IDToken:   signedIDToken(t, jwt.MapClaims{"sub": "auth0|123", "name": "Alex Doe"}),
		},
		Backend: config.StorageBackendKeyring,
		Domain:  "tenant.eu.auth0.com",
		Now:     now,
	}

	report := view.Report()
	assert.Equal(t, "expired", report.State)
	assert.False(t, report.Authenticated)
	assert.Equal(t, "keyring", report.Storage)
	assert.Equal(t, "auth0|123", report.Subject)
	assert.Equal(t, "Alex Doe", report.Name)
	assert.Empty(t, report.Email)
	require.NotNil(t, report.ExpiresAt)
	assert.True(t, now.Add(-time.Minute).Equal(*report.ExpiresAt))

	empty := StatusView{Status: session.Status{State: session.StateUnauthenticated}}.Report()
	assert.Nil(t, empty.ExpiresAt)
}
