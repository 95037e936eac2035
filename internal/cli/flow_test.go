package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeep/internal/config"
	"gatekeep/internal/formatting"
	"gatekeep/internal/gateway"
	"gatekeep/internal/store"
)

var authorizeURLPattern = regexp.MustCompile(`https://\S+`)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func testRuntimeConfig(t *testing.T) config.GatekeepConfig {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Provider.Domain = "tenant.example.com"
	cfg.Provider.ClientID = "client-123"
	cfg.Provider.CallbackPort = freePort(t)
	cfg.Storage.Backend = config.StorageBackendMemory
	cfg.Session.StorageTimeout = time.Second
	cfg.Session.CallbackTimeout = 5 * time.Second
	cfg.Session.VerifyIDToken = false
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestRuntime(t *testing.T, out *bytes.Buffer) *Runtime {
	t.Helper()
	rt, err := NewRuntime(testRuntimeConfig(t), Options{
		ConfigPath: t.TempDir(),
		Out:        out,
		NoBrowser:  true,
		Quiet:      true,
	})
	require.NoError(t, err)
	return rt
}

// stateFrom extracts the state parameter of the authorize URL printed to out.
func stateFrom(t *testing.T, out string) string {
	t.Helper()
	raw := authorizeURLPattern.FindString(out)
	require.NotEmpty(t, raw, "no authorize URL in output %q", out)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func callbackFragment(state string) string {
	return "#access_token=AAA&id_token=BBB&expires_in=3600&token_type=Bearer&state=" + state
}

func TestNewBackend(t *testing.T) {
	cfg := config.GetDefaultConfig()

	b, err := NewBackend(cfg, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &store.FileBackend{}, b)

	cfg.Storage.Backend = config.StorageBackendKeyring
	b, err = NewBackend(cfg, "")
	require.NoError(t, err)
	assert.IsType(t, &store.KeyringBackend{}, b)

	cfg.Storage.Backend = config.StorageBackendMemory
	b, err = NewBackend(cfg, "")
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryBackend{}, b)

	cfg.Storage.Backend = "s3"
	_, err = NewBackend(cfg, "")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, &bytes.Buffer{})

	_, err := rt.Verify(ctx)
	assert.ErrorIs(t, err, &AuthRequiredError{})

	require.NoError(t, rt.Store.Save(ctx, store.Record{AccessToken: "a", IDToken: "b", ExpiresAt: 1000}))
	_, err = rt.Verify(ctx)
	assert.ErrorIs(t, err, &AuthExpiredError{})

	expiresAt := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, rt.Store.Save(ctx, store.Record{AccessToken: "a", IDToken: "b", ExpiresAt: expiresAt}))
	status, err := rt.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(expiresAt), status.ExpiresAt)
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	t.Run("stores credentials", func(t *testing.T) {
		rt := newTestRuntime(t, &bytes.Buffer{})
		require.NoError(t, rt.Resume(ctx, "#access_token=AAA&id_token=BBB&expires_in=3600"))

		rec, err := rt.Store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AAA", rec.AccessToken)
		_, err = rt.Verify(ctx)
		assert.NoError(t, err)
	})

	t.Run("provider error", func(t *testing.T) {
		rt := newTestRuntime(t, &bytes.Buffer{})
		err := rt.Resume(ctx, "#error=access_denied&error_description=nope")

		assert.ErrorIs(t, err, &AuthFailedError{})
		assert.ErrorIs(t, err, gateway.ErrCallbackParse)
		_, verifyErr := rt.Verify(ctx)
		assert.ErrorIs(t, verifyErr, &AuthRequiredError{})
	})

	t.Run("provider error in query", func(t *testing.T) {
		rt := newTestRuntime(t, &bytes.Buffer{})
		err := rt.Resume(ctx, "http://localhost:4200/callback?error=access_denied&error_description=nope")

		var perr *gateway.CallbackParseError
		require.True(t, errors.As(err, &perr), "expected CallbackParseError, got %v", err)
		assert.Equal(t, "access_denied", perr.Code)
		assert.ErrorIs(t, err, &AuthFailedError{})
	})

	t.Run("nothing to resume", func(t *testing.T) {
		rt := newTestRuntime(t, &bytes.Buffer{})
		assert.ErrorIs(t, rt.Resume(ctx, ""), &AuthFailedError{})
	})
}

func TestLogin_Manual(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	rt := newTestRuntime(t, &out)

	var prompted bool
	err := rt.Login(ctx, LoginOptions{
		Manual: true,
		Prompt: func(string) (string, error) {
			prompted = true
			return callbackFragment(stateFrom(t, out.String())), nil
		},
	})
	require.NoError(t, err)
	assert.True(t, prompted)

	_, err = rt.Verify(ctx)
	assert.NoError(t, err)
}

func TestLogin_ManualForgedState(t *testing.T) {
	rt := newTestRuntime(t, &bytes.Buffer{})

	err := rt.Login(context.Background(), LoginOptions{
		Manual: true,
		Prompt: func(string) (string, error) { return callbackFragment("forged"), nil },
	})
	var perr *gateway.CallbackParseError
	require.True(t, errors.As(err, &perr), "expected CallbackParseError, got %v", err)
	assert.Equal(t, gateway.CodeInvalidState, perr.Code)
}

func TestLogin_PromptCancelled(t *testing.T) {
	rt := newTestRuntime(t, &bytes.Buffer{})

	err := rt.Login(context.Background(), LoginOptions{
		Manual: true,
		Prompt: func(string) (string, error) { return "", ErrPasteCancelled },
	})
	assert.ErrorIs(t, err, &AuthFailedError{})
	assert.ErrorIs(t, err, ErrPasteCancelled)
}

// browserWriter plays the browser: when the authorize URL is printed it
// delivers the callback to the loopback server.
type browserWriter struct {
	t        *testing.T
	port     int
	path     string
	state    string
	buf      bytes.Buffer
	finished chan struct{}
}

func (w *browserWriter) Write(p []byte) (int, error) {
	n, _ := w.buf.Write(p)
	raw := authorizeURLPattern.Find(p)
	if raw == nil {
		return n, nil
	}
	u, err := url.Parse(string(raw))
	if err != nil {
		return n, nil
	}
	state := w.state
	if state == "" {
		state = u.Query().Get("state")
	}

	go func() {
		defer close(w.finished)
		resp, err := http.PostForm("http://127.0.0.1:"+strconv.Itoa(w.port)+w.path,
			url.Values{"fragment": {callbackFragment(state)}})
		if err != nil {
			w.t.Errorf("callback delivery failed: %v", err)
			return
		}
		_ = resp.Body.Close()
	}()
	return n, nil
}

func newBrowserRuntime(t *testing.T) (*Runtime, *browserWriter) {
	t.Helper()
	cfg := testRuntimeConfig(t)
	w := &browserWriter{
		t:        t,
		port:     cfg.Provider.CallbackPort,
		path:     cfg.Provider.CallbackPath,
		finished: make(chan struct{}),
	}
	rt, err := NewRuntime(cfg, Options{ConfigPath: t.TempDir(), Out: w, NoBrowser: true, Quiet: true})
	require.NoError(t, err)
	return rt, w
}

func TestLogin_LoopbackServer(t *testing.T) {
	ctx := context.Background()
	rt, browser := newBrowserRuntime(t)

	require.NoError(t, rt.Login(ctx, LoginOptions{}))
	<-browser.finished

	rec, err := rt.Store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BBB", rec.IDToken)
}

func TestEnsureAuthenticated(t *testing.T) {
	ctx := context.Background()

	t.Run("valid session does not prompt", func(t *testing.T) {
		rt := newTestRuntime(t, &bytes.Buffer{})
		require.NoError(t, rt.Store.Save(ctx, store.Record{
			AccessToken: "a", IDToken: "b", ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
		}))

		err := rt.EnsureAuthenticated(ctx, LoginOptions{
			Manual: true,
			Prompt: func(string) (string, error) {
				t.Error("unexpected prompt")
				return "", ErrPasteCancelled
			},
		})
		assert.NoError(t, err)
	})

	t.Run("expired session signs in again", func(t *testing.T) {
		rt, browser := newBrowserRuntime(t)
		require.NoError(t, rt.Store.Save(ctx, store.Record{AccessToken: "old", IDToken: "old", ExpiresAt: 1000}))

		require.NoError(t, rt.EnsureAuthenticated(ctx, LoginOptions{}))
		<-browser.finished

		rec, err := rt.Store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AAA", rec.AccessToken)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	seedValid := func(t *testing.T, rt *Runtime) {
		require.NoError(t, rt.Store.Save(ctx, store.Record{
			AccessToken: "a", IDToken: "b", ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
		}))
	}

	t.Run("clears session", func(t *testing.T) {
		rt := newTestRuntime(t, &bytes.Buffer{})
		seedValid(t, rt)

		require.NoError(t, rt.Logout(ctx, false, LoginOptions{}))
		_, err := rt.Verify(ctx)
		assert.ErrorIs(t, err, &AuthRequiredError{})
	})

	t.Run("relogin redirects immediately", func(t *testing.T) {
		var out bytes.Buffer
		rt := newTestRuntime(t, &out)
		seedValid(t, rt)

		var prompted bool
		err := rt.Logout(ctx, true, LoginOptions{
			Manual: true,
			Prompt: func(string) (string, error) {
				prompted = true
				return callbackFragment(stateFrom(t, out.String())), nil
			},
		})
		require.NoError(t, err)
		assert.True(t, prompted)

		rec, err := rt.Store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AAA", rec.AccessToken)
	})
}

func TestWatchStatus_RequiresFileBackend(t *testing.T) {
	rt := newTestRuntime(t, &bytes.Buffer{})
	err := rt.WatchStatus(context.Background(), formatting.FormatTable)
	assert.ErrorContains(t, err, "file storage backend")
}

func TestShowStatus(t *testing.T) {
	var out bytes.Buffer
	rt := newTestRuntime(t, &out)

	require.NoError(t, rt.ShowStatus(context.Background(), formatting.FormatTable))
	assert.Contains(t, out.String(), "Not authenticated")
	assert.Contains(t, out.String(), "tenant.example.com")
}

func TestShowStatus_JSON(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	rt := newTestRuntime(t, &out)
	expiresAt := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, rt.Store.Save(ctx, store.Record{AccessToken: "secret-access", IDToken: "b", ExpiresAt: expiresAt}))

	require.NoError(t, rt.ShowStatus(ctx, formatting.FormatJSON))

	var report StatusReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "authenticated", report.State)
	assert.True(t, report.Authenticated)
	assert.Equal(t, "tenant.example.com", report.Provider)
	assert.Equal(t, "memory", report.Storage)
	require.NotNil(t, report.ExpiresAt)
	assert.True(t, report.ExpiresAt.Equal(time.UnixMilli(expiresAt)))
	assert.NotContains(t, out.String(), "secret-access")
}
