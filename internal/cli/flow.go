package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"gatekeep/internal/callback"
	"gatekeep/internal/gateway"
	"gatekeep/internal/session"
)

// AppName is shown on the callback pages.
const AppName = "gatekeep"

// LoginOptions controls how the provider response gets back to the CLI.
type LoginOptions struct {
	// Manual skips the loopback server; the user pastes the address the
	// provider redirected to.
	Manual bool
	// Prompt reads the pasted address. Defaults to PromptFragment.
	Prompt func(prompt string) (string, error)
}

// Login redirects to the provider even when a valid session exists, waits
// for the callback and stores the new credentials.
func (r *Runtime) Login(ctx context.Context, opts LoginOptions) error {
	srv, err := r.startCallbackServer(ctx, opts)
	if err != nil {
		return err
	}
	if srv != nil {
		defer srv.Stop()
	}

	if err := r.NewManager().Login(ctx); err != nil {
		return &AuthFailedError{Reason: err}
	}
	return r.complete(ctx, srv, opts)
}

// EnsureAuthenticated returns nil when a valid session is stored. Otherwise
// it redirects to the provider and completes the sign-in before returning.
func (r *Runtime) EnsureAuthenticated(ctx context.Context, opts LoginOptions) error {
	return r.ensure(ctx, r.NewManager(), opts)
}

// Logout removes the stored session. With relogin the same manager checks
// authentication right away, which starts a new sign-in.
func (r *Runtime) Logout(ctx context.Context, relogin bool, opts LoginOptions) error {
	mgr := r.NewManager()
	if err := mgr.Logout(ctx); err != nil {
		return err
	}
	r.printf("%s Signed out.\n", text.FgGreen.Sprint("✓"))

	if !relogin {
		return nil
	}
	return r.ensure(ctx, mgr, opts)
}

// Verify evaluates the stored session without ever redirecting. It returns
// *AuthRequiredError or *AuthExpiredError when there is no valid session.
func (r *Runtime) Verify(ctx context.Context) (session.Status, error) {
	status, err := r.NewManager().Evaluate(ctx)
	if err != nil {
		return status, &AuthRequiredError{Reason: fmt.Sprintf("credential storage unavailable (%v)", err)}
	}

	switch status.State {
	case session.StateAuthenticated:
		return status, nil
	case session.StateExpired:
		return status, &AuthExpiredError{ExpiredAt: status.ExpiresAt}
	default:
		return status, &AuthRequiredError{}
	}
}

// Resume hands a callback fragment to a freshly created manager, as the
// application does when it is loaded at the redirect URI.
func (r *Runtime) Resume(ctx context.Context, fragment string) error {
	mgr := r.NewManager()
	resumed, err := mgr.ResumeFromCallback(ctx, gateway.NewStaticLocation(fragment))
	if err != nil {
		return &AuthFailedError{Reason: ClassifyProviderError(err, r.Gateway.Config().Issuer())}
	}
	if !resumed {
		return &AuthFailedError{Reason: errors.New("no callback parameters found in the pasted address")}
	}

	r.printf("%s Signed in. Session valid until %s.\n",
		text.FgGreen.Sprint("✓"), mgr.ExpiresAt().Local().Format(time.RFC1123))
	return nil
}

func (r *Runtime) ensure(ctx context.Context, mgr *session.Manager, opts LoginOptions) error {
	status, err := mgr.Evaluate(ctx)
	if err == nil && status.State == session.StateAuthenticated {
		r.printf("%s Authenticated until %s.\n",
			text.FgGreen.Sprint("✓"), status.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	}

	srv, err := r.startCallbackServer(ctx, opts)
	if err != nil {
		return err
	}
	if srv != nil {
		defer srv.Stop()
	}

	err = mgr.CheckAuthentication(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrRedirectInProgress):
		return r.complete(ctx, srv, opts)
	default:
		return &AuthFailedError{Reason: err}
	}
}

// startCallbackServer starts the loopback listener before any redirect is
// issued. It returns nil in manual mode.
func (r *Runtime) startCallbackServer(ctx context.Context, opts LoginOptions) (*callback.Server, error) {
	if opts.Manual {
		return nil, nil
	}
	srv := callback.NewServer(AppName, r.Config.Provider.CallbackPort, r.Config.Provider.CallbackPath)
	if _, err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w\n\nAnother sign-in may be running. Use --manual to paste the callback address instead", err)
	}
	return srv, nil
}

// complete waits for the provider response, from the loopback server or
// pasted by the user, and resumes a fresh manager with it.
func (r *Runtime) complete(ctx context.Context, srv *callback.Server, opts LoginOptions) error {
	if srv == nil {
		prompt := opts.Prompt
		if prompt == nil {
			prompt = PromptFragment
		}
		fragment, err := prompt("Paste the address your browser was redirected to: ")
		if err != nil {
			return &AuthFailedError{Reason: err}
		}
		return r.Resume(ctx, fragment)
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.Config.Session.CallbackTimeout)
	defer cancel()

	var result callback.Result
	err := WithSpinner(r.out, r.quiet, "Authenticating...", func() error {
		var waitErr error
		result, waitErr = srv.WaitForCallback(waitCtx)
		return waitErr
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response from the browser within %s", r.Config.Session.CallbackTimeout)
		}
		return &AuthFailedError{Reason: err}
	}
	return r.Resume(ctx, result.Fragment)
}
