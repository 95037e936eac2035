package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"gatekeep/internal/store"
	"gatekeep/pkg/logging"
	textutil "gatekeep/pkg/strings"
)

const (
	// DefaultScope is requested when Config.Scopes is empty.
	DefaultScope = "openid"

	// ResponseTypeImplicit asks for both tokens in the redirect fragment.
	ResponseTypeImplicit = "token id_token"

	// AuthorizePath is appended to the provider domain.
	AuthorizePath = "/authorize"
)

// Config is the fixed provider configuration used for every redirect.
type Config struct {
	// Domain is the provider host, e.g. tenant.eu.auth0.com. A scheme is
	// optional and defaults to https.
	Domain string
	// ClientID identifies this application at the provider.
	ClientID string
	// Audience is the API the access token is requested for.
	Audience string
	// RedirectURI is where the provider sends the browser back to.
	RedirectURI string
	// Scopes requested; defaults to openid.
	Scopes []string
	// ResponseType defaults to ResponseTypeImplicit.
	ResponseType string
}

// Issuer returns the provider's issuer URL (scheme, host and trailing slash).
func (c Config) Issuer() string {
	return c.baseURL() + "/"
}

func (c Config) baseURL() string {
	domain := strings.TrimSuffix(c.Domain, "/")
	if strings.HasPrefix(domain, "https://") || strings.HasPrefix(domain, "http://") {
		return domain
	}
	return "https://" + domain
}

// Validate reports missing required fields.
func (c Config) Validate() error {
	var missing []string
	if c.Domain == "" {
		missing = append(missing, "domain")
	}
	if c.ClientID == "" {
		missing = append(missing, "client id")
	}
	if c.RedirectURI == "" {
		missing = append(missing, "redirect uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("gateway config incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Location is the address the browser came back to. ClearFragment removes
// the tokens from it so they are neither parsed twice nor kept in history.
type Location interface {
	Fragment() string
	ClearFragment()
}

// StaticLocation is a Location over a fixed fragment string.
type StaticLocation struct {
	fragment string
	cleared  bool
}

// NewStaticLocation creates a Location for fragment (a bare fragment, a
// fragment with leading '#', or a full redirect URL).
func NewStaticLocation(fragment string) *StaticLocation {
	return &StaticLocation{fragment: fragment}
}

// Fragment implements Location.
func (l *StaticLocation) Fragment() string {
	if l.cleared {
		return ""
	}
	return l.fragment
}

// ClearFragment implements Location.
func (l *StaticLocation) ClearFragment() {
	l.cleared = true
}

// Cleared reports whether ClearFragment was called.
func (l *StaticLocation) Cleared() bool {
	return l.cleared
}

// NormalizeFragment extracts the callback parameters from s. It accepts a
// full URL, a '#'-prefixed fragment or a bare fragment. An address without
// a fragment yields its query string, where some providers put errors.
func NormalizeFragment(s string) string {
	s = strings.TrimSpace(s)
	if _, after, found := strings.Cut(s, "#"); found {
		return after
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, "/") {
		_, query, _ := strings.Cut(s, "?")
		return query
	}
	return s
}

// Gateway wraps the identity provider's implicit flow.
type Gateway struct {
	cfg          Config
	oauthConfig  oauth2.Config
	navigator    Navigator
	transactions Transactions
	verifier     IDTokenVerifier
	maxTxAge     time.Duration
	now          func() time.Time
	newID        func() string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithNavigator sets how redirects are performed. Defaults to BrowserNavigator.
func WithNavigator(n Navigator) Option {
	return func(g *Gateway) {
		g.navigator = n
	}
}

// WithTransactions sets where pending state and nonce are kept.
// Defaults to MemoryTransactions.
func WithTransactions(t Transactions) Option {
	return func(g *Gateway) {
		g.transactions = t
	}
}

// WithVerifier enables ID token verification.
func WithVerifier(v IDTokenVerifier) Option {
	return func(g *Gateway) {
		g.verifier = v
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// WithTransactionMaxAge bounds how old a pending transaction may be.
func WithTransactionMaxAge(d time.Duration) Option {
	return func(g *Gateway) {
		g.maxTxAge = d
	}
}

// New creates a gateway for cfg.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{DefaultScope}
	}
	if cfg.ResponseType == "" {
		cfg.ResponseType = ResponseTypeImplicit
	}

	g := &Gateway{
		cfg: cfg,
		oauthConfig: oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL: cfg.baseURL() + AuthorizePath,
			},
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
		},
		navigator:    BrowserNavigator{},
		transactions: &MemoryTransactions{},
		maxTxAge:     DefaultTransactionMaxAge,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Config returns the gateway configuration with defaults applied.
func (g *Gateway) Config() Config {
	return g.cfg
}

// AuthorizeURL builds the provider authorize URL for the given state and nonce.
func (g *Gateway) AuthorizeURL(state, nonce string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", g.cfg.ResponseType),
	}
	if g.cfg.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", g.cfg.Audience))
	}
	if nonce != "" {
		opts = append(opts, oauth2.SetAuthURLParam("nonce", nonce))
	}
	return g.oauthConfig.AuthCodeURL(state, opts...)
}

// BeginLogin redirects to the provider. Success only means the redirect was
// issued; the result arrives later through ParseCallback.
func (g *Gateway) BeginLogin(ctx context.Context) error {
	tx := Transaction{
		State:     g.newID(),
		Nonce:     g.newID(),
		CreatedAt: g.now(),
	}
	if err := g.transactions.Put(ctx, tx); err != nil {
		return fmt.Errorf("failed to record login transaction: %w", err)
	}

	authURL := g.AuthorizeURL(tx.State, tx.Nonce)
	logging.Info("Gateway", "Redirecting to identity provider %s", g.cfg.Domain)
	if err := g.navigator.Navigate(authURL); err != nil {
		return fmt.Errorf("failed to redirect to identity provider: %w", err)
	}
	return nil
}

// ParseCallback turns the redirect-back fragment into a Credential Record.
// It succeeds only when both an access token and an identity token are
// present; on success the fragment is cleared from loc.
func (g *Gateway) ParseCallback(ctx context.Context, loc Location) (store.Record, error) {
	raw := NormalizeFragment(loc.Fragment())
	if raw == "" {
		return store.Record{}, &CallbackParseError{Code: CodeMalformed, Description: "empty callback fragment"}
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return store.Record{}, &CallbackParseError{Code: CodeMalformed, Err: err}
	}

	// The pending transaction is single use, whatever the outcome.
	tx, hasTx, txErr := g.transactions.Take(ctx)

	// The provider's own error is reported as is, even for a stale login.
	if code := values.Get("error"); code != "" {
		perr := &CallbackParseError{Code: code, Description: values.Get("error_description")}
		logging.Warn("Gateway", "Identity provider returned error %s", code)
		return store.Record{}, perr
	}

	if txErr != nil {
		logging.Warn("Gateway", "Could not read pending login transaction: %v", txErr)
		return store.Record{}, &CallbackParseError{
			Code:        CodeInvalidState,
			Description: "pending login could not be read, start a new login",
			Err:         txErr,
		}
	}
	if hasTx && g.maxTxAge > 0 && g.now().Sub(tx.CreatedAt) > g.maxTxAge {
		logging.Warn("Gateway", "Ignoring stale login transaction from %s", tx.CreatedAt.Format(time.RFC3339))
		return store.Record{}, &CallbackParseError{Code: CodeInvalidState, Description: "login transaction expired"}
	}

	accessToken := values.Get("access_token")
	idToken := values.Get("id_token")
	if accessToken == "" || idToken == "" {
		return store.Record{}, &CallbackParseError{
			Code:        CodeMissingTokens,
			Description: "callback must carry both access_token and id_token",
		}
	}

	if hasTx {
		if values.Get("state") != tx.State {
			return store.Record{}, &CallbackParseError{Code: CodeInvalidState, Description: "state does not match the pending login"}
		}
	} else {
		logging.Warn("Gateway", "No pending login transaction; state and nonce not checked")
	}

	expiresIn, err := strconv.ParseInt(values.Get("expires_in"), 10, 64)
	if err != nil || expiresIn <= 0 {
		return store.Record{}, &CallbackParseError{
			Code:        CodeInvalidExpiresIn,
			Description: fmt.Sprintf("expires_in %q is not a positive integer", values.Get("expires_in")),
		}
	}

	if g.verifier != nil {
		if err := g.verifier.Verify(ctx, idToken, accessToken, tx.Nonce); err != nil {
			return store.Record{}, &CallbackParseError{Code: CodeInvalidIDToken, Err: err}
		}
	}

	loc.ClearFragment()

	rec := store.Record{
		AccessToken: accessToken,
		IDToken:     idToken,
		ExpiresAt:   g.now().UnixMilli() + expiresIn*1000,
	}
	logging.Info("Gateway", "Callback parsed, credentials valid until %s", rec.Expiry().Format(time.RFC3339))
	logging.Debug("Gateway", "Received access token %s", textutil.MaskToken(accessToken))
	return rec, nil
}

// IsCallbackError reports whether err is a *CallbackParseError and returns it.
func IsCallbackError(err error) (*CallbackParseError, bool) {
	var perr *CallbackParseError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}
