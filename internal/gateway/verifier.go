package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
)

// IDTokenVerifier checks an identity token before it is trusted.
type IDTokenVerifier interface {
	// Verify validates rawIDToken's signature, issuer, audience and expiry.
	// A non-empty nonce must match the token's nonce claim; the access token
	// is checked against at_hash when the token carries one.
	Verify(ctx context.Context, rawIDToken, accessToken, nonce string) error
}

// OIDCVerifier verifies ID tokens against the provider's published keys.
// Provider discovery happens on first use.
type OIDCVerifier struct {
	issuer     string
	clientID   string
	httpClient *http.Client

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier creates a verifier for tokens issued by issuer to clientID.
// httpClient may be nil.
func NewOIDCVerifier(issuer, clientID string, httpClient *http.Client) *OIDCVerifier {
	return &OIDCVerifier{
		issuer:     issuer,
		clientID:   clientID,
		httpClient: httpClient,
	}
}

func (v *OIDCVerifier) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.verifier != nil {
		return v.verifier, nil
	}

	if v.httpClient != nil {
		ctx = oidc.ClientContext(ctx, v.httpClient)
	}
	provider, err := oidc.NewProvider(ctx, v.issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider %s: %w", v.issuer, err)
	}
	v.verifier = provider.Verifier(&oidc.Config{ClientID: v.clientID})
	return v.verifier, nil
}

// Verify implements IDTokenVerifier.
func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken, accessToken, nonce string) error {
	verifier, err := v.idTokenVerifier(ctx)
	if err != nil {
		return err
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return err
	}
	if nonce != "" && idToken.Nonce != nonce {
		return errors.New("nonce mismatch")
	}
	if idToken.AccessTokenHash != "" {
		if err := idToken.VerifyAccessToken(accessToken); err != nil {
			return err
		}
	}
	return nil
}
