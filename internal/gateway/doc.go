// Package gateway wraps the identity provider's redirect-based implicit flow.
//
// BeginLogin sends the browser to
//
//	https://{domain}/authorize?client_id=..&response_type=token id_token&audience=..&redirect_uri=..&scope=openid&state=..&nonce=..
//
// and returns as soon as the redirect has been issued. The provider sends
// the browser back to the redirect URI with the tokens in the URL fragment:
//
//	{redirect_uri}#access_token=..&id_token=..&expires_in=..&token_type=Bearer&state=..
//
// or, on failure, with error and error_description. ParseCallback turns that
// fragment into a store.Record or a *CallbackParseError.
//
// The state and nonce of an issued redirect are kept in a Transactions
// implementation so a different process can check them when the callback
// arrives. ID tokens are verified with go-oidc when a verifier is configured.
package gateway
