// Package cli glues the session lifecycle to the terminal: it builds the
// credential store, gateway and session manager from configuration, runs the
// loopback callback server during sign-in, and renders status output.
//
// Errors returned to the command layer are typed so they map onto exit
// codes: *AuthRequiredError and *AuthExpiredError mean the user has to sign
// in, *AuthFailedError means a sign-in attempt failed.
package cli
