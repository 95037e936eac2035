// Package session implements the authentication lifecycle on top of the
// credential store and the identity provider gateway.
//
// A Manager starts in StateUnknown. A freshly started application first
// calls ResumeFromCallback with its current location, then
// CheckAuthentication whenever it needs to know whether the user is signed
// in. A redirect away from the application is reported as
// ErrRedirectInProgress; the outcome arrives in the next run.
package session
