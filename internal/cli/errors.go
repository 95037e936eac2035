package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// AuthRequiredError indicates there is no usable session.
// Implements error with actionable guidance.
type AuthRequiredError struct {
	// Reason explains why no session is available, if known.
	Reason string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "not signed in"
	}
	return fmt.Sprintf(`Authentication required: %s

To authenticate, run:
  gatekeep login

To check current authentication status:
  gatekeep status`, reason)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the stored session has expired.
type AuthExpiredError struct {
	// ExpiredAt is when the session expired.
	ExpiredAt time.Time
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf(`Authentication expired at %s

To re-authenticate, run:
  gatekeep login`, e.ExpiredAt.Format(time.RFC3339))
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates the sign-in attempt failed.
type AuthFailedError struct {
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Authentication failed: %v

To retry authentication, run:
  gatekeep login`, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// ProviderUnreachableError indicates the identity provider could not be
// contacted, typically while fetching its discovery document or keys.
type ProviderUnreachableError struct {
	// Issuer is the provider URL that could not be reached.
	Issuer string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with a hint per failure kind.
func (e *ProviderUnreachableError) Error() string {
	var hint string
	switch {
	case isTLSError(e.Reason):
		hint = "TLS certificate verification failed. Check the provider domain and your system trust store."
	case isTimeoutError(e.Reason):
		hint = "The provider did not answer in time. Check your network connection."
	default:
		hint = "Check the provider domain in config.yaml and your network connection."
	}
	return fmt.Sprintf("Could not reach identity provider %s: %v\n\n%s", e.Issuer, e.Reason, hint)
}

// Unwrap returns the underlying error.
func (e *ProviderUnreachableError) Unwrap() error {
	return e.Reason
}

// ClassifyProviderError returns a *ProviderUnreachableError when err is a
// network failure talking to issuer, and err unchanged otherwise.
func ClassifyProviderError(err error, issuer string) error {
	if err == nil {
		return nil
	}
	var dnsErr *net.DNSError
	if isTLSError(err) || isTimeoutError(err) || errors.As(err, &dnsErr) || isNetworkError(err.Error()) {
		return &ProviderUnreachableError{Issuer: issuer, Reason: err}
	}
	return err
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "Client.Timeout") || strings.Contains(errStr, "i/o timeout")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
