package gateway

import (
	"errors"
	"fmt"

	"gatekeep/pkg/strings"
)

// ErrCallbackParse matches every *CallbackParseError.
var ErrCallbackParse = errors.New("callback parse error")

// Error codes used when the provider did not send an error of its own.
const (
	CodeMissingTokens    = "missing_tokens"
	CodeInvalidExpiresIn = "invalid_expires_in"
	CodeInvalidState     = "invalid_state"
	CodeInvalidIDToken   = "invalid_id_token"
	CodeMalformed        = "malformed_fragment"
)

// CallbackParseError is returned by ParseCallback when the redirect-back
// fragment carries an error parameter or lacks the required tokens.
type CallbackParseError struct {
	// Code is the provider's error value (e.g. access_denied) or one of the
	// Code* constants.
	Code string
	// Description is the provider's error_description, if any.
	Description string
	// Err is an underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *CallbackParseError) Error() string {
	msg := "authentication callback failed: " + e.Code
	if e.Description != "" {
		msg += ": " + strings.SingleLine(e.Description, strings.MaxDescriptionLen)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CallbackParseError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, ErrCallbackParse) to match.
func (e *CallbackParseError) Is(target error) bool {
	return target == ErrCallbackParse
}
