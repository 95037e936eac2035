package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "is required",
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// Validate checks the configuration and returns all problems at once as
// ValidationErrors, or nil.
func (c GatekeepConfig) Validate() error {
	var errs ValidationErrors
	add := func(err error) {
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	add(ValidateRequired("provider.domain", c.Provider.Domain))
	add(ValidateRequired("provider.clientId", c.Provider.ClientID))
	if d := c.Provider.Domain; d != "" && strings.Contains(d, "://") {
		if u, err := url.Parse(d); err != nil || u.Host == "" {
			errs.Add("provider.domain", "must be a host name or an absolute URL", d)
		}
	}
	if p := c.Provider.CallbackPort; p < 1 || p > 65535 {
		errs.Add("provider.callbackPort", "must be between 1 and 65535", p)
	}
	if !strings.HasPrefix(c.Provider.CallbackPath, "/") {
		errs.Add("provider.callbackPath", "must start with /", c.Provider.CallbackPath)
	}

	add(ValidateOneOf("storage.backend", string(c.Storage.Backend), []string{
		string(StorageBackendFile),
		string(StorageBackendKeyring),
		string(StorageBackendMemory),
	}))
	if c.Storage.Backend == StorageBackendKeyring {
		add(ValidateRequired("storage.keyringService", c.Storage.KeyringService))
	}

	if c.Session.StorageTimeout <= 0 {
		errs.Add("session.storageTimeout", "must be positive", c.Session.StorageTimeout)
	}
	if c.Session.CallbackTimeout <= 0 {
		errs.Add("session.callbackTimeout", "must be positive", c.Session.CallbackTimeout)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
