package config

import (
	"fmt"
	"strings"
)

// Error types of a ConfigurationError.
const (
	ErrorTypeIO         = "io"
	ErrorTypeParse      = "parse"
	ErrorTypeValidation = "validation"
)

// ConfigurationError represents a structured error that occurs during configuration loading
type ConfigurationError struct {
	FilePath    string   // Full path to the file that caused the error
	ErrorType   string   // Type of error (parse, validation, io)
	Message     string   // Human-readable error message
	Details     string   // Additional details about the error
	LineNumber  int      // Line number where error occurred (if available)
	Suggestions []string // Actionable suggestions to fix the error
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.FilePath, ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Configuration Error in %s", ce.FilePath))
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))

	if ce.LineNumber > 0 {
		parts = append(parts, fmt.Sprintf("  Line: %d", ce.LineNumber))
	}

	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// NewConfigurationError creates a new configuration error with basic information
func NewConfigurationError(filePath, errorType, message string) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		ErrorType: errorType,
		Message:   message,
	}
}

// NewConfigurationErrorWithDetails creates a new configuration error with additional details
func NewConfigurationErrorWithDetails(filePath, errorType, message, details string, line int, suggestions []string) ConfigurationError {
	return ConfigurationError{
		FilePath:    filePath,
		ErrorType:   errorType,
		Message:     message,
		Details:     details,
		LineNumber:  line,
		Suggestions: suggestions,
	}
}
