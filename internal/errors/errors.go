// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrMalformedResponse  = errors.New("malformed provider response")
	ErrProviderRejected   = errors.New("provider rejected request")
	ErrDataNotFound       = errors.New("data not found")
	ErrDatabaseError      = errors.New("database error")
)

// ConfigurationError is returned when required configuration is absent or invalid.
// It is raised before any network call is attempted.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: message,
	}
}

// AuthenticationError carries the provider's message when a login is refused.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return ErrInvalidCredentials
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

// ParseError enumerates the fields that were missing or invalid in a provider response.
type ParseError struct {
	Endpoint string
	Fields   []string
	Err      error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error [%s]", e.Endpoint)
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, ": missing or invalid %s", strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is matches ErrMalformedResponse so callers need not know the concrete type.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(endpoint string, fields []string, err error) *ParseError {
	return &ParseError{
		Endpoint: endpoint,
		Fields:   fields,
		Err:      err,
	}
}

// MissingDataError is returned when an expected entry is absent from fetched data,
// e.g. a tracked symbol with no price.
type MissingDataError struct {
	DataType string
	Symbol   string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data [%s] %s", e.DataType, e.Symbol)
}

func (e *MissingDataError) Unwrap() error {
	return ErrDataNotFound
}

// NewMissingDataError creates a new MissingDataError.
func NewMissingDataError(dataType, symbol string) *MissingDataError {
	return &MissingDataError{
		DataType: dataType,
		Symbol:   symbol,
	}
}

// ProviderError represents an error flag raised by the data provider on a read call.
type ProviderError struct {
	Endpoint string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%s]: %s", e.Endpoint, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return ErrProviderRejected
}

// NewProviderError creates a new ProviderError.
func NewProviderError(endpoint, message string) *ProviderError {
	return &ProviderError{
		Endpoint: endpoint,
		Message:  message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
