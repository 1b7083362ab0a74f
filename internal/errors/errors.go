package errors

import (
	"errors"
	"fmt"
)

// AmanError is the structured error type for AmanSearch.
// It provides rich context for error handling, logging, and user presentation.
type AmanError struct {
	// Code is the unique error code (e.g., "ERR_304_PROVIDER_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Detail keys used by the search pipeline.
const (
	DetailProviderID = "provider_id"
	DetailURL        = "url"
	DetailStatus     = "status"
)

// Error implements the error interface.
func (e *AmanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AmanError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with AmanError.
func (e *AmanError) Is(target error) bool {
	if t, ok := target.(*AmanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *AmanError) WithDetail(key, value string) *AmanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *AmanError) WithSuggestion(suggestion string) *AmanError {
	e.Suggestion = suggestion
	return e
}

// WithRetryable overrides the retryable flag derived from the code.
func (e *AmanError) WithRetryable(retryable bool) *AmanError {
	e.Retryable = retryable
	return e
}

// New creates a new AmanError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *AmanError {
	return &AmanError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an AmanError from an existing error.
// The error's message becomes the AmanError message.
func Wrap(code string, err error) *AmanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *AmanError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *AmanError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *AmanError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *AmanError {
	return New(ErrCodeInternal, message, cause)
}

// ProviderFailed reports a failed call to a search provider.
func ProviderFailed(providerID, message string, cause error) *AmanError {
	return New(ErrCodeProviderFailed, message, cause).
		WithDetail(DetailProviderID, providerID)
}

// ProviderTimeout reports a provider call that exceeded its deadline.
func ProviderTimeout(providerID string, cause error) *AmanError {
	return New(ErrCodeProviderTimeout, "provider timed out", cause).
		WithDetail(DetailProviderID, providerID)
}

// FetchFailed reports a failed page fetch during enrichment.
func FetchFailed(url, message string, cause error) *AmanError {
	return New(ErrCodeFetchFailed, message, cause).
		WithDetail(DetailURL, url)
}

// EmbeddingFailed reports a failed embedding request.
func EmbeddingFailed(message string, cause error) *AmanError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// NoProviders reports that routing produced no usable provider.
func NoProviders(message string) *AmanError {
	return New(ErrCodeNoProviders, message, nil).
		WithSuggestion("Configure at least one provider or pass a known engine id")
}

// IsRetryable checks if an error is retryable.
// Returns true if the chain contains an AmanError with Retryable flag set.
func IsRetryable(err error) bool {
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Severity == SeverityFatal
	}
	return false
}

// IsConfigurationError reports whether err is a configuration failure,
// the only class of error the search pipeline surfaces to callers.
func IsConfigurationError(err error) bool {
	return GetCategory(err) == CategoryConfig
}

// GetCode extracts the error code from an AmanError.
// Returns empty string if not an AmanError.
func GetCode(err error) string {
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// GetCategory extracts the category from an AmanError.
// Returns empty string if not an AmanError.
func GetCategory(err error) Category {
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ""
}

// ProviderIDOf returns the provider_id detail carried by err, if any.
func ProviderIDOf(err error) string {
	var ae *AmanError
	if errors.As(err, &ae) && ae.Details != nil {
		return ae.Details[DetailProviderID]
	}
	return ""
}

// Message returns the human-readable message of err without the code prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *AmanError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
