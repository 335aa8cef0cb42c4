// Package errors provides a structured error system for the container
// persistence helpers with error codes, categories, and context.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for persistence operations.
type ErrorCode string

// Error code constants organized by category.
const (
	// Configuration errors
	ErrCodeInvalidConfig      ErrorCode = "INVALID_CONFIG"
	ErrCodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigSave         ErrorCode = "CONFIG_SAVE"
	ErrCodeUnsupportedMethod  ErrorCode = "UNSUPPORTED_METHOD"
	ErrCodeUnsupportedDialect ErrorCode = "UNSUPPORTED_DIALECT"

	// Connection errors
	ErrCodeConnectionFailed  ErrorCode = "CONNECTION_FAILED"
	ErrCodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"
	ErrCodeHostResolution    ErrorCode = "HOST_RESOLUTION"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"

	// Persistence errors
	ErrCodeQueryFailed      ErrorCode = "QUERY_FAILED"
	ErrCodeTableExists      ErrorCode = "TABLE_EXISTS"
	ErrCodeIndexExists      ErrorCode = "INDEX_EXISTS"
	ErrCodeDuplicateEntry   ErrorCode = "DUPLICATE_ENTRY"
	ErrCodeSchemaReflection ErrorCode = "SCHEMA_REFLECTION"

	// Config/secret store errors
	ErrCodeStoreRead      ErrorCode = "STORE_READ"
	ErrCodeStoreWrite     ErrorCode = "STORE_WRITE"
	ErrCodeCredentialRead ErrorCode = "CREDENTIAL_READ"

	// Operation errors
	ErrCodeOperationTimeout ErrorCode = "OPERATION_TIMEOUT"
	ErrCodeRetryExhausted   ErrorCode = "RETRY_EXHAUSTED"
	ErrCodeEncodingFailed   ErrorCode = "ENCODING_FAILED"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnknownError  ErrorCode = "UNKNOWN_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryConnection    ErrorCategory = "connection"
	CategoryPersistence   ErrorCategory = "persistence"
	CategoryStore         ErrorCategory = "store"
	CategoryOperation     ErrorCategory = "operation"
	CategoryInternal      ErrorCategory = "internal"
)

// Class tags an error outcome for callers that must decide between
// swallowing a benign condition and aborting. Recoverable errors are
// expected duplicates (a table, index or row that already exists);
// everything else is fatal.
type Class string

const (
	ClassRecoverable Class = "recoverable"
	ClassFatal       Class = "fatal"
)

// GluuError represents a structured error with context and metadata.
type GluuError struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Class    Class         `json:"class"`
	Message  string        `json:"message"`

	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"` // Not serialized to avoid circular refs
	Timestamp time.Time         `json:"timestamp"`

	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`

	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *GluuError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *GluuError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *GluuError) Is(target error) bool {
	if gluuErr, ok := target.(*GluuError); ok {
		return e.Code == gluuErr.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *GluuError) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Class=%s", e.Class))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}

	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("GluuError{%s}", strings.Join(parts, ", "))
}

// NewError creates a new error with default values derived from the code.
func NewError(code ErrorCode, message string) *GluuError {
	return &GluuError{
		Code:      code,
		Category:  GetCategory(code),
		Class:     GetDefaultClass(code),
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
		Retryable: IsRetryableByDefault(code),
	}
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_CONFIG") || strings.HasPrefix(codeStr, "CONFIG_") ||
		strings.HasPrefix(codeStr, "UNSUPPORTED_"):
		return CategoryConfiguration
	case strings.HasPrefix(codeStr, "CONNECTION_") || strings.HasPrefix(codeStr, "NETWORK_") ||
		strings.HasPrefix(codeStr, "HOST_"):
		return CategoryConnection
	case strings.HasPrefix(codeStr, "QUERY_") || strings.HasPrefix(codeStr, "TABLE_") ||
		strings.HasPrefix(codeStr, "INDEX_") || strings.HasPrefix(codeStr, "DUPLICATE_") ||
		strings.HasPrefix(codeStr, "SCHEMA_"):
		return CategoryPersistence
	case strings.HasPrefix(codeStr, "STORE_") || strings.HasPrefix(codeStr, "CREDENTIAL_"):
		return CategoryStore
	case strings.HasPrefix(codeStr, "OPERATION_") || strings.HasPrefix(codeStr, "RETRY_") ||
		strings.HasPrefix(codeStr, "ENCODING_"):
		return CategoryOperation
	default:
		return CategoryInternal
	}
}

// GetDefaultClass determines the class of an error code. Only the
// expected-duplicate codes are recoverable.
func GetDefaultClass(code ErrorCode) Class {
	switch code {
	case ErrCodeTableExists, ErrCodeIndexExists, ErrCodeDuplicateEntry:
		return ClassRecoverable
	}
	return ClassFatal
}

// IsRetryableByDefault determines if an error is retryable by default.
// Host resolution failures are deliberately absent: a resolved-once host
// list is never re-probed.
func IsRetryableByDefault(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		ErrCodeConnectionTimeout: true,
		ErrCodeConnectionFailed:  true,
		ErrCodeNetworkError:      true,
		ErrCodeOperationTimeout:  true,
	}
	return retryableCodes[code]
}

// IsRecoverable reports whether err carries the recoverable class,
// unwrapping as needed. Plain errors are fatal.
func IsRecoverable(err error) bool {
	var gluuErr *GluuError
	if stderrors.As(err, &gluuErr) {
		return gluuErr.Class == ClassRecoverable
	}
	return false
}

// WithContext adds contextual information to an error.
func (e *GluuError) WithContext(key, value string) *GluuError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithComponent sets the component for an error.
func (e *GluuError) WithComponent(component string) *GluuError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error.
func (e *GluuError) WithOperation(operation string) *GluuError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause.
func (e *GluuError) WithCause(cause error) *GluuError {
	e.Cause = cause
	return e
}

// WithClass overrides the default class of an error.
func (e *GluuError) WithClass(class Class) *GluuError {
	e.Class = class
	return e
}
