package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeAuthNotLoggedIn    ErrorCode = "AUTH-001"
	ErrCodeAuthLoginFailed    ErrorCode = "AUTH-002"
	ErrCodeAuthCredentialLost ErrorCode = "AUTH-003"
	ErrCodeAuthForbidden      ErrorCode = "AUTH-004"

	// Session errors (SESSION-001 to SESSION-099)
	ErrCodeSessionNoRoles      ErrorCode = "SESSION-001"
	ErrCodeSessionSwitchFailed ErrorCode = "SESSION-002"
	ErrCodeSessionNoActiveYear ErrorCode = "SESSION-003"
	ErrCodeSessionBadContext   ErrorCode = "SESSION-004"

	// API errors (API-001 to API-099)
	ErrCodeAPIRequest   ErrorCode = "API-001"
	ErrCodeAPIResponse  ErrorCode = "API-002"
	ErrCodeAPINotFound  ErrorCode = "API-003"
	ErrCodeAPIRejected  ErrorCode = "API-004"
	ErrCodeAPITransport ErrorCode = "API-005"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-001"
	ErrCodeConfigLoad     ErrorCode = "CONFIG-002"
	ErrCodeConfigUnknown  ErrorCode = "CONFIG-003"
	ErrCodeConfigBackend  ErrorCode = "CONFIG-004"
	ErrCodeConfigWriteKey ErrorCode = "CONFIG-005"

	// Validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeValidationFailed ErrorCode = "VALIDATION-001"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"
)

// ConsoleError represents an enhanced error with code, suggestions, and documentation
type ConsoleError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *ConsoleError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ConsoleError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ConsoleError carrying the same code.
// This lets callers compare against sentinel values built with New.
func (e *ConsoleError) Is(target error) bool {
	t, ok := target.(*ConsoleError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// New creates a new ConsoleError
func New(code ErrorCode, message string) *ConsoleError {
	return &ConsoleError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new ConsoleError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *ConsoleError {
	return &ConsoleError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *ConsoleError) WithSuggestion(suggestion string) *ConsoleError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *ConsoleError) WithSuggestions(suggestions ...string) *ConsoleError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *ConsoleError) WithDocs(url string) *ConsoleError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first ConsoleError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	for err != nil {
		if ce, ok := err.(*ConsoleError); ok {
			return ce.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Common error constructors for frequently used errors

// NewNotLoggedInError is returned when a command needs a credential and none is stored
func NewNotLoggedInError() *ConsoleError {
	return New(ErrCodeAuthNotLoggedIn, "not logged in").
		WithSuggestion("Run 'schoolctl auth login' to authenticate")
}

// NewLoginFailedError wraps a rejected login attempt
func NewLoginFailedError(cause error) *ConsoleError {
	return Wrap(ErrCodeAuthLoginFailed, "login failed", cause).
		WithSuggestion("Check your email and password").
		WithSuggestion("Verify the API URL with 'schoolctl config get api_url'")
}

// NewCredentialLostError reports that the stored credential was rejected and cleared
func NewCredentialLostError(cause error) *ConsoleError {
	return Wrap(ErrCodeAuthCredentialLost, "session expired or credential rejected; you have been logged out", cause).
		WithSuggestion("Run 'schoolctl auth login' to sign in again")
}

// NewForbiddenError reports that the active session lacks the role a view requires
func NewForbiddenError(view, role string) *ConsoleError {
	return New(ErrCodeAuthForbidden, fmt.Sprintf("%s requires a %q role", view, role)).
		WithSuggestion("Run 'schoolctl context show' to list your role assignments").
		WithSuggestion("Switch with 'schoolctl context switch <role>@<school>'")
}

// NewSwitchFailedError wraps a rejected context switch
func NewSwitchFailedError(role, schoolID string, cause error) *ConsoleError {
	return Wrap(ErrCodeSessionSwitchFailed, fmt.Sprintf("could not switch to %s @ %s", role, schoolID), cause).
		WithSuggestion("Your previous role and school are still active")
}

// NewValidationError reports client-side form validation failures
func NewValidationError(details []string) *ConsoleError {
	return New(ErrCodeValidationFailed, "invalid input").
		WithSuggestions(details...)
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *ConsoleError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
