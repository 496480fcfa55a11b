// Package exitcode maps command errors to process exit codes.
package exitcode

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"strings"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ValidationError indicates input rejected locally or by the API (400/422)
	ValidationError = 3

	// AccessDenied indicates the active role may not use the requested view
	AccessDenied = 4

	// AuthError indicates a missing, rejected or expired credential
	AuthError = 5

	// NetworkError indicates the API could not be reached
	NetworkError = 6

	// Interrupted indicates the command was cancelled (SIGINT/SIGTERM)
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode classifies err. Structured errors are inspected first;
// plain errors fall back to message matching (cobra usage errors, for one,
// are untyped).
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if code := fromConsoleError(err); code != GeneralError {
		return code
	}

	var apiErr *api.Error
	if stderrors.As(err, &apiErr) {
		return fromAPIError(apiErr)
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return NetworkError
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return NetworkError
	}

	return fromMessage(strings.ToLower(err.Error()))
}

func fromConsoleError(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrCodeAuthNotLoggedIn, errors.ErrCodeAuthLoginFailed, errors.ErrCodeAuthCredentialLost:
		return AuthError
	case errors.ErrCodeAuthForbidden:
		return AccessDenied
	case errors.ErrCodeValidationFailed:
		return ValidationError
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigUnknown, errors.ErrCodeConfigWriteKey:
		return UsageError
	}
	return GeneralError
}

func fromAPIError(e *api.Error) int {
	switch {
	case e.IsTransport():
		return NetworkError
	case e.StatusCode == 401:
		return AuthError
	case e.StatusCode == 403:
		return AccessDenied
	case e.StatusCode == 400 || e.StatusCode == 422:
		return ValidationError
	}
	return GeneralError
}

func fromMessage(msg string) int {
	switch {
	case strings.Contains(msg, "unknown command"),
		strings.Contains(msg, "unknown flag"),
		strings.Contains(msg, "unknown shorthand flag"),
		strings.Contains(msg, "invalid argument"),
		strings.Contains(msg, "required flag"),
		strings.Contains(msg, "accepts") && strings.Contains(msg, "arg(s)"):
		return UsageError
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"):
		return NetworkError
	}
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or configuration)"
	case ValidationError:
		return "Validation error"
	case AccessDenied:
		return "Access denied for the active role"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
