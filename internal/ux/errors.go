package ux

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a recovery hint to API errors. Coded console errors
// already carry their own suggestions and are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var ce *errors.ConsoleError
	if stderrors.As(err, &ce) {
		return err
	}

	var apiErr *api.Error
	if !stderrors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.IsTransport():
		return NewErrorWithSuggestion(err,
			"Check that the school API is running and that api_url is correct ('schoolctl config get api_url')")
	case apiErr.StatusCode == 401:
		return NewErrorWithSuggestion(err, "Sign in again with 'schoolctl auth login'")
	case apiErr.StatusCode == 403:
		return NewErrorWithSuggestion(err,
			"Your active role may not perform this action; switch with 'schoolctl context switch'")
	case apiErr.StatusCode == 404:
		return NewErrorWithSuggestion(err, "Check the identifier; list commands show valid IDs")
	case apiErr.StatusCode == 400 || apiErr.StatusCode == 422:
		return NewErrorWithSuggestion(err, "Fix the fields named above and retry")
	case apiErr.StatusCode >= 500:
		return NewErrorWithSuggestion(err, "The server failed; retry later or check the server logs")
	}
	return err
}

// PrintError writes err to w, styled unless noColor is set
func PrintError(w io.Writer, err error, noColor bool) {
	if err == nil {
		return
	}

	prefix := lipgloss.NewStyle()
	if !noColor {
		prefix = prefix.Bold(true).Foreground(lipgloss.Color("196"))
	}

	msg := strings.TrimSpace(EnhanceError(err).Error())
	fmt.Fprintf(w, "%s %s\n", prefix.Render("Error:"), msg)
}
