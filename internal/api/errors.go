package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is returned for every failed API call. StatusCode is 0 when the
// request never produced a response (transport failure); Err holds the cause.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	// Detail is the server's error message, or the status text when the
	// server sent none.
	Detail string
	// Payload is the raw error body when it was JSON.
	Payload json.RawMessage
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Detail)
}

// Unwrap returns the transport cause
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransport reports whether the request failed before a response arrived
func (e *Error) IsTransport() bool {
	return e.StatusCode == 0
}

// IsUnauthorized reports whether err is a 401 or 403 API error
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden)
}

// IsNotFound reports whether err is a 404 API error
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// StatusCode returns the HTTP status of an API error, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func hasStatus(err error, status int) bool {
	return StatusCode(err) == status
}

// validationItem is one entry of a FastAPI 422 "detail" list
type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func newStatusError(method, path string, resp *http.Response, body []byte) *Error {
	e := &Error{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
	}
	if json.Valid(body) {
		e.Payload = json.RawMessage(body)
	}
	e.Detail = extractDetail(body)
	if e.Detail == "" {
		e.Detail = e.Status
	}
	return e
}

// extractDetail pulls a human-readable message out of an error payload.
// Recognized shapes: {"detail": "..."}, {"detail": [{"loc":[...],"msg":"..."}]},
// {"error": "..."} and {"message": "..."}.
func extractDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []validationItem
		if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				msgs = append(msgs, formatValidationItem(it))
			}
			return strings.Join(msgs, "; ")
		}
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}

func formatValidationItem(it validationItem) string {
	if len(it.Loc) == 0 {
		return it.Msg
	}
	parts := make([]string, 0, len(it.Loc))
	for _, p := range it.Loc {
		if s, ok := p.(string); ok && s == "body" {
			continue
		}
		parts = append(parts, fmt.Sprint(p))
	}
	if len(parts) == 0 {
		return it.Msg
	}
	return strings.Join(parts, ".") + ": " + it.Msg
}
