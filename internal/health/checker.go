// Package health runs diagnostic checks against the things schoolctl depends
// on: its configuration, the credential store, the school API and the
// session built from them. `schoolctl doctor` reports the results.
package health

import (
	"context"
	"time"
)

// Checker verifies one dependency. Check must honour the context deadline.
type Checker interface {
	Name() string
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check
type Status string

const (
	// StatusHealthy means the dependency works
	StatusHealthy Status = "healthy"
	// StatusDegraded means commands can run but some will fail, e.g. nobody is signed in
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means commands depending on it will fail
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

// severity orders statuses from best to worst
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Result is what a Checker found
type Result struct {
	Status  Status            `json:"status" yaml:"status"`
	Message string            `json:"message" yaml:"message"`
	Details map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration     `json:"latency" yaml:"latency"`
}

// NewResult creates a result with the given status and message
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]string),
	}
}

// WithDetail adds a detail and returns the result for chaining
func (r *Result) WithDetail(key, value string) *Result {
	r.Details[key] = value
	return r
}

// Healthy creates a healthy result
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
