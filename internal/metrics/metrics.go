package metrics

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/session"
)

var (
	_ api.Observer     = (*Metrics)(nil)
	_ session.Observer = (*Metrics)(nil)
)

// Metrics holds the client-side Prometheus metrics of schoolctl
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// API request metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// Session metrics
	SessionLoads        *prometheus.CounterVec
	SessionLoadDuration *prometheus.HistogramVec
	ContextSwitches     *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolctl_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schoolctl_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolctl_api_requests_total",
				Help: "Total number of school API requests",
			},
			[]string{"method", "route", "status"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schoolctl_api_latency_seconds",
				Help:    "School API request latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"method", "route"},
		),

		SessionLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolctl_session_loads_total",
				Help: "Total number of session loads by outcome",
			},
			[]string{"outcome"},
		),
		SessionLoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schoolctl_session_load_duration_seconds",
				Help:    "Session load duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"outcome"},
		),
		ContextSwitches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolctl_context_switches_total",
				Help: "Total number of role/school context switches",
			},
			[]string{"success"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schoolctl_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// ObserveRequest records one API request. A status of 0 means the request
// never got a response.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	route := Route(path)
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(method, route, code).Inc()
	m.APILatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveLoad records one finished session load
func (m *Metrics) ObserveLoad(outcome session.Outcome, elapsed time.Duration) {
	m.SessionLoads.WithLabelValues(string(outcome)).Inc()
	m.SessionLoadDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// RecordCommand records a command execution and, on failure, its error code
func (m *Metrics) RecordCommand(command string, elapsed time.Duration, errCode string) {
	m.CommandExecutions.WithLabelValues(command, strconv.FormatBool(errCode == "")).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
	if errCode != "" {
		m.Errors.WithLabelValues(errCode).Inc()
	}
}

// RecordSwitch records a context switch attempt
func (m *Metrics) RecordSwitch(success bool) {
	m.ContextSwitches.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// staticSegments are the literal path segments of the school API. Anything
// else in a path is treated as an identifier.
var staticSegments = map[string]bool{
	"academic-years": true,
	"active":         true,
	"activate":       true,
	"admin":          true,
	"auth":           true,
	"classrooms":     true,
	"context":        true,
	"core":           true,
	"dashboard":      true,
	"enroll":         true,
	"login":          true,
	"me":             true,
	"openapi.json":   true,
	"preference":     true,
	"rooms":          true,
	"schools":        true,
	"students":       true,
	"subjects":       true,
	"teachers":       true,
	"users":          true,
}

// Route reduces a request path to a low-cardinality label: the query is
// dropped and identifiers become ":id".
//
//	/rooms/r%201?school_id=3 -> /rooms/:id
func Route(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if u, err := url.PathUnescape(path); err == nil {
		path = u
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "" || staticSegments[p] || strings.HasSuffix(p, "_overview") {
			continue
		}
		parts[i] = ":id"
	}
	return "/" + strings.Join(parts, "/")
}
