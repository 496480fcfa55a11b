package health

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout bounds each check
const DefaultTimeout = 5 * time.Second

// Report is the result of one named check
type Report struct {
	Name   string `json:"name" yaml:"name"`
	Result `yaml:",inline"`
}

// Manager runs checks in parallel, each under its own timeout
type Manager struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

// NewManager creates a Manager with DefaultTimeout
func NewManager(checkers ...Checker) *Manager {
	return &Manager{
		checkers: checkers,
		timeout:  DefaultTimeout,
	}
}

// WithTimeout sets the per-check timeout
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return m
}

// AddChecker registers a checker. Reports keep registration order.
func (m *Manager) AddChecker(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// CheckNames returns the registered check names in order
func (m *Manager) CheckNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.checkers))
	for i, c := range m.checkers {
		names[i] = c.Name()
	}
	return names
}

// Check runs every checker concurrently and returns one report per checker,
// in registration order. A checker that returns nil is reported unhealthy.
func (m *Manager) Check(ctx context.Context) []Report {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	timeout := m.timeout
	m.mu.RUnlock()

	reports := make([]Report, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			res := c.Check(checkCtx)
			if res == nil {
				res = Unhealthy("check returned no result")
			}
			if res.Latency == 0 {
				res.Latency = time.Since(start)
			}
			reports[i] = Report{Name: c.Name(), Result: *res}
		}()
	}
	wg.Wait()
	return reports
}

// Overall returns the worst status among the reports, healthy when empty
func Overall(reports []Report) Status {
	worst := StatusHealthy
	for _, r := range reports {
		if r.Status.severity() > worst.severity() {
			worst = r.Status
		}
	}
	return worst
}
