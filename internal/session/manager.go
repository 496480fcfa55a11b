package session

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/log"
)

// Sentinels for SwitchContext preconditions. Compare with errors.Is.
var (
	ErrNotAuthenticated  = &errors.ConsoleError{Code: errors.ErrCodeAuthNotLoggedIn}
	ErrNoRoleAssignments = &errors.ConsoleError{Code: errors.ErrCodeSessionNoRoles}
)

// Manager is the single writer of the published Session.
//
// Every load is tagged with a sequence number when it starts. A load may only
// publish if no newer load (or logout) started meanwhile; otherwise its result
// is dropped. The published Session therefore always reflects the most
// recently requested state, whatever order responses arrive in.
type Manager struct {
	loader  *Loader
	backend Backend
	store   credential.Store
	logger  *log.Logger

	mu      sync.Mutex
	current Session
	seq     uint64
	logouts uint64
	subs    map[int]chan Session
	nextSub int
}

// NewManager creates a Manager. The initial Session is loading until the
// first Reload publishes.
func NewManager(loader *Loader, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	initial := Empty()
	initial.Loading = true
	return &Manager{
		loader:  loader,
		backend: loader.backend,
		store:   loader.store,
		logger:  logger,
		current: initial,
		subs:    make(map[int]chan Session),
	}
}

// Current returns a snapshot of the published Session
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// SchoolName joins a school id to its display name in the current Session
func (m *Manager) SchoolName(id domain.ID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.SchoolName(id)
}

// Reload runs a full load and publishes it, replacing the Session.
//
// The returned Session is what is published when Reload returns. If this load
// was superseded that is the newer state, not this load's result. The error
// is the load's error (AUTH-003 when the credential was rejected) and is
// returned even when the result was discarded.
func (m *Manager) Reload(ctx context.Context) (Session, error) {
	seq := m.begin()
	start := time.Now()

	s, err := m.loader.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		m.logger.Debug("discarding stale session load", "seq", seq, "latest", m.seq)
		m.loader.observe(OutcomeStale, start)
		return m.current.Clone(), err
	}
	if ctx.Err() != nil && err == ctx.Err() {
		// Cancelled before settling: keep what was published and stop loading.
		m.current.Loading = false
		m.publishLocked(m.current)
		return m.current.Clone(), err
	}
	m.publishLocked(s)
	return m.current.Clone(), err
}

// begin issues the next sequence number and marks the Session loading
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if !m.current.Loading {
		next := m.current.Clone()
		next.Loading = true
		m.publishLocked(next)
	}
	return m.seq
}

// Login exchanges credentials for a stored credential, then reloads. A
// logout that happens while the exchange is in flight wins: the credential
// it produced is cleared again.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	m.mu.Lock()
	epoch := m.logouts
	m.mu.Unlock()

	if _, err := m.backend.Login(ctx, username, password); err != nil {
		return m.Current(), errors.NewLoginFailedError(err)
	}

	m.mu.Lock()
	superseded := m.logouts != epoch
	m.mu.Unlock()
	if superseded {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.WithError(err).Warn("failed to clear credential of superseded login")
		}
		return m.Current(), errors.New(errors.ErrCodeAuthLoginFailed, "login was cancelled by a logout")
	}
	return m.Reload(ctx)
}

// Logout clears the credential and resets the Session to empty. Loads that
// are still in flight will not publish.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("failed to clear credential on logout")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.logouts++
	m.publishLocked(Empty())
	return err
}

// SwitchContext asks the server to make (role, schoolID) active and reloads.
//
// The caller must be authenticated with at least one role assignment. The
// server decides whether the pair is acceptable; the Session is only changed
// by the reload that follows a successful request. On failure the Session is
// left exactly as it was and the error is returned.
func (m *Manager) SwitchContext(ctx context.Context, role string, schoolID domain.ID) (Session, error) {
	cur := m.Current()
	if !cur.Authenticated() {
		return cur, errors.NewNotLoggedInError()
	}
	if len(cur.Roles) == 0 {
		return cur, errors.New(errors.ErrCodeSessionNoRoles, "the signed-in user has no role assignments")
	}

	if err := m.backend.SetPreference(ctx, role, schoolID); err != nil {
		m.logger.WithError(err).Debug("context switch rejected", "role", role, "school_id", schoolID.String())
		return cur, errors.NewSwitchFailedError(role, schoolID.String(), err)
	}

	return m.Reload(ctx)
}

// Subscribe returns a channel that receives every published Session, and a
// function that cancels the subscription. The channel holds only the latest
// Session; a slow reader skips intermediate ones.
func (m *Manager) Subscribe() (<-chan Session, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Session, 1)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

// publishLocked replaces the Session and notifies subscribers. m.mu must be held.
func (m *Manager) publishLocked(s Session) {
	m.current = s
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.Clone()
	}
}
