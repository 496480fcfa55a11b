package tui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/session"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
)

type fakeSessions struct {
	mu        sync.Mutex
	current   session.Session
	updates   chan session.Session
	cancelled bool
	switchErr error
	switches  []domain.RoleAssignment
	reloads   int
}

func newFakeSessions(s session.Session) *fakeSessions {
	return &fakeSessions{current: s, updates: make(chan session.Session, 1)}
}

func (f *fakeSessions) Current() session.Session { return f.current }

func (f *fakeSessions) Subscribe() (<-chan session.Session, func()) {
	return f.updates, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelled = true
	}
}

func (f *fakeSessions) Reload(context.Context) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return f.current, nil
}

func (f *fakeSessions) SwitchContext(_ context.Context, role string, schoolID domain.ID) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switches = append(f.switches, domain.RoleAssignment{Role: role, SchoolID: schoolID})
	return f.current, f.switchErr
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []Tab
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, tab Tab, _ session.Session) (Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tab)
	if f.err != nil {
		return Content{}, f.err
	}
	return Content{Sections: []Section{{Title: tab.String(), Table: ux.Table{
		Headers: []string{"ID", "NAME"},
		Rows:    [][]string{{"1", tab.String() + " row"}},
	}}}}, nil
}

func adminSession() session.Session {
	return session.Session{
		Identity: &domain.User{ID: "u1", FirstName: "Ada", LastName: "Admin", Email: "ada@example.com"},
		Roles: []domain.RoleAssignment{
			{Role: "admin_principal", SchoolID: "1"},
			{Role: "teacher", SchoolID: "5"},
		},
		Schools:            []domain.School{{ID: "1", Name: "North High"}, {ID: "5", Name: "South Elementary"}},
		ActiveRole:         "admin_principal",
		ActiveSchool:       "1",
		ActiveAcademicYear: &domain.AcademicYear{ID: "y1", Name: "2025-2026"},
	}
}

func teacherSession() session.Session {
	s := adminSession()
	s.Roles = []domain.RoleAssignment{{Role: "teacher", SchoolID: "5"}}
	s.ActiveRole, s.ActiveSchool = "teacher", "5"
	return s
}

func update(t *testing.T, m Console, msg tea.Msg) (Console, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	c, ok := next.(Console)
	require.True(t, ok)
	return c, cmd
}

func newTestConsole(t *testing.T, initial session.Session) (Console, *fakeSessions, *fakeFetcher) {
	t.Helper()
	sessions := newFakeSessions(initial)
	fetcher := &fakeFetcher{}
	m := NewConsole(context.Background(), sessions, fetcher)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, sessions, fetcher
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// publish delivers a session and completes the fetch it triggers
func publish(t *testing.T, m Console, s session.Session) Console {
	t.Helper()
	m, _ = update(t, m, SessionMsg{Session: s})
	if m.loading[m.tab] {
		msg := m.fetchResult(t)
		m, _ = update(t, m, msg)
	}
	return m
}

// fetchResult runs the outstanding fetch of the current tab synchronously
func (m Console) fetchResult(t *testing.T) contentMsg {
	t.Helper()
	c, err := m.fetcher.Fetch(m.ctx, m.tab, m.session)
	return contentMsg{tab: m.tab, seq: m.seq[m.tab], content: c, err: err}
}

func TestConsoleInitialState(t *testing.T) {
	sessions := newFakeSessions(session.Session{Loading: true})
	m := NewConsole(context.Background(), sessions, &fakeFetcher{})

	assert.Equal(t, "Initializing...", m.View())
	assert.NotNil(t, m.Init())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, m.View(), "Loading session...")

	m.Close()
	assert.True(t, sessions.cancelled)
}

func TestConsoleSessionTriggersFetch(t *testing.T) {
	m, _, fetcher := newTestConsole(t, session.Session{Loading: true})

	m, cmd := update(t, m, SessionMsg{Session: adminSession()})
	assert.NotNil(t, cmd)
	assert.True(t, m.loading[TabOverview])
	assert.Positive(t, m.seq[TabOverview])

	m, _ = update(t, m, m.fetchResult(t))
	assert.False(t, m.loading[TabOverview])
	assert.Equal(t, []Tab{TabOverview}, fetcher.calls)

	out := m.View()
	assert.Contains(t, out, "Ada Admin")
	assert.Contains(t, out, "admin_principal @ North High")
	assert.Contains(t, out, "Year 2025-2026")
	assert.Contains(t, out, "Overview row")
}

func TestConsoleLoadingSessionDoesNotFetch(t *testing.T) {
	m, _, _ := newTestConsole(t, session.Session{Loading: true})

	loading := adminSession()
	loading.Loading = true
	m, _ = update(t, m, SessionMsg{Session: loading})
	assert.False(t, m.loading[TabOverview])
	assert.Zero(t, m.seq[TabOverview])
}

func TestConsoleIgnoresSupersededContent(t *testing.T) {
	m, _, _ := newTestConsole(t, session.Session{Loading: true})
	m, _ = update(t, m, SessionMsg{Session: adminSession()})
	stale := m.fetchResult(t)

	// a newer session restarts the fetch
	m, _ = update(t, m, SessionMsg{Session: adminSession()})
	require.NotEqual(t, stale.seq, m.seq[TabOverview])

	m, _ = update(t, m, stale)
	assert.True(t, m.loading[TabOverview], "the superseded result is dropped")
	_, cached := m.content[TabOverview]
	assert.False(t, cached)
}

func TestConsoleDropsOtherTabFetchAfterSessionChange(t *testing.T) {
	m, _, fetcher := newTestConsole(t, session.Session{Loading: true})
	m = publish(t, m, adminSession())

	// start an academics fetch for school 1, then return to the overview
	m, _ = update(t, m, keyRunes("2"))
	require.True(t, m.loading[TabAcademics])
	stale := m.fetchResult(t)
	m, _ = update(t, m, keyRunes("1"))

	switched := adminSession()
	switched.ActiveRole, switched.ActiveSchool = "teacher", "5"
	m = publish(t, m, switched)

	m, _ = update(t, m, stale)
	_, cached := m.content[TabAcademics]
	assert.False(t, cached, "content loaded for the previous school is dropped")

	m, cmd := update(t, m, keyRunes("2"))
	require.NotNil(t, cmd, "the tab is fetched again for the new session")
	assert.True(t, m.loading[TabAcademics])

	msg, ok := cmd().(contentMsg)
	require.True(t, ok)
	m, _ = update(t, m, msg)
	assert.Contains(t, m.content, TabAcademics)
	assert.Equal(t, TabAcademics, fetcher.calls[len(fetcher.calls)-1])
}

func TestConsoleTabNavigation(t *testing.T) {
	m, _, _ := newTestConsole(t, session.Session{Loading: true})
	m = publish(t, m, adminSession())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabAcademics, m.tab)
	assert.NotNil(t, cmd, "an uncached tab is fetched")
	assert.True(t, m.loading[TabAcademics])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabOverview, m.tab)

	m, cmd = update(t, m, keyRunes("1"))
	assert.Equal(t, TabOverview, m.tab)
	assert.Nil(t, cmd, "a cached tab is not fetched again")

	m, _ = update(t, m, keyRunes("5"))
	assert.Equal(t, TabUsers, m.tab)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabOverview, m.tab, "navigation wraps around")
}

func TestConsoleGuardsAdminTabs(t *testing.T) {
	m, _, fetcher := newTestConsole(t, session.Session{Loading: true})
	m = publish(t, m, teacherSession())

	m, cmd := update(t, m, keyRunes("3"))
	assert.Equal(t, TabFacilities, m.tab)
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), `Facilities requires a "admin" role.`)
	assert.Equal(t, []Tab{TabOverview}, fetcher.calls)
}

func TestConsoleSignedOut(t *testing.T) {
	m, _, fetcher := newTestConsole(t, adminSession())
	m, _ = update(t, m, SessionMsg{Session: session.Empty()})

	assert.Contains(t, m.View(), "Not signed in")
	assert.Contains(t, m.View(), "not signed in")
	assert.Empty(t, fetcher.calls)
}

func TestConsoleFetchFailureStaysOnView(t *testing.T) {
	m, _, fetcher := newTestConsole(t, session.Session{Loading: true})
	m = publish(t, m, adminSession())

	fetcher.err = &api.Error{Method: "GET", Path: "/rooms", StatusCode: 500, Detail: "Internal Server Error"}
	m, _ = update(t, m, keyRunes("3"))
	m, _ = update(t, m, m.fetchResult(t))

	assert.Equal(t, TabFacilities, m.tab)
	assert.False(t, m.loading[TabFacilities])
	assert.Contains(t, m.View(), "Facilities failed")
	assert.Contains(t, m.View(), "Internal Server Error")
}

func TestConsoleRoleSwitcher(t *testing.T) {
	m, sessions, _ := newTestConsole(t, session.Session{Loading: true})
	m = publish(t, m, adminSession())

	m, _ = update(t, m, keyRunes("s"))
	require.True(t, m.switching)
	assert.Contains(t, m.View(), "teacher @ South Elementary")
	assert.Contains(t, m.View(), "(active)")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.switching)
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, []domain.RoleAssignment{{Role: "teacher", SchoolID: "5"}}, sessions.switches)

	m, _ = update(t, m, msg)
	assert.Contains(t, m.View(), "Switched to teacher @ South Elementary")
}

func TestConsoleRoleSwitchFailure(t *testing.T) {
	m, sessions, _ := newTestConsole(t, session.Session{Loading: true})
	m = publish(t, m, adminSession())
	sessions.switchErr = errors.New("role not assigned")

	m, _ = update(t, m, keyRunes("s"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())

	assert.Contains(t, m.View(), "Switch failed: role not assigned")
	assert.Equal(t, TabOverview, m.tab)
}

func TestConsoleSwitcherCancel(t *testing.T) {
	m, sessions, _ := newTestConsole(t, session.Session{Loading: true})
	m = publish(t, m, adminSession())

	m, _ = update(t, m, keyRunes("s"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.switching)
	assert.Nil(t, cmd)
	assert.Empty(t, sessions.switches)
}

func TestConsoleSwitcherWithoutRoles(t *testing.T) {
	m, _, _ := newTestConsole(t, session.Session{Loading: true})
	s := adminSession()
	s.Roles = nil
	m = publish(t, m, s)

	m, _ = update(t, m, keyRunes("s"))
	assert.False(t, m.switching)
	assert.Contains(t, m.View(), "No role assignments")
}

func TestConsoleReloadAndQuit(t *testing.T) {
	m, sessions, _ := newTestConsole(t, adminSession())

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	assert.Equal(t, reloadedMsg{}, cmd())
	assert.Equal(t, 1, sessions.reloads)

	m, cmd = update(t, m, keyRunes("q"))
	assert.True(t, m.quitting)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestClientFetcher(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.RequestURI())
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/academic-years":
			_ = json.NewEncoder(w).Encode([]domain.AcademicYear{{ID: "y1", Name: "2025-2026", IsActive: true}})
		case "/subjects":
			_ = json.NewEncoder(w).Encode([]domain.Subject{{ID: "s1", Code: "MATH", Name: "Math"}})
		case "/classrooms":
			_ = json.NewEncoder(w).Encode([]domain.Classroom{})
		case "/dashboard/admin_overview":
			_ = json.NewEncoder(w).Encode(map[string]any{"total_students": 412})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, credential.NewMemoryStore(), api.WithHTTPClient(srv.Client()))
	f := ClientFetcher{Client: client}
	ctx := context.Background()

	c, err := f.Fetch(ctx, TabAcademics, adminSession())
	require.NoError(t, err)
	require.Len(t, c.Sections, 3)
	assert.Equal(t, "2025-2026", c.Sections[0].Table.Rows[0][1])
	assert.Equal(t, "MATH", c.Sections[1].Table.Rows[0][1])
	assert.Empty(t, c.Sections[2].Table.Rows)
	assert.Contains(t, paths, "/classrooms?school_id=1")

	c, err = f.Fetch(ctx, TabOverview, adminSession())
	require.NoError(t, err)
	assert.NotEmpty(t, c.Details)
	assert.Equal(t, []string{"Total students", "412"}, c.Sections[0].Table.Rows[0])

	_, err = f.Fetch(ctx, TabFacilities, adminSession())
	assert.True(t, api.IsNotFound(err))
}
