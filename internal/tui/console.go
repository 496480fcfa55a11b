package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/session"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
	"github.com/felixgeelhaar/schoolctl/internal/view"
)

// Sessions is the part of the session manager the console drives
type Sessions interface {
	Current() session.Session
	Subscribe() (<-chan session.Session, func())
	Reload(ctx context.Context) (session.Session, error)
	SwitchContext(ctx context.Context, role string, schoolID domain.ID) (session.Session, error)
}

var _ Sessions = (*session.Manager)(nil)

// SessionMsg carries a newly published session
type SessionMsg struct {
	Session session.Session
}

type contentMsg struct {
	tab     Tab
	seq     int
	content Content
	err     error
}

type switchedMsg struct {
	to  domain.RoleAssignment
	err error
}

type reloadedMsg struct {
	err error
}

// Console is the full-screen console model
type Console struct {
	ctx      context.Context
	sessions Sessions
	fetcher  Fetcher
	updates  <-chan session.Session
	cancel   func()

	session session.Session
	tab     Tab
	content map[Tab]Content
	loading map[Tab]bool
	seq     map[Tab]int
	message string
	failed  bool

	// role switcher
	switching bool
	cursor    int

	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	styles   Styles

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewConsole creates a console subscribed to sessions. Close releases the
// subscription.
func NewConsole(ctx context.Context, sessions Sessions, fetcher Fetcher) Console {
	updates, cancel := sessions.Subscribe()
	return Console{
		ctx:      ctx,
		sessions: sessions,
		fetcher:  fetcher,
		updates:  updates,
		cancel:   cancel,
		session:  sessions.Current(),
		tab:      TabOverview,
		content:  make(map[Tab]Content),
		loading:  make(map[Tab]bool),
		seq:      make(map[Tab]int),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport: viewport.New(80, 20),
		help:     help.New(),
		keys:     defaultKeys(),
		styles:   DefaultStyles(),
	}
}

// Close cancels the session subscription
func (m Console) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// RunConsole runs the console until the user quits
func RunConsole(ctx context.Context, sessions Sessions, fetcher Fetcher, opts ...tea.ProgramOption) error {
	m := NewConsole(ctx, sessions, fetcher)
	defer m.Close()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

// Init starts the spinner, listens for sessions and reloads the session
func (m Console) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSession(), m.reload(), m.fetch(m.tab))
}

func (m Console) waitForSession() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return SessionMsg{Session: s}
	}
}

func (m Console) reload() tea.Cmd {
	return func() tea.Msg {
		_, err := m.sessions.Reload(m.ctx)
		return reloadedMsg{err: err}
	}
}

// fetch loads a tab when the guard allows it, superseding earlier loads of
// the same tab.
func (m Console) fetch(tab Tab) tea.Cmd {
	if tab.Route().Check(m.session).Verdict != session.Allow {
		return nil
	}
	m.seq[tab]++
	m.loading[tab] = true
	seq, s := m.seq[tab], m.session.Clone()
	fetcher, ctx := m.fetcher, m.ctx
	return func() tea.Msg {
		c, err := fetcher.Fetch(ctx, tab, s)
		return contentMsg{tab: tab, seq: seq, content: c, err: err}
	}
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-8, 3)
		m.help.Width = msg.Width
		m.ready = true
		m.refreshViewport()
		return m, nil

	case SessionMsg:
		m.session = msg.Session
		cmds := []tea.Cmd{m.waitForSession()}
		if !msg.Session.Loading {
			// every published session may change what each view shows
			clear(m.content)
			clear(m.loading)
			for _, t := range Tabs() {
				m.seq[t]++
			}
			cmds = append(cmds, m.fetch(m.tab))
		}
		m.refreshViewport()
		return m, tea.Batch(cmds...)

	case contentMsg:
		if msg.seq != m.seq[msg.tab] {
			return m, nil
		}
		m.loading[msg.tab] = false
		if msg.err != nil {
			m.setMessage(fmt.Sprintf("%s failed: %v", msg.tab, ux.EnhanceError(msg.err)), true)
			return m, nil
		}
		m.content[msg.tab] = msg.content
		m.refreshViewport()
		return m, nil

	case switchedMsg:
		if msg.err != nil {
			m.setMessage(fmt.Sprintf("Switch failed: %v", ux.EnhanceError(msg.err)), true)
		} else {
			m.setMessage("Switched to "+view.RoleLabel(m.session, msg.to), false)
		}
		return m, nil

	case reloadedMsg:
		if msg.err != nil {
			m.setMessage(fmt.Sprintf("Session reload failed: %v", ux.EnhanceError(msg.err)), true)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Console) setMessage(text string, failed bool) {
	m.message = text
	m.failed = failed
}

func (m Console) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.switching {
		return m.handleSwitcherKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Next):
		return m.selectTab(Tab((int(m.tab) + 1) % len(tabTitles)))

	case key.Matches(msg, m.keys.Prev):
		return m.selectTab(Tab((int(m.tab) + len(tabTitles) - 1) % len(tabTitles)))

	case key.Matches(msg, m.keys.Refresh):
		m.message = ""
		return m, m.fetch(m.tab)

	case key.Matches(msg, m.keys.Reload):
		m.message = ""
		return m, m.reload()

	case key.Matches(msg, m.keys.Switch):
		if len(m.session.Roles) == 0 {
			m.setMessage("No role assignments to switch between", true)
			return m, nil
		}
		m.switching = true
		m.cursor = 0
		return m, nil
	}

	if s := msg.String(); len(s) == 1 && s[0] >= '1' && int(s[0]-'1') < len(tabTitles) {
		return m.selectTab(Tab(s[0] - '1'))
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Console) handleSwitcherKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.switching = false
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.session.Roles)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		m.switching = false
		if m.cursor >= len(m.session.Roles) {
			return m, nil
		}
		to := m.session.Roles[m.cursor]
		m.setMessage("Switching to "+view.RoleLabel(m.session, to)+"...", false)
		sessions, ctx := m.sessions, m.ctx
		return m, func() tea.Msg {
			_, err := sessions.SwitchContext(ctx, to.Role, to.SchoolID)
			return switchedMsg{to: to, err: err}
		}
	}
	return m, nil
}

func (m Console) selectTab(tab Tab) (tea.Model, tea.Cmd) {
	m.tab = tab
	m.message = ""
	m.viewport.GotoTop()
	m.refreshViewport()
	if _, cached := m.content[tab]; cached || m.loading[tab] {
		return m, nil
	}
	return m, m.fetch(tab)
}

func (m *Console) refreshViewport() {
	m.viewport.SetContent(m.renderContent(m.content[m.tab]))
}

// View renders the console (required by Bubble Tea)
func (m Console) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.switching {
		b.WriteString(m.renderSwitcher())
	} else {
		b.WriteString(m.renderBody())
	}
	b.WriteString("\n")

	if m.message != "" {
		style := m.styles.Success
		if m.failed {
			style = m.styles.Error
		}
		b.WriteString(style.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Console) renderHeader() string {
	title := m.styles.Title.Render("schoolctl")
	s := m.session
	switch {
	case s.Loading && !s.Authenticated():
		return title + "  " + m.spinner.View() + " Loading session..."
	case !s.Authenticated():
		return title + "  " + m.styles.Muted.Render("not signed in")
	}

	parts := []string{s.Identity.FullName()}
	if active, ok := s.Active(); ok {
		parts = append(parts, view.RoleLabel(s, active))
	}
	if s.ActiveAcademicYear != nil {
		parts = append(parts, "Year "+s.ActiveAcademicYear.Name)
	}
	header := title + "  " + m.styles.Subtitle.Render(strings.Join(parts, "  |  "))
	if s.Loading {
		header += "  " + m.spinner.View()
	}
	return header
}

func (m Console) renderTabs() string {
	rendered := make([]string, 0, len(tabTitles))
	for _, tab := range Tabs() {
		label := fmt.Sprintf("%d %s", int(tab)+1, tab)
		if tab == m.tab {
			rendered = append(rendered, m.styles.ActiveTab.Render(label))
		} else {
			rendered = append(rendered, m.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Console) renderBody() string {
	route := m.tab.Route()
	decision := route.Check(m.session)
	switch {
	case decision.Verdict == session.Pending:
		return m.spinner.View() + " Loading session..."
	case decision.Verdict == session.Redirect && decision.Target == session.LoginRoute:
		return m.styles.Muted.Render("Not signed in. Run 'schoolctl auth login' and reopen the console.")
	case decision.Verdict == session.Redirect:
		return m.styles.Error.Render(fmt.Sprintf("%s requires a %q role.", m.tab, route.RequiredRole)) + "\n" +
			m.styles.Muted.Render("Press s to switch role.")
	}

	if _, ok := m.content[m.tab]; !ok && m.loading[m.tab] {
		return m.spinner.View() + " Loading " + strings.ToLower(m.tab.String()) + "..."
	}
	return m.viewport.View()
}

func (m Console) renderContent(c Content) string {
	var b strings.Builder
	if len(c.Details) > 0 {
		width := 0
		for _, d := range c.Details {
			width = max(width, len(d.Label))
		}
		for _, d := range c.Details {
			b.WriteString(m.styles.Label.Render(fmt.Sprintf("%-*s", width+1, d.Label+":")))
			b.WriteString(" " + d.Value + "\n")
		}
	}
	for _, sec := range c.Sections {
		b.WriteString(m.styles.Section.Render(sec.Title))
		b.WriteString("\n")
		if len(sec.Table.Rows) == 0 {
			b.WriteString(m.styles.Muted.Render(sec.Table.Empty))
			b.WriteString("\n")
			continue
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("63"))).
			Headers(sec.Table.Headers...).
			Rows(sec.Table.Rows...)
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	return b.String()
}

func (m Console) renderSwitcher() string {
	active, _ := m.session.Active()
	lines := []string{m.styles.Section.Render("Switch role"), ""}
	for i, ra := range m.session.Roles {
		cursor := "  "
		if i == m.cursor {
			cursor = m.styles.Cursor.Render("> ")
		}
		label := view.RoleLabel(m.session, ra)
		if ra.Key() == active.Key() {
			label += m.styles.Muted.Render(" (active)")
		}
		lines = append(lines, cursor+label)
	}
	lines = append(lines, "", m.styles.Muted.Render("enter to switch, esc to cancel"))
	return m.styles.Border.Render(strings.Join(lines, "\n"))
}
