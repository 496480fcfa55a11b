package tui

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/session"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
	"github.com/felixgeelhaar/schoolctl/internal/view"
)

// Tab is one view of the console
type Tab int

// Console tabs, in display order
const (
	TabOverview Tab = iota
	TabAcademics
	TabFacilities
	TabStudents
	TabUsers
)

var tabRoutes = []string{
	TabOverview:   "/dashboard",
	TabAcademics:  "/academic-years",
	TabFacilities: "/rooms",
	TabStudents:   "/students",
	TabUsers:      "/admin/users",
}

var tabTitles = []string{
	TabOverview:   "Overview",
	TabAcademics:  "Academics",
	TabFacilities: "Facilities",
	TabStudents:   "Students",
	TabUsers:      "Users",
}

// Tabs lists every tab in display order
func Tabs() []Tab {
	return []Tab{TabOverview, TabAcademics, TabFacilities, TabStudents, TabUsers}
}

func (t Tab) String() string {
	if int(t) < 0 || int(t) >= len(tabTitles) {
		return "unknown"
	}
	return tabTitles[t]
}

// Route returns the protected route that guards the tab
func (t Tab) Route() session.Route {
	r, _ := session.Lookup(tabRoutes[t])
	return r
}

// Section is a titled table
type Section struct {
	Title string
	Table ux.Table
}

// Content is what a tab displays
type Content struct {
	Details  ux.Details
	Sections []Section
}

// Fetcher loads the content of a tab for a session
type Fetcher interface {
	Fetch(ctx context.Context, tab Tab, s session.Session) (Content, error)
}

// ClientFetcher fetches tab content from the school API
type ClientFetcher struct {
	Client *api.Client
}

var _ Fetcher = ClientFetcher{}

// Fetch implements Fetcher. School-scoped lists use the active school.
func (f ClientFetcher) Fetch(ctx context.Context, tab Tab, s session.Session) (Content, error) {
	switch tab {
	case TabOverview:
		return f.overview(ctx, s)
	case TabAcademics:
		return f.academics(ctx, s)
	case TabFacilities:
		rooms, err := f.Client.Rooms(ctx, s.ActiveSchool)
		if err != nil {
			return Content{}, err
		}
		return Content{Sections: []Section{{Title: "Rooms", Table: view.Rooms(rooms)}}}, nil
	case TabStudents:
		students, err := f.Client.Students(ctx)
		if err != nil {
			return Content{}, err
		}
		return Content{Sections: []Section{{Title: "Students", Table: view.Students(students)}}}, nil
	case TabUsers:
		return f.users(ctx)
	default:
		return Content{}, fmt.Errorf("unknown tab %d", tab)
	}
}

func (f ClientFetcher) overview(ctx context.Context, s session.Session) (Content, error) {
	c := Content{Details: view.Context(s)}
	if s.ActiveRole == "" {
		return c, nil
	}
	o, err := f.Client.Overview(ctx, domain.RoleFamily(s.ActiveRole))
	if err != nil {
		return Content{}, err
	}
	c.Sections = []Section{{Title: "Dashboard", Table: detailsTable(view.Overview(o))}}
	return c, nil
}

func (f ClientFetcher) academics(ctx context.Context, s session.Session) (Content, error) {
	var (
		years      []domain.AcademicYear
		subjects   []domain.Subject
		classrooms []domain.Classroom
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		years, err = f.Client.AcademicYears(gctx)
		return err
	})
	g.Go(func() (err error) {
		subjects, err = f.Client.Subjects(gctx)
		return err
	})
	g.Go(func() (err error) {
		classrooms, err = f.Client.Classrooms(gctx, s.ActiveSchool)
		return err
	})
	if err := g.Wait(); err != nil {
		return Content{}, err
	}
	return Content{Sections: []Section{
		{Title: "Academic years", Table: view.AcademicYears(years)},
		{Title: "Subjects", Table: view.Subjects(subjects)},
		{Title: "Classrooms", Table: view.Classrooms(classrooms)},
	}}, nil
}

func (f ClientFetcher) users(ctx context.Context) (Content, error) {
	var users, teachers []domain.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = f.Client.Users(gctx)
		return err
	})
	g.Go(func() (err error) {
		teachers, err = f.Client.Teachers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Content{}, err
	}
	return Content{Sections: []Section{
		{Title: "Users", Table: view.Users(users)},
		{Title: "Teachers", Table: view.Users(teachers)},
	}}, nil
}

func detailsTable(d ux.Details) ux.Table {
	t := ux.Table{Headers: []string{"METRIC", "VALUE"}, Empty: "No dashboard data."}
	for _, line := range d {
		t.Rows = append(t.Rows, []string{line.Label, line.Value})
	}
	return t
}
