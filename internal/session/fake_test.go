package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/domain"
)

// fakeBackend is an in-memory stand-in for the school API.
type fakeBackend struct {
	mu sync.Mutex

	store credential.Store

	// loginToken is stored on Login; loginErr rejects it
	loginToken string
	loginErr   error
	// loginGate, when set, holds Login until it is closed
	loginGate  chan struct{}
	loginCalls atomic.Int32

	ctx       *api.AuthContext
	ctxErr    error
	year      *domain.AcademicYear
	yearErr   error
	prefErr   error
	prefCalls []api.Preference

	// gates[n] blocks the (n+1)th Context call until it receives the
	// response to return. Later calls answer from f.ctx.
	gates []chan *api.AuthContext

	contextCalls atomic.Int32
	yearCalls    atomic.Int32
}

func newFakeBackend(store credential.Store) *fakeBackend {
	return &fakeBackend{store: store}
}

func (f *fakeBackend) Login(ctx context.Context, username, password string) (*api.Token, error) {
	f.loginCalls.Add(1)
	if f.loginGate != nil {
		<-f.loginGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if err := f.store.Set(ctx, f.loginToken); err != nil {
		return nil, err
	}
	return &api.Token{AccessToken: f.loginToken, TokenType: "bearer"}, nil
}

func (f *fakeBackend) Context(ctx context.Context) (*api.AuthContext, error) {
	n := int(f.contextCalls.Add(1))
	if n <= len(f.gates) {
		select {
		case ac := <-f.gates[n-1]:
			return ac, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctxErr != nil {
		return nil, f.ctxErr
	}
	cp := *f.ctx
	u := *f.ctx.User
	cp.User = &u
	cp.Roles = append([]domain.RoleAssignment(nil), f.ctx.Roles...)
	cp.Schools = append([]domain.School(nil), f.ctx.Schools...)
	return &cp, nil
}

func (f *fakeBackend) ActiveAcademicYear(ctx context.Context) (*domain.AcademicYear, error) {
	f.yearCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.yearErr != nil {
		return nil, f.yearErr
	}
	if f.year == nil {
		return nil, nil
	}
	y := *f.year
	return &y, nil
}

func (f *fakeBackend) SetPreference(ctx context.Context, role string, schoolID domain.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefCalls = append(f.prefCalls, api.Preference{Role: role, SchoolID: schoolID})
	if f.prefErr != nil {
		return f.prefErr
	}
	// The server accepts the pair and makes it active.
	f.ctx.ActiveRole = role
	f.ctx.ActiveSchool = schoolID
	return nil
}

func (f *fakeBackend) setContextErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErr = err
}

func principalContext() *api.AuthContext {
	return &api.AuthContext{
		User: &domain.User{ID: "u-1", Email: "admin@example.com", FirstName: "Ada", LastName: "Admin"},
		Roles: []domain.RoleAssignment{
			{Role: domain.RoleAdminPrincipal, SchoolID: "1"},
			{Role: domain.RoleTeacher, SchoolID: "5"},
		},
		Schools: []domain.School{
			{ID: "1", Name: "North High"},
			{ID: "5", Name: "South Elementary"},
		},
		ActiveRole:   domain.RoleAdminPrincipal,
		ActiveSchool: "1",
	}
}

func activeYear() *domain.AcademicYear {
	return &domain.AcademicYear{ID: "y-1", Name: "2025-2026", StartDate: "2025-08-15", EndDate: "2026-06-10", IsActive: true}
}

var errServer = errors.New("500 Internal Server Error")

// failingStore returns err from every method
type failingStore struct{ err error }

func (s failingStore) Get(context.Context) (string, error) { return "", s.err }
func (s failingStore) Set(context.Context, string) error   { return s.err }
func (s failingStore) Clear(context.Context) error         { return s.err }
