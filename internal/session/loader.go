package session

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/log"
)

// Backend is the slice of the API the session layer depends on.
// *api.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, username, password string) (*api.Token, error)
	Context(ctx context.Context) (*api.AuthContext, error)
	ActiveAcademicYear(ctx context.Context) (*domain.AcademicYear, error)
	SetPreference(ctx context.Context, role string, schoolID domain.ID) error
}

var _ Backend = (*api.Client)(nil)

// Outcome classifies a finished load
type Outcome string

const (
	OutcomeAnonymous      Outcome = "anonymous"
	OutcomeAuthenticated  Outcome = "authenticated"
	OutcomeCredentialLost Outcome = "credential_lost"
	// OutcomeStale marks a load whose result was discarded because a newer
	// load or a logout superseded it.
	OutcomeStale Outcome = "stale"
)

// Observer receives one call per finished load
type Observer interface {
	ObserveLoad(outcome Outcome, elapsed time.Duration)
}

// Loader assembles a Session from the credential store and the API
type Loader struct {
	backend  Backend
	store    credential.Store
	logger   *log.Logger
	observer Observer
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithLoaderLogger sets the loader's logger
func WithLoaderLogger(l *log.Logger) LoaderOption {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithObserver registers a load observer (metrics)
func WithObserver(o Observer) LoaderOption {
	return func(ld *Loader) {
		ld.observer = o
	}
}

// NewLoader creates a Loader
func NewLoader(backend Backend, store credential.Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		backend: backend,
		store:   store,
		logger:  log.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds a fresh Session.
//
// Without a stored credential it returns the empty Session and makes no
// request. Otherwise the authorization context and the active academic year
// are fetched concurrently and Load waits for both. The academic year is
// optional: any failure there yields a nil ActiveAcademicYear. The context is
// mandatory: if it fails the credential is cleared and the empty Session is
// returned together with an AUTH-003 error describing why. The returned
// Session is valid in every case.
func (l *Loader) Load(ctx context.Context) (Session, error) {
	start := time.Now()

	has, err := credential.Has(ctx, l.store)
	if err != nil {
		l.logger.WithError(err).Warn("credential store unreadable, treating as logged out")
	}
	if !has {
		l.observe(OutcomeAnonymous, start)
		return Empty(), nil
	}

	var (
		authCtx *api.AuthContext
		year    *domain.AcademicYear
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ac, err := l.backend.Context(gctx)
		if err != nil {
			return err
		}
		authCtx = ac
		return nil
	})
	g.Go(func() error {
		y, err := l.backend.ActiveAcademicYear(gctx)
		if err != nil {
			l.logger.DebugContext(ctx, "no active academic year", "error", err)
			return nil
		}
		year = y
		return nil
	})

	if err := g.Wait(); err != nil {
		// A caller that gave up says nothing about the credential.
		if ctx.Err() != nil {
			return Empty(), ctx.Err()
		}
		return l.invalidate(ctx, start, err)
	}
	if authCtx == nil || authCtx.User == nil {
		return l.invalidate(ctx, start, stderrors.New("authorization context has no identity"))
	}

	s := Session{
		Identity:           authCtx.User,
		Roles:              authCtx.Roles,
		Schools:            authCtx.Schools,
		ActiveRole:         authCtx.ActiveRole,
		ActiveSchool:       authCtx.ActiveSchool,
		ActiveAcademicYear: year,
	}
	if s.Roles == nil {
		s.Roles = []domain.RoleAssignment{}
	}
	if s.Schools == nil {
		s.Schools = []domain.School{}
	}

	l.observe(OutcomeAuthenticated, start)
	return s, nil
}

// invalidate applies logout semantics after the mandatory fetch failed
func (l *Loader) invalidate(ctx context.Context, start time.Time, cause error) (Session, error) {
	lost := errors.NewCredentialLostError(cause)
	l.logger.WithError(lost).WarnContext(ctx, "session load failed, clearing credential")

	if err := l.store.Clear(ctx); err != nil {
		l.logger.WithError(err).Warn("failed to clear credential")
	}

	l.observe(OutcomeCredentialLost, start)
	return Empty(), lost
}

func (l *Loader) observe(outcome Outcome, start time.Time) {
	if l.observer != nil {
		l.observer.ObserveLoad(outcome, time.Since(start))
	}
}
