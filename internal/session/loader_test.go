package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/credential"
	ce "github.com/felixgeelhaar/schoolctl/internal/errors"
)

type loadRecorder struct {
	outcomes []Outcome
}

func (r *loadRecorder) ObserveLoad(o Outcome, _ time.Duration) {
	r.outcomes = append(r.outcomes, o)
}

func TestLoad_NoCredentialMakesNoRequest(t *testing.T) {
	store := credential.NewMemoryStore()
	backend := newFakeBackend(store)
	rec := &loadRecorder{}

	s, err := NewLoader(backend, store, WithObserver(rec)).Load(context.Background())
	require.NoError(t, err)

	assert.False(t, s.Authenticated())
	assert.False(t, s.Loading)
	assert.Empty(t, s.Roles)
	assert.Equal(t, int32(0), backend.contextCalls.Load())
	assert.Equal(t, int32(0), backend.yearCalls.Load())
	assert.Equal(t, []Outcome{OutcomeAnonymous}, rec.outcomes)
}

func TestLoad_UnreadableStoreIsAnonymous(t *testing.T) {
	store := failingStore{err: errors.New("disk on fire")}
	backend := newFakeBackend(credential.NewMemoryStore())

	s, err := NewLoader(backend, store).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.Equal(t, int32(0), backend.contextCalls.Load())
}

func TestLoad_AssemblesSession(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "tok123"))
	backend := newFakeBackend(store)
	backend.ctx = principalContext()
	backend.year = activeYear()

	s, err := NewLoader(backend, store).Load(ctx)
	require.NoError(t, err)

	require.True(t, s.Authenticated())
	assert.Equal(t, "admin@example.com", s.Identity.Email)
	assert.Equal(t, "admin_principal", s.ActiveRole)
	assert.Equal(t, "1", s.ActiveSchool.String())
	assert.Len(t, s.Roles, 2)
	assert.Len(t, s.Schools, 2)
	require.NotNil(t, s.ActiveAcademicYear)
	assert.Equal(t, "2025-2026", s.ActiveAcademicYear.Name)
	assert.False(t, s.Loading)
	assert.Equal(t, int32(1), backend.contextCalls.Load())
	assert.Equal(t, int32(1), backend.yearCalls.Load())
}

func TestLoad_ActiveYearIsOptional(t *testing.T) {
	tests := []struct {
		name    string
		year    bool
		yearErr error
	}{
		{name: "year present", year: true},
		{name: "year request fails", yearErr: errServer},
		{name: "no active year", yearErr: errors.New("404 Not Found")},
		{name: "null year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := credential.NewMemoryStore()
			require.NoError(t, store.Set(ctx, "tok123"))
			backend := newFakeBackend(store)
			backend.ctx = principalContext()
			backend.yearErr = tt.yearErr
			if tt.year {
				backend.year = activeYear()
			}

			s, err := NewLoader(backend, store).Load(ctx)
			require.NoError(t, err)

			// Active selection follows /auth/context whatever happened to the year.
			assert.Equal(t, "admin_principal", s.ActiveRole)
			assert.Equal(t, "1", s.ActiveSchool.String())
			assert.Equal(t, tt.year, s.ActiveAcademicYear != nil)

			_, err = store.Get(ctx)
			assert.NoError(t, err, "credential must survive an optional failure")
		})
	}
}

func TestLoad_ContextFailureClearsCredential(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "expired"))
	backend := newFakeBackend(store)
	backend.ctxErr = errors.New("401 Unauthorized")
	backend.year = activeYear()
	rec := &loadRecorder{}

	s, err := NewLoader(backend, store, WithObserver(rec)).Load(ctx)

	require.Error(t, err)
	assert.Equal(t, ce.ErrCodeAuthCredentialLost, ce.CodeOf(err))
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.ActiveAcademicYear)
	assert.Empty(t, s.ActiveRole)
	assert.False(t, s.Loading)

	_, err = store.Get(ctx)
	assert.ErrorIs(t, err, credential.ErrNotFound)
	assert.Equal(t, []Outcome{OutcomeCredentialLost}, rec.outcomes)
}

func TestLoad_ContextWithoutIdentityClearsCredential(t *testing.T) {
	ctx := context.Background()
	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "tok"))
	backend := newFakeBackend(store)
	backend.ctx = principalContext()
	backend.ctx.User = nil
	gate := make(chan *api.AuthContext, 1)
	gate <- backend.ctx
	backend.gates = []chan *api.AuthContext{gate}

	s, err := NewLoader(backend, store).Load(ctx)
	require.Error(t, err)
	assert.False(t, s.Authenticated())

	has, _ := credential.Has(ctx, store)
	assert.False(t, has)
}

func TestLoad_CancelledCallerKeepsCredential(t *testing.T) {
	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "tok"))
	backend := newFakeBackend(store)
	backend.gates = []chan *api.AuthContext{make(chan *api.AuthContext)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(backend, store).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	has, _ := credential.Has(context.Background(), store)
	assert.True(t, has)
}
