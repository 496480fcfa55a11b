package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *credential.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := credential.NewMemoryStore()
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	return NewClient(srv.URL+"/", store, opts...), store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_StoresCredential(t *testing.T) {
	var gotContentType, gotAuth, gotUser, gotPass string
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotUser = r.PostForm.Get("username")
		gotPass = r.PostForm.Get("password")
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok123", "token_type": "bearer"})
	})
	require.NoError(t, store.Set(context.Background(), "stale"))

	tok, err := client.Login(context.Background(), "admin@example.com", "ChangeMe123!")
	require.NoError(t, err)

	assert.Equal(t, "tok123", tok.AccessToken)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Empty(t, gotAuth, "login must not send a bearer credential")
	assert.Equal(t, "admin@example.com", gotUser)
	assert.Equal(t, "ChangeMe123!", gotPass)

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok123", stored)
}

func TestLogin_TokenFieldFallback(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "alt"})
	})

	_, err := client.Login(context.Background(), "u", "p")
	require.NoError(t, err)

	stored, _ := store.Get(context.Background())
	assert.Equal(t, "alt", stored)
}

func TestLogin_Rejected(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Incorrect email or password"})
	})

	_, err := client.Login(context.Background(), "u", "bad")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Incorrect email or password", apiErr.Detail)

	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestLogin_MissingToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token_type": "bearer"})
	})

	_, err := client.Login(context.Background(), "u", "p")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRequests_AttachBearerWhenPresent(t *testing.T) {
	var mu sync.Mutex
	var auths []string
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	ctx := context.Background()

	require.NoError(t, client.Get(ctx, "/schools", nil))

	require.NoError(t, store.Set(ctx, "tok123"))
	require.NoError(t, client.Get(ctx, "/schools", nil))
	require.NoError(t, client.Post(ctx, "/subjects", map[string]string{"name": "Math"}, nil))
	require.NoError(t, client.Patch(ctx, "/rooms/1", map[string]int{"capacity": 20}, nil))
	require.NoError(t, client.Delete(ctx, "/rooms/1", nil))

	assert.Equal(t, []string{"", "Bearer tok123", "Bearer tok123", "Bearer tok123", "Bearer tok123"}, auths)
}

func TestRequests_JSONBodyAndHeaders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))
		assert.Equal(t, "schoolctl/1.2.0", r.Header.Get("User-Agent"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "teacher", body["role"])
		assert.Equal(t, "5", body["school_id"])
		w.WriteHeader(http.StatusOK)
	}, WithRequestIDFunc(func() string { return "req-1" }), WithUserAgent("schoolctl/1.2.0"))

	require.NoError(t, client.SetPreference(context.Background(), "teacher", "5"))
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantJSON   bool
	}{
		{"detail string", 404, `{"detail":"Room not found"}`, "Room not found", true},
		{"validation list", 422, `{"detail":[{"loc":["body","capacity"],"msg":"must be positive"},{"loc":["query","school_id"],"msg":"field required"}]}`,
			"capacity: must be positive; query.school_id: field required", true},
		{"error field", 500, `{"error":"database unavailable"}`, "database unavailable", true},
		{"message field", 409, `{"message":"duplicate"}`, "duplicate", true},
		{"no payload", 503, ``, "Service Unavailable", false},
		{"html payload", 502, `<html>bad gateway</html>`, "Bad Gateway", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.Get(context.Background(), "/rooms/9", nil)
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, tt.wantJSON, apiErr.Payload != nil)
			assert.Equal(t, http.MethodGet, apiErr.Method)
			assert.Equal(t, "/rooms/9", apiErr.Path)
		})
	}
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, IsUnauthorized(&Error{StatusCode: 401}))
	assert.True(t, IsUnauthorized(&Error{StatusCode: 403}))
	assert.False(t, IsUnauthorized(&Error{StatusCode: 404}))
	assert.True(t, IsNotFound(&Error{StatusCode: 404}))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	client := NewClient(url, credential.NewMemoryStore(), WithObserver(obs), WithTimeout(time.Second))

	err := client.Get(context.Background(), "/auth/context", nil)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsTransport())
	assert.NotNil(t, apiErr.Unwrap())
	assert.Equal(t, []int{0}, obs.statuses())
}

func TestObserverAndEmptyBody(t *testing.T) {
	obs := &recordingObserver{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, WithObserver(obs))

	require.NoError(t, client.DeleteSubject(context.Background(), "abc"))
	assert.Equal(t, []int{http.StatusNoContent}, obs.statuses())
}

func TestActiveAcademicYear_Null(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	})

	y, err := client.ActiveAcademicYear(context.Background())
	require.NoError(t, err)
	assert.Nil(t, y)
}

func TestResourcePaths(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/dashboard/admin_overview" {
				writeJSON(w, http.StatusOK, map[string]any{"students": 3})
				return
			}
			_, _ = w.Write([]byte("[]"))
		default:
			writeJSON(w, http.StatusOK, map[string]any{})
		}
	})
	ctx := context.Background()

	_, err := client.Rooms(ctx, "s-1")
	require.NoError(t, err)
	_, err = client.Classrooms(ctx, "")
	require.NoError(t, err)
	require.NoError(t, client.ActivateAcademicYear(ctx, "y-1"))
	_, err = client.EnrollStudent(ctx, "st-1", "cl-2")
	require.NoError(t, err)
	overview, err := client.Overview(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, float64(3), overview["students"])
	_, err = client.UpdateRoom(ctx, "r 1", Fields{"capacity": 10})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET /rooms?school_id=s-1",
		"GET /classrooms",
		"PATCH /academic-years/y-1/activate",
		"POST /students/st-1/enroll?classroom_id=cl-2",
		"GET /dashboard/admin_overview",
		"PATCH /rooms/r%201",
	}, seen)
}

func TestContextDecoding(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"user": {"id": "u-1", "email": "admin@example.com", "first_name": "Ada", "last_name": "Admin"},
			"roles": [{"role": "admin_principal", "school_id": 1}],
			"schools": [{"id": 1, "name": "North High"}],
			"active_role": "admin_principal",
			"active_school": 1
		}`))
	})

	ac, err := client.Context(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ac.User)
	assert.Equal(t, "Ada Admin", ac.User.FullName())
	assert.Equal(t, []domain.RoleAssignment{{Role: "admin_principal", SchoolID: "1"}}, ac.Roles)
	assert.Equal(t, domain.ID("1"), ac.ActiveSchool)
	assert.Equal(t, "North High", ac.Schools[0].Name)
}

type recordingObserver struct {
	mu    sync.Mutex
	codes []int
}

func (o *recordingObserver) ObserveRequest(_, _ string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes = append(o.codes, status)
}

func (o *recordingObserver) statuses() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.codes...)
}
