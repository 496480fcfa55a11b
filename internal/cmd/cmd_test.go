package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
)

const (
	adminEmail    = "ada@example.com"
	adminPassword = "ChangeMe123!"
)

var (
	adminRole   = domain.RoleAssignment{Role: "admin_principal", SchoolID: "1"}
	teacherRole = domain.RoleAssignment{Role: "teacher", SchoolID: "5"}
)

// fakeAPI is an in-process school API with one account holding two roles
type fakeAPI struct {
	srv   *httptest.Server
	token string

	mu       sync.Mutex
	active   domain.RoleAssignment
	roles    []domain.RoleAssignment
	requests []string
	bodies   map[string]map[string]any
}

func testToken(t *testing.T) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  adminEmail,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
		"role": "admin_principal",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		token:  testToken(t),
		active: adminRole,
		roles:  []domain.RoleAssignment{adminRole, teacherRole},
		bodies: make(map[string]map[string]any),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
	var body map[string]any
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies[r.Method+" "+r.URL.Path] = body
	}
	f.mu.Unlock()

	if r.URL.Path == "/auth/login" {
		_ = r.ParseForm()
		if r.PostForm.Get("username") != adminEmail || r.PostForm.Get("password") != adminPassword {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Incorrect email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": f.token, "token_type": "bearer"})
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return
	}

	route := r.Method + " " + r.URL.Path
	switch {
	case route == "GET /auth/context":
		writeJSON(w, http.StatusOK, f.context())
	case route == "GET /auth/me":
		writeJSON(w, http.StatusOK, map[string]any{"user": f.user()})
	case route == "POST /auth/preference":
		want := domain.RoleAssignment{Role: body["role"].(string), SchoolID: domain.ID(body["school_id"].(string))}
		f.mu.Lock()
		held := false
		for _, ra := range f.roles {
			held = held || ra.Key() == want.Key()
		}
		if held {
			f.active = want
		}
		f.mu.Unlock()
		if !held {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Role not assigned at this school"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case route == "GET /academic-years/active":
		writeJSON(w, http.StatusOK, map[string]any{"id": 2025, "name": "2025-2026", "start_date": "2025-08-15", "end_date": "2026-06-10", "is_active": true})
	case route == "GET /academic-years":
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 2025, "name": "2025-2026", "start_date": "2025-08-15", "end_date": "2026-06-10", "is_active": true},
		})
	case route == "GET /rooms":
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 7, "school_id": 1, "name": "Science Lab", "room_code": "LAB1", "room_type": "LAB", "capacity": 24},
		})
	case r.Method == http.MethodPost && (r.URL.Path == "/rooms" || r.URL.Path == "/classrooms" || r.URL.Path == "/students" || r.URL.Path == "/admin/users"):
		body["id"] = 99
		writeJSON(w, http.StatusCreated, body)
	case route == "PATCH /rooms/7":
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "school_id": 1, "name": "Science Lab", "room_code": "LAB1", "room_type": "LAB", "capacity": 30})
	case route == "DELETE /rooms/7":
		w.WriteHeader(http.StatusNoContent)
	case route == "GET /dashboard/admin_overview" || route == "GET /dashboard/teacher_overview":
		writeJSON(w, http.StatusOK, map[string]any{"total_students": 412, "classrooms": []int{1, 2, 3}})
	case route == "POST /students/41/enroll":
		writeJSON(w, http.StatusOK, map[string]any{"student_id": 41, "classroom_id": r.URL.Query().Get("classroom_id")})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func (f *fakeAPI) user() map[string]any {
	return map[string]any{"id": 1, "email": adminEmail, "first_name": "Ada", "last_name": "Admin", "role": "admin_principal"}
}

func (f *fakeAPI) context() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]any{
		"user":          f.user(),
		"roles":         f.roles,
		"schools":       []map[string]any{{"id": 1, "name": "North High"}, {"id": 5, "name": "South Elementary"}},
		"active_role":   f.active.Role,
		"active_school": f.active.SchoolID,
	}
}

// teacherOnly leaves the account with the teacher assignment alone
func (f *fakeAPI) teacherOnly() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = []domain.RoleAssignment{teacherRole}
	f.active = teacherRole
}

// requested reports whether a request with this method and URI was received
func (f *fakeAPI) requested(methodAndURI string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == methodAndURI {
			return true
		}
	}
	return false
}

func (f *fakeAPI) body(methodAndPath string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[methodAndPath]
}

// harness runs the CLI against a fake API in an isolated home directory
type harness struct {
	t   *testing.T
	api *fakeAPI
}

type result struct {
	out    string
	errOut string
	err    error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("SCHOOLCTL_HOME", t.TempDir())
	t.Setenv("SCHOOLCTL_NO_PROMPT", "1")
	return &harness{t: t, api: newFakeAPI(t)}
}

func (h *harness) runWithInput(input string, args ...string) result {
	h.t.Helper()
	root, app := newRootCmd()
	app.prompt = func() bool { return false }

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(append([]string{"--api-url", h.api.srv.URL, "--no-color"}, args...))

	err := app.execute(context.Background(), root)
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func (h *harness) run(args ...string) result {
	h.t.Helper()
	return h.runWithInput("", args...)
}

func (h *harness) login() {
	h.t.Helper()
	r := h.run("auth", "login", "--email", adminEmail, "--password", adminPassword)
	require.NoError(h.t, r.err, r.errOut)
}
