package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/exitcode"
)

func TestContextShow(t *testing.T) {
	h := newHarness(t)
	h.login()

	r := h.run("context", "show")
	require.NoError(t, r.err, r.errOut)
	assert.Contains(t, r.out, "Active role")
	assert.Contains(t, r.out, "admin_principal @ North High")
	assert.Contains(t, r.out, "South Elementary")

	r = h.run("-o", "json", "context", "show")
	require.NoError(t, r.err, r.errOut)
	var got contextView
	require.NoError(t, json.Unmarshal([]byte(r.out), &got))
	require.Len(t, got.Assignments, 2)
	assert.True(t, got.Assignments[0].Active)
	assert.Equal(t, "North High", got.Assignments[0].SchoolName)
	assert.False(t, got.Assignments[1].Active)
}

func TestContextSwitch(t *testing.T) {
	h := newHarness(t)
	h.login()

	r := h.run("context", "switch", "teacher@5")
	require.NoError(t, r.err, r.errOut)
	assert.Contains(t, r.out, "Switched to teacher @ South Elementary")
	assert.Equal(t, map[string]any{"role": "teacher", "school_id": "5"}, h.api.body("POST /auth/preference"))

	r = h.run("-o", "json", "context", "show")
	require.NoError(t, r.err)
	var got contextView
	require.NoError(t, json.Unmarshal([]byte(r.out), &got))
	assert.Equal(t, "teacher", got.Session.ActiveRole)
}

func TestContextSwitchRejected(t *testing.T) {
	h := newHarness(t)
	h.login()

	r := h.run("context", "switch", "admin_principal@5")
	require.Error(t, r.err)
	assert.Equal(t, errors.ErrCodeSessionSwitchFailed, errors.CodeOf(r.err))
	assert.Contains(t, r.errOut, "Role not assigned at this school")

	r = h.run("-o", "json", "context", "show")
	require.NoError(t, r.err)
	var got contextView
	require.NoError(t, json.Unmarshal([]byte(r.out), &got))
	assert.Equal(t, "admin_principal", got.Session.ActiveRole, "the previous role stays active")
}

func TestContextSwitchArguments(t *testing.T) {
	h := newHarness(t)

	r := h.run("context", "switch", "teacher@5")
	assert.Equal(t, errors.ErrCodeAuthNotLoggedIn, errors.CodeOf(r.err))

	h.login()

	r = h.run("context", "switch", "teacher")
	assert.Equal(t, exitcode.ValidationError, exitcode.DetermineExitCode(r.err))

	r = h.run("context", "switch")
	assert.Equal(t, exitcode.ValidationError, exitcode.DetermineExitCode(r.err), "no prompt without a terminal")
	assert.False(t, h.api.requested("POST /auth/preference"))
}

func TestAccessCheck(t *testing.T) {
	h := newHarness(t)

	r := h.run("access", "check", "/admin")
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(r.err))
	assert.Contains(t, r.out, "/login")

	h.login()

	r = h.run("access", "check", "admin")
	require.NoError(t, r.err, r.errOut)
	assert.Contains(t, r.out, "allow")

	h.api.teacherOnly()

	r = h.run("access", "check", "/admin")
	assert.Equal(t, exitcode.AccessDenied, exitcode.DetermineExitCode(r.err))
	assert.Equal(t, errors.ErrCodeAuthForbidden, errors.CodeOf(r.err))
	assert.Contains(t, r.out, "redirect")

	r = h.run("access", "check", "/dashboard")
	assert.NoError(t, r.err, "the dashboard needs no particular role")

	r = h.run("access", "check", "/nowhere")
	assert.Equal(t, exitcode.ValidationError, exitcode.DetermineExitCode(r.err))
}
