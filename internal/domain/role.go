package domain

import (
	"fmt"
	"strings"
)

// Role names issued by the API. Admin roles share the "admin_" family prefix.
const (
	RoleAdminPrincipal = "admin_principal"
	RoleAdminVP        = "admin_vp"
	RoleAdminDean      = "admin_dean"
	RoleAdminStaff     = "admin_staff"
	RoleTeacher        = "teacher"
	RoleParent         = "parent"
	RoleStudent        = "student"
)

// RoleAssignment is a (role, school) pair an identity is entitled to act as.
type RoleAssignment struct {
	Role     string `json:"role" yaml:"role"`
	SchoolID ID     `json:"school_id" yaml:"school_id"`
}

// Key returns the "role|school" form used to compare assignments
func (r RoleAssignment) Key() string {
	return r.Role + "|" + r.SchoolID.String()
}

// String renders the assignment as "role@school"
func (r RoleAssignment) String() string {
	return r.Role + "@" + r.SchoolID.String()
}

// Matches reports whether the assignment satisfies a required role tag.
// Matching is a case-insensitive substring test, so "admin" matches the
// whole admin_* family. An empty requirement matches everything.
func (r RoleAssignment) Matches(required string) bool {
	return RoleMatches(r.Role, required)
}

// RoleMatches applies the role matching policy to a bare role name
func RoleMatches(role, required string) bool {
	if required == "" {
		return true
	}
	return strings.Contains(strings.ToLower(role), strings.ToLower(required))
}

// RoleFamily returns the dashboard family of a role: "admin" for every
// admin_* role, the role itself otherwise.
func RoleFamily(role string) string {
	if strings.HasPrefix(role, "admin") {
		return "admin"
	}
	return role
}

// ParseRoleAssignment parses "role@school" or "role|school".
func ParseRoleAssignment(s string) (RoleAssignment, error) {
	sep := "@"
	if !strings.Contains(s, sep) {
		sep = "|"
	}
	role, school, ok := strings.Cut(s, sep)
	role = strings.TrimSpace(role)
	school = strings.TrimSpace(school)
	if !ok || role == "" || school == "" {
		return RoleAssignment{}, fmt.Errorf("role assignment %q must look like <role>@<school_id>", s)
	}
	return RoleAssignment{Role: role, SchoolID: ID(school)}, nil
}
