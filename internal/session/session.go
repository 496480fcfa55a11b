// Package session owns the authenticated identity and its authorization
// context: which role assignments the identity holds, which schools it can see,
// and which (role, school) pair is currently active.
//
// A Session value is immutable once published. Only Manager publishes, and it
// always replaces the Session wholesale with the result of a full load; active
// role or school changes go through the server first and are then reloaded.
package session

import (
	"encoding/json"
	"slices"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
)

// DefaultSchoolName is shown when a school id has no matching school record
const DefaultSchoolName = "School"

// Session is the assembled authorization context of the current user
type Session struct {
	Identity           *domain.User            `json:"identity" yaml:"identity"`
	Roles              []domain.RoleAssignment `json:"roles" yaml:"roles"`
	Schools            []domain.School         `json:"schools" yaml:"schools"`
	ActiveRole         string                  `json:"active_role" yaml:"active_role"`
	ActiveSchool       domain.ID               `json:"active_school" yaml:"active_school"`
	ActiveAcademicYear *domain.AcademicYear    `json:"active_academic_year" yaml:"active_academic_year"`
	Loading            bool                    `json:"loading" yaml:"loading"`
}

// encoded is the wire form of a Session; an unselected role or school is null
type encoded struct {
	Identity           *domain.User            `json:"identity" yaml:"identity"`
	Roles              []domain.RoleAssignment `json:"roles" yaml:"roles"`
	Schools            []domain.School         `json:"schools" yaml:"schools"`
	ActiveRole         *string                 `json:"active_role" yaml:"active_role"`
	ActiveSchool       *domain.ID              `json:"active_school" yaml:"active_school"`
	ActiveAcademicYear *domain.AcademicYear    `json:"active_academic_year" yaml:"active_academic_year"`
	Loading            bool                    `json:"loading" yaml:"loading"`
}

func (s Session) encode() encoded {
	e := encoded{
		Identity:           s.Identity,
		Roles:              s.Roles,
		Schools:            s.Schools,
		ActiveAcademicYear: s.ActiveAcademicYear,
		Loading:            s.Loading,
	}
	if e.Roles == nil {
		e.Roles = []domain.RoleAssignment{}
	}
	if e.Schools == nil {
		e.Schools = []domain.School{}
	}
	if s.ActiveRole != "" {
		role := s.ActiveRole
		e.ActiveRole = &role
	}
	if !s.ActiveSchool.IsZero() {
		school := s.ActiveSchool
		e.ActiveSchool = &school
	}
	return e
}

// MarshalJSON writes unset collections as [] and an unselected role or school as null
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.encode())
}

// MarshalYAML mirrors MarshalJSON
func (s Session) MarshalYAML() (any, error) {
	return s.encode(), nil
}

// Authenticated reports whether an identity is present
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

// HasRole reports whether any role assignment matches required
func (s Session) HasRole(required string) bool {
	for _, r := range s.Roles {
		if r.Matches(required) {
			return true
		}
	}
	return false
}

// Active returns the active (role, school) pair, if one is selected
func (s Session) Active() (domain.RoleAssignment, bool) {
	if s.ActiveRole == "" {
		return domain.RoleAssignment{}, false
	}
	return domain.RoleAssignment{Role: s.ActiveRole, SchoolID: s.ActiveSchool}, true
}

// Entitled reports whether the pair is one of the identity's role assignments
func (s Session) Entitled(ra domain.RoleAssignment) bool {
	return slices.ContainsFunc(s.Roles, func(r domain.RoleAssignment) bool {
		return r.Key() == ra.Key()
	})
}

// SchoolName joins a school id to its display name
func (s Session) SchoolName(id domain.ID) string {
	for _, sc := range s.Schools {
		if sc.ID == id && sc.Name != "" {
			return sc.Name
		}
	}
	return DefaultSchoolName
}

// Clone returns a deep copy so callers can never alias published state
func (s Session) Clone() Session {
	out := s
	if s.Identity != nil {
		u := *s.Identity
		if s.Identity.IsActive != nil {
			active := *s.Identity.IsActive
			u.IsActive = &active
		}
		out.Identity = &u
	}
	if s.ActiveAcademicYear != nil {
		y := *s.ActiveAcademicYear
		out.ActiveAcademicYear = &y
	}
	out.Roles = slices.Clone(s.Roles)
	out.Schools = slices.Clone(s.Schools)
	return out
}

// Empty is the unauthenticated Session
func Empty() Session {
	return Session{Roles: []domain.RoleAssignment{}, Schools: []domain.School{}}
}
