// Package view turns API payloads into tables and detail lists shared by
// the list commands and the console.
package view

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/session"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Context renders who is signed in and as what
func Context(s session.Session) ux.Details {
	if !s.Authenticated() {
		return ux.Details{{Label: "Status", Value: "not logged in"}}
	}

	d := ux.Details{
		{Label: "User", Value: s.Identity.FullName()},
		{Label: "Email", Value: s.Identity.Email},
	}
	if active, ok := s.Active(); ok {
		d = append(d, ux.Detail{Label: "Active role", Value: RoleLabel(s, active)})
	} else {
		d = append(d, ux.Detail{Label: "Active role", Value: "-"})
	}
	year := "-"
	if s.ActiveAcademicYear != nil {
		year = s.ActiveAcademicYear.Name
	}
	d = append(d, ux.Detail{Label: "Academic year", Value: year})

	roles := make([]string, 0, len(s.Roles))
	for _, ra := range s.Roles {
		roles = append(roles, RoleLabel(s, ra))
	}
	d = append(d, ux.Detail{Label: "Roles", Value: orDash(strings.Join(roles, ", "))})
	return d
}

// RoleLabel formats an assignment as "role @ school name"
func RoleLabel(s session.Session, ra domain.RoleAssignment) string {
	return ra.Role + " @ " + s.SchoolName(ra.SchoolID)
}

// Schools renders schools
func Schools(schools []domain.School) ux.Table {
	t := ux.Table{Headers: []string{"ID", "NAME", "CITY", "STATE", "TZ"}, Empty: "No schools."}
	for _, s := range schools {
		t.Rows = append(t.Rows, []string{s.ID.String(), s.Name, orDash(s.City), orDash(s.State), orDash(s.TZ)})
	}
	return t
}

// AcademicYears renders academic years, marking the active one
func AcademicYears(years []domain.AcademicYear) ux.Table {
	t := ux.Table{Headers: []string{"ID", "NAME", "START", "END", "ACTIVE"}, Empty: "No academic years."}
	for _, y := range years {
		active := ""
		if y.IsActive {
			active = "*"
		}
		t.Rows = append(t.Rows, []string{y.ID.String(), y.Name, y.StartDate, y.EndDate, active})
	}
	return t
}

// Subjects renders subjects
func Subjects(subjects []domain.Subject) ux.Table {
	t := ux.Table{Headers: []string{"ID", "CODE", "NAME", "TYPE", "ELEMENTARY", "MIDDLE"}, Empty: "No subjects."}
	for _, s := range subjects {
		t.Rows = append(t.Rows, []string{
			s.ID.String(), s.Code, s.Name, s.SubjectType,
			yesNo(s.AppliesToElementary), yesNo(s.AppliesToMiddle),
		})
	}
	return t
}

// Rooms renders rooms
func Rooms(rooms []domain.Room) ux.Table {
	t := ux.Table{Headers: []string{"ID", "CODE", "NAME", "TYPE", "CAPACITY", "BOOKABLE"}, Empty: "No rooms."}
	for _, r := range rooms {
		t.Rows = append(t.Rows, []string{
			r.ID.String(), r.RoomCode, r.Name, r.RoomType,
			strconv.Itoa(r.Capacity), yesNo(r.IsBookable),
		})
	}
	return t
}

// Classrooms renders classrooms
func Classrooms(classrooms []domain.Classroom) ux.Table {
	t := ux.Table{Headers: []string{"ID", "NAME", "GRADE", "TYPE", "SUBJECT", "ENROLLED"}, Empty: "No classrooms."}
	for _, c := range classrooms {
		subject := c.SubjectID.String()
		if c.Subject != nil {
			subject = c.Subject.Name
		}
		enrolled := strconv.Itoa(c.EnrollmentCount)
		if c.MaxStudents != nil {
			enrolled += "/" + strconv.Itoa(*c.MaxStudents)
		}
		t.Rows = append(t.Rows, []string{c.ID.String(), c.Name, c.GradeLevel, c.ClassroomType, subject, enrolled})
	}
	return t
}

// Classroom renders one classroom with its teachers
func Classroom(c domain.Classroom) ux.Details {
	d := ux.Details{
		{Label: "ID", Value: c.ID.String()},
		{Label: "Name", Value: c.Name},
		{Label: "Grade", Value: c.GradeLevel},
		{Label: "Type", Value: c.ClassroomType},
	}
	if c.Subject != nil {
		d = append(d, ux.Detail{Label: "Subject", Value: c.Subject.Name})
	}
	if c.AcademicYear != nil {
		d = append(d, ux.Detail{Label: "Academic year", Value: c.AcademicYear.Name})
	}
	teachers := make([]string, 0, len(c.TeacherAssignments))
	for _, ta := range c.TeacherAssignments {
		teachers = append(teachers, fmt.Sprintf("%s (%s)", ta.TeacherName, ta.RoleName))
	}
	d = append(d, ux.Detail{Label: "Teachers", Value: orDash(strings.Join(teachers, ", "))})
	d = append(d, ux.Detail{Label: "Enrolled", Value: strconv.Itoa(c.EnrollmentCount)})
	return d
}

// Students renders students
func Students(students []domain.Student) ux.Table {
	t := ux.Table{Headers: []string{"ID", "STUDENT ID", "NAME", "GRADE", "ACTIVE"}, Empty: "No students."}
	for _, s := range students {
		t.Rows = append(t.Rows, []string{
			s.ID.String(), orDash(s.StudentID), s.FirstName + " " + s.LastName,
			orDash(s.CurrentGrade), yesNo(s.IsActive),
		})
	}
	return t
}

// Student renders one student
func Student(s domain.Student) ux.Details {
	return ux.Details{
		{Label: "ID", Value: s.ID.String()},
		{Label: "Student ID", Value: orDash(s.StudentID)},
		{Label: "Name", Value: s.FirstName + " " + s.LastName},
		{Label: "Email", Value: orDash(s.Email)},
		{Label: "Date of birth", Value: orDash(s.DateOfBirth)},
		{Label: "Grade", Value: orDash(s.CurrentGrade)},
		{Label: "Active", Value: yesNo(s.IsActive)},
	}
}

// Users renders accounts
func Users(users []domain.User) ux.Table {
	t := ux.Table{Headers: []string{"ID", "NAME", "EMAIL", "ROLE", "ACTIVE"}, Empty: "No users."}
	for _, u := range users {
		active := "-"
		if u.IsActive != nil {
			active = yesNo(*u.IsActive)
		}
		t.Rows = append(t.Rows, []string{u.ID.String(), u.FullName(), u.Email, orDash(u.Role), active})
	}
	return t
}

// Overview renders a dashboard payload. Nested values are summarized by size.
func Overview(o map[string]any) ux.Details {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := make(ux.Details, 0, len(keys))
	for _, k := range keys {
		d = append(d, ux.Detail{Label: humanize(k), Value: summarize(o[k])})
	}
	return d
}

func humanize(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func summarize(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case []any:
		return fmt.Sprintf("%d items", len(x))
	case map[string]any:
		return fmt.Sprintf("%d fields", len(x))
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
