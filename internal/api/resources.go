package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
)

// Fields is a partial update payload, keyed by JSON field name
type Fields map[string]any

func itemPath(collection string, id domain.ID) string {
	return collection + "/" + url.PathEscape(id.String())
}

func withSchool(path string, schoolID domain.ID) string {
	if schoolID.IsZero() {
		return path
	}
	return path + "?" + url.Values{"school_id": {schoolID.String()}}.Encode()
}

// ActiveAcademicYear returns the active academic year. A null body yields (nil, nil).
func (c *Client) ActiveAcademicYear(ctx context.Context) (*domain.AcademicYear, error) {
	var out *domain.AcademicYear
	if err := c.Get(ctx, "/academic-years/active", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AcademicYears lists academic years
func (c *Client) AcademicYears(ctx context.Context) ([]domain.AcademicYear, error) {
	var out []domain.AcademicYear
	if err := c.Get(ctx, "/academic-years", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAcademicYear creates an academic year
func (c *Client) CreateAcademicYear(ctx context.Context, y domain.AcademicYear) (*domain.AcademicYear, error) {
	var out domain.AcademicYear
	if err := c.Post(ctx, "/academic-years", y, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActivateAcademicYear makes a year the active one
func (c *Client) ActivateAcademicYear(ctx context.Context, id domain.ID) error {
	return c.Patch(ctx, itemPath("/academic-years", id)+"/activate", Fields{}, nil)
}

// DeleteAcademicYear deletes a year
func (c *Client) DeleteAcademicYear(ctx context.Context, id domain.ID) error {
	return c.Delete(ctx, itemPath("/academic-years", id), nil)
}

// Schools lists the schools visible to the identity
func (c *Client) Schools(ctx context.Context) ([]domain.School, error) {
	var out []domain.School
	if err := c.Get(ctx, "/schools", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Subjects lists subjects
func (c *Client) Subjects(ctx context.Context) ([]domain.Subject, error) {
	var out []domain.Subject
	if err := c.Get(ctx, "/subjects", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CoreSubjects lists the core subjects
func (c *Client) CoreSubjects(ctx context.Context) ([]domain.Subject, error) {
	var out []domain.Subject
	if err := c.Get(ctx, "/subjects/core", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSubject creates a subject
func (c *Client) CreateSubject(ctx context.Context, s domain.Subject) (*domain.Subject, error) {
	var out domain.Subject
	if err := c.Post(ctx, "/subjects", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubject patches a subject
func (c *Client) UpdateSubject(ctx context.Context, id domain.ID, f Fields) (*domain.Subject, error) {
	var out domain.Subject
	if err := c.Patch(ctx, itemPath("/subjects", id), f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSubject deletes a subject
func (c *Client) DeleteSubject(ctx context.Context, id domain.ID) error {
	return c.Delete(ctx, itemPath("/subjects", id), nil)
}

// Rooms lists rooms, optionally scoped to a school
func (c *Client) Rooms(ctx context.Context, schoolID domain.ID) ([]domain.Room, error) {
	var out []domain.Room
	if err := c.Get(ctx, withSchool("/rooms", schoolID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Room fetches one room
func (c *Client) Room(ctx context.Context, id domain.ID) (*domain.Room, error) {
	var out domain.Room
	if err := c.Get(ctx, itemPath("/rooms", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRoom creates a room
func (c *Client) CreateRoom(ctx context.Context, r domain.Room) (*domain.Room, error) {
	var out domain.Room
	if err := c.Post(ctx, "/rooms", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRoom patches a room
func (c *Client) UpdateRoom(ctx context.Context, id domain.ID, f Fields) (*domain.Room, error) {
	var out domain.Room
	if err := c.Patch(ctx, itemPath("/rooms", id), f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRoom deletes a room
func (c *Client) DeleteRoom(ctx context.Context, id domain.ID) error {
	return c.Delete(ctx, itemPath("/rooms", id), nil)
}

// Classrooms lists classrooms, optionally scoped to a school
func (c *Client) Classrooms(ctx context.Context, schoolID domain.ID) ([]domain.Classroom, error) {
	var out []domain.Classroom
	if err := c.Get(ctx, withSchool("/classrooms", schoolID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Classroom fetches one classroom with its teacher assignments
func (c *Client) Classroom(ctx context.Context, id domain.ID) (*domain.Classroom, error) {
	var out domain.Classroom
	if err := c.Get(ctx, itemPath("/classrooms", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateClassroom creates a classroom
func (c *Client) CreateClassroom(ctx context.Context, cl domain.Classroom) (*domain.Classroom, error) {
	var out domain.Classroom
	if err := c.Post(ctx, "/classrooms", cl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateClassroom patches a classroom
func (c *Client) UpdateClassroom(ctx context.Context, id domain.ID, f Fields) (*domain.Classroom, error) {
	var out domain.Classroom
	if err := c.Patch(ctx, itemPath("/classrooms", id), f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteClassroom deletes a classroom
func (c *Client) DeleteClassroom(ctx context.Context, id domain.ID) error {
	return c.Delete(ctx, itemPath("/classrooms", id), nil)
}

// Students lists students
func (c *Client) Students(ctx context.Context) ([]domain.Student, error) {
	var out []domain.Student
	if err := c.Get(ctx, "/students", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Student fetches one student
func (c *Client) Student(ctx context.Context, id domain.ID) (*domain.Student, error) {
	var out domain.Student
	if err := c.Get(ctx, itemPath("/students", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStudent creates a student
func (c *Client) CreateStudent(ctx context.Context, s domain.Student) (*domain.Student, error) {
	var out domain.Student
	if err := c.Post(ctx, "/students", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStudent patches a student
func (c *Client) UpdateStudent(ctx context.Context, id domain.ID, f Fields) (*domain.Student, error) {
	var out domain.Student
	if err := c.Patch(ctx, itemPath("/students", id), f, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteStudent deactivates a student
func (c *Client) DeleteStudent(ctx context.Context, id domain.ID) error {
	return c.Delete(ctx, itemPath("/students", id), nil)
}

// EnrollStudent enrolls a student in a classroom. The classroom travels as a
// query parameter.
func (c *Client) EnrollStudent(ctx context.Context, studentID, classroomID domain.ID) (map[string]any, error) {
	path := itemPath("/students", studentID) + "/enroll?" +
		url.Values{"classroom_id": {classroomID.String()}}.Encode()
	var out map[string]any
	if err := c.Post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Users lists user accounts
func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.Get(ctx, "/admin/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser creates a user account
func (c *Client) CreateUser(ctx context.Context, u domain.NewUser) (*domain.User, error) {
	var out domain.User
	if err := c.Post(ctx, "/admin/users", u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Teachers lists teacher accounts
func (c *Client) Teachers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.Get(ctx, "/admin/teachers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Overview fetches the dashboard overview for a role family, e.g. "admin".
// The payload shape belongs to the server and is returned undecoded.
func (c *Client) Overview(ctx context.Context, role string) (map[string]any, error) {
	if role == "" {
		return nil, fmt.Errorf("overview requires a role")
	}
	var out map[string]any
	if err := c.Get(ctx, "/dashboard/"+url.PathEscape(role)+"_overview", &out); err != nil {
		return nil, err
	}
	return out, nil
}
