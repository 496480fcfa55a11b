package domain

// User is an account known to the API. The session identity is a User.
type User struct {
	ID        ID     `json:"id" yaml:"id"`
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty" yaml:"is_active,omitempty"`
}

// FullName returns "First Last", falling back to the email
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// School is used for display lookups (school_id → name)
type School struct {
	ID      ID     `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	City    string `json:"city,omitempty" yaml:"city,omitempty"`
	State   string `json:"state,omitempty" yaml:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	TZ      string `json:"tz,omitempty" yaml:"tz,omitempty"`
}

// AcademicYear is the school-year record. Dates are ISO "YYYY-MM-DD".
type AcademicYear struct {
	ID        ID     `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string `json:"name" yaml:"name" validate:"required,notblank,max=100"`
	StartDate string `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" yaml:"end_date" validate:"required,datetime=2006-01-02"`
	IsActive  bool   `json:"is_active" yaml:"is_active"`
}

// Subject types
const (
	SubjectCore       = "CORE"
	SubjectEnrichment = "ENRICHMENT"
	SubjectSpecial    = "SPECIAL"
)

// Subject is a course offered by a school
type Subject struct {
	ID                  ID     `json:"id,omitempty" yaml:"id,omitempty"`
	Name                string `json:"name" yaml:"name" validate:"required,notblank,max=100"`
	Code                string `json:"code" yaml:"code" validate:"required,alphanum,max=20"`
	SubjectType         string `json:"subject_type" yaml:"subject_type" validate:"required,oneof=CORE ENRICHMENT SPECIAL"`
	AppliesToElementary bool   `json:"applies_to_elementary" yaml:"applies_to_elementary"`
	AppliesToMiddle     bool   `json:"applies_to_middle" yaml:"applies_to_middle"`
	IsHomeroomDefault   bool   `json:"is_homeroom_default" yaml:"is_homeroom_default"`
	RequiresSpecialist  bool   `json:"requires_specialist" yaml:"requires_specialist"`
}

// Room is a physical space at a school
type Room struct {
	ID            ID     `json:"id,omitempty" yaml:"id,omitempty"`
	SchoolID      ID     `json:"school_id" yaml:"school_id" validate:"required"`
	Name          string `json:"name" yaml:"name" validate:"required,notblank,max=100"`
	RoomCode      string `json:"room_code" yaml:"room_code" validate:"required,max=20"`
	RoomType      string `json:"room_type" yaml:"room_type" validate:"required,oneof=CLASSROOM OFFICE GYM LIBRARY LAB ART MUSIC COMPUTER OTHER"`
	Capacity      int    `json:"capacity" yaml:"capacity" validate:"gt=0,lte=1000"`
	HasProjector  bool   `json:"has_projector" yaml:"has_projector"`
	HasComputers  bool   `json:"has_computers" yaml:"has_computers"`
	HasSmartboard bool   `json:"has_smartboard" yaml:"has_smartboard"`
	HasSink       bool   `json:"has_sink" yaml:"has_sink"`
	IsBookable    bool   `json:"is_bookable" yaml:"is_bookable"`
}

// RoomTypes lists the accepted room types in display order
var RoomTypes = []string{"CLASSROOM", "OFFICE", "GYM", "LIBRARY", "LAB", "ART", "MUSIC", "COMPUTER", "OTHER"}

// GradeLevels lists the accepted classroom grade levels in display order
var GradeLevels = []string{"K", "1", "2", "3", "4", "5", "6", "7", "8", "MULTI"}

// Classroom is a class section for one subject in one academic year
type Classroom struct {
	ID                 ID                  `json:"id,omitempty" yaml:"id,omitempty"`
	Name               string              `json:"name" yaml:"name" validate:"required,notblank,max=100"`
	GradeLevel         string              `json:"grade_level" yaml:"grade_level" validate:"required,oneof=K 1 2 3 4 5 6 7 8 MULTI"`
	ClassroomType      string              `json:"classroom_type" yaml:"classroom_type" validate:"required,oneof=CORE ENRICHMENT SPECIAL"`
	MaxStudents        *int                `json:"max_students,omitempty" yaml:"max_students,omitempty" validate:"omitempty,gt=0"`
	SubjectID          ID                  `json:"subject_id" yaml:"subject_id" validate:"required"`
	AcademicYearID     ID                  `json:"academic_year_id" yaml:"academic_year_id" validate:"required"`
	Subject            *Subject            `json:"subject,omitempty" yaml:"subject,omitempty" validate:"-"`
	AcademicYear       *AcademicYear       `json:"academic_year,omitempty" yaml:"academic_year,omitempty" validate:"-"`
	EnrollmentCount    int                 `json:"enrollment_count,omitempty" yaml:"enrollment_count,omitempty"`
	TeacherAssignments []TeacherAssignment `json:"teacher_assignments,omitempty" yaml:"teacher_assignments,omitempty" validate:"-"`
}

// TeacherAssignment links a teacher to a classroom with permissions
type TeacherAssignment struct {
	ID                   ID     `json:"id" yaml:"id"`
	TeacherUserID        ID     `json:"teacher_user_id" yaml:"teacher_user_id"`
	TeacherName          string `json:"teacher_name" yaml:"teacher_name"`
	RoleName             string `json:"role_name" yaml:"role_name"`
	CanViewGrades        bool   `json:"can_view_grades" yaml:"can_view_grades"`
	CanModifyGrades      bool   `json:"can_modify_grades" yaml:"can_modify_grades"`
	CanTakeAttendance    bool   `json:"can_take_attendance" yaml:"can_take_attendance"`
	CanViewParentContact bool   `json:"can_view_parent_contact" yaml:"can_view_parent_contact"`
	CanCreateAssignments bool   `json:"can_create_assignments" yaml:"can_create_assignments"`
	IsActive             bool   `json:"is_active" yaml:"is_active"`
}

// Student is an enrolled learner
type Student struct {
	ID              ID     `json:"id,omitempty" yaml:"id,omitempty"`
	FirstName       string `json:"first_name" yaml:"first_name" validate:"required,notblank,max=100"`
	LastName        string `json:"last_name" yaml:"last_name" validate:"required,notblank,max=100"`
	Email           string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
	DateOfBirth     string `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StudentID       string `json:"student_id,omitempty" yaml:"student_id,omitempty" validate:"omitempty,max=50"`
	EntryDate       string `json:"entry_date,omitempty" yaml:"entry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EntryGradeLevel string `json:"entry_grade_level,omitempty" yaml:"entry_grade_level,omitempty" validate:"omitempty,oneof=K 1 2 3 4 5 6 7 8 MULTI"`
	IsActive        bool   `json:"is_active" yaml:"is_active"`
	CurrentGrade    string `json:"current_grade,omitempty" yaml:"current_grade,omitempty"`
}

// NewUser is the payload for creating an account
type NewUser struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" validate:"required,notblank,max=100"`
	Role      string `json:"role" validate:"required,known_role"`
	SchoolID  ID     `json:"school_id,omitempty"`
}
