package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/validate"
	"github.com/felixgeelhaar/schoolctl/internal/view"
)

func newYearsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "years",
		Aliases: []string{"academic-years"},
		Short:   "Manage academic years",
		Long: `Manage academic years. Exactly one year is active; it scopes classrooms
and enrollment.

Examples:
  schoolctl years list
  schoolctl years create --name 2025-2026 --start 2025-08-15 --end 2026-06-10 --activate
  schoolctl years activate 3`,
		RunE: helpRunE,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List academic years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/academic-years")
			if err != nil {
				return err
			}
			years, err := client.AcademicYears(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(years, view.AcademicYears(years))
		},
	}

	var (
		y        domain.AcademicYear
		activate bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an academic year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Struct(y); err != nil {
				return err
			}
			ctx := cmd.Context()
			client, _, err := app.adminClient(ctx, "/academic-years")
			if err != nil {
				return err
			}
			created, err := client.CreateAcademicYear(ctx, y)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Created academic year %s (id %s)", created.Name, created.ID)
			if activate {
				if err := client.ActivateAcademicYear(ctx, created.ID); err != nil {
					return err
				}
				created.IsActive = true
				msg += " and made it active"
			}
			return app.render(created, msg)
		},
	}
	create.Flags().StringVar(&y.Name, "name", "", "year name, e.g. 2025-2026")
	create.Flags().StringVar(&y.StartDate, "start", "", "first day (YYYY-MM-DD)")
	create.Flags().StringVar(&y.EndDate, "end", "", "last day (YYYY-MM-DD)")
	create.Flags().BoolVar(&activate, "activate", false, "make the new year active")

	activateCmd := &cobra.Command{
		Use:   "activate <id>",
		Short: "Make an academic year the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/academic-years")
			if err != nil {
				return err
			}
			if err := client.ActivateAcademicYear(cmd.Context(), domain.ID(args[0])); err != nil {
				return err
			}
			app.println("Academic year %s is now active.", args[0])
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an academic year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/academic-years")
			if err != nil {
				return err
			}
			if err := app.confirm(cmd, fmt.Sprintf("Delete academic year %s?", args[0])); err != nil {
				return err
			}
			if err := client.DeleteAcademicYear(cmd.Context(), domain.ID(args[0])); err != nil {
				return err
			}
			app.println("Deleted academic year %s.", args[0])
			return nil
		},
	}
	addYesFlag(del)

	cmd.AddCommand(list, create, activateCmd, del)
	return cmd
}

var subjectFields = []fieldFlag{
	{"name", "name"},
	{"code", "code"},
	{"type", "subject_type"},
	{"elementary", "applies_to_elementary"},
	{"middle", "applies_to_middle"},
	{"homeroom", "is_homeroom_default"},
	{"specialist", "requires_specialist"},
}

func subjectFlags(cmd *cobra.Command, s *domain.Subject) {
	cmd.Flags().StringVar(&s.Name, "name", "", "subject name")
	cmd.Flags().StringVar(&s.Code, "code", "", "short alphanumeric code, e.g. MATH")
	cmd.Flags().StringVar(&s.SubjectType, "type", domain.SubjectCore, "CORE, ENRICHMENT or SPECIAL")
	cmd.Flags().BoolVar(&s.AppliesToElementary, "elementary", false, "offered in elementary grades")
	cmd.Flags().BoolVar(&s.AppliesToMiddle, "middle", false, "offered in middle grades")
	cmd.Flags().BoolVar(&s.IsHomeroomDefault, "homeroom", false, "taught by the homeroom teacher by default")
	cmd.Flags().BoolVar(&s.RequiresSpecialist, "specialist", false, "requires a specialist teacher")
}

func newSubjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "Manage subjects",
		Long: `Manage the subjects offered by the school.

Examples:
  schoolctl subjects list --core
  schoolctl subjects create --name Mathematics --code MATH --type CORE --elementary
  schoolctl subjects update 4 --middle=false`,
		RunE: helpRunE,
	}

	var core bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, _, err := app.adminClient(ctx, "/subjects")
			if err != nil {
				return err
			}
			var subjects []domain.Subject
			if core {
				subjects, err = client.CoreSubjects(ctx)
			} else {
				subjects, err = client.Subjects(ctx)
			}
			if err != nil {
				return err
			}
			return app.render(subjects, view.Subjects(subjects))
		},
	}
	list.Flags().BoolVar(&core, "core", false, "only core subjects")

	var s domain.Subject
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Struct(s); err != nil {
				return err
			}
			client, _, err := app.adminClient(cmd.Context(), "/subjects")
			if err != nil {
				return err
			}
			created, err := client.CreateSubject(cmd.Context(), s)
			if err != nil {
				return err
			}
			return app.render(created, fmt.Sprintf("Created subject %s %s (id %s)", created.Code, created.Name, created.ID))
		},
	}
	subjectFlags(create, &s)

	var upd domain.Subject
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := changedFields(cmd, subjectFields)
			if err != nil {
				return err
			}
			client, _, err := app.adminClient(cmd.Context(), "/subjects")
			if err != nil {
				return err
			}
			updated, err := client.UpdateSubject(cmd.Context(), domain.ID(args[0]), fields)
			if err != nil {
				return err
			}
			return app.render(updated, fmt.Sprintf("Updated subject %s.", args[0]))
		},
	}
	subjectFlags(update, &upd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/subjects")
			if err != nil {
				return err
			}
			if err := app.confirm(cmd, fmt.Sprintf("Delete subject %s?", args[0])); err != nil {
				return err
			}
			if err := client.DeleteSubject(cmd.Context(), domain.ID(args[0])); err != nil {
				return err
			}
			app.println("Deleted subject %s.", args[0])
			return nil
		},
	}
	addYesFlag(del)

	cmd.AddCommand(list, create, update, del)
	return cmd
}

var classroomFields = []fieldFlag{
	{"name", "name"},
	{"grade", "grade_level"},
	{"type", "classroom_type"},
	{"max-students", "max_students"},
	{"subject", "subject_id"},
	{"year", "academic_year_id"},
}

type classroomInput struct {
	name, grade, kind, subject, year string
	maxStudents                      int
}

func classroomFlags(cmd *cobra.Command, in *classroomInput) {
	cmd.Flags().StringVar(&in.name, "name", "", "classroom name, e.g. \"Grade 3 Math\"")
	cmd.Flags().StringVar(&in.grade, "grade", "", "grade level: K, 1-8 or MULTI")
	cmd.Flags().StringVar(&in.kind, "type", domain.SubjectCore, "CORE, ENRICHMENT or SPECIAL")
	cmd.Flags().IntVar(&in.maxStudents, "max-students", 0, "enrollment cap (0 for none)")
	cmd.Flags().StringVar(&in.subject, "subject", "", "subject id")
	cmd.Flags().StringVar(&in.year, "year", "", "academic year id (default: the active year)")
}

func newClassroomsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classrooms",
		Short: "Manage classrooms",
		Long: `Manage classrooms: one subject taught to a grade in an academic year.

Examples:
  schoolctl classrooms list
  schoolctl classrooms show 12
  schoolctl classrooms create --name "Grade 3 Math" --grade 3 --subject 4`,
		RunE: helpRunE,
	}

	var school string
	list := &cobra.Command{
		Use:   "list",
		Short: "List classrooms of a school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, s, err := app.adminClient(cmd.Context(), "/classrooms")
			if err != nil {
				return err
			}
			schoolID := s.ActiveSchool
			if school != "" {
				schoolID = domain.ID(school)
			}
			classrooms, err := client.Classrooms(cmd.Context(), schoolID)
			if err != nil {
				return err
			}
			return app.render(classrooms, view.Classrooms(classrooms))
		},
	}
	list.Flags().StringVar(&school, "school", "", "school id (default: the active school)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a classroom with its teachers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/classrooms")
			if err != nil {
				return err
			}
			c, err := client.Classroom(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			return app.render(c, view.Classroom(*c))
		},
	}

	var in classroomInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a classroom",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, s, err := app.adminClient(ctx, "/classrooms")
			if err != nil {
				return err
			}

			c := domain.Classroom{
				Name:           in.name,
				GradeLevel:     in.grade,
				ClassroomType:  in.kind,
				SubjectID:      domain.ID(in.subject),
				AcademicYearID: domain.ID(in.year),
			}
			if in.maxStudents != 0 {
				c.MaxStudents = &in.maxStudents
			}
			if c.AcademicYearID.IsZero() {
				if s.ActiveAcademicYear == nil {
					return errors.New(errors.ErrCodeSessionNoActiveYear, "no active academic year").
						WithSuggestion("Pass --year or activate one with 'schoolctl years activate <id>'")
				}
				c.AcademicYearID = s.ActiveAcademicYear.ID
			}
			if err := validate.Struct(c); err != nil {
				return err
			}

			created, err := client.CreateClassroom(ctx, c)
			if err != nil {
				return err
			}
			return app.render(created, fmt.Sprintf("Created classroom %s (id %s)", created.Name, created.ID))
		},
	}
	classroomFlags(create, &in)

	var upd classroomInput
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a classroom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := changedFields(cmd, classroomFields)
			if err != nil {
				return err
			}
			client, _, err := app.adminClient(cmd.Context(), "/classrooms")
			if err != nil {
				return err
			}
			updated, err := client.UpdateClassroom(cmd.Context(), domain.ID(args[0]), fields)
			if err != nil {
				return err
			}
			return app.render(updated, fmt.Sprintf("Updated classroom %s.", args[0]))
		},
	}
	classroomFlags(update, &upd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a classroom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/classrooms")
			if err != nil {
				return err
			}
			if err := app.confirm(cmd, fmt.Sprintf("Delete classroom %s?", args[0])); err != nil {
				return err
			}
			if err := client.DeleteClassroom(cmd.Context(), domain.ID(args[0])); err != nil {
				return err
			}
			app.println("Deleted classroom %s.", args[0])
			return nil
		},
	}
	addYesFlag(del)

	cmd.AddCommand(list, show, create, update, del)
	return cmd
}
