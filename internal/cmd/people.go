package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
	"github.com/felixgeelhaar/schoolctl/internal/validate"
	"github.com/felixgeelhaar/schoolctl/internal/view"
)

var studentFields = []fieldFlag{
	{"first-name", "first_name"},
	{"last-name", "last_name"},
	{"email", "email"},
	{"dob", "date_of_birth"},
	{"student-id", "student_id"},
	{"entry-date", "entry_date"},
	{"grade", "entry_grade_level"},
	{"active", "is_active"},
}

func studentFlags(cmd *cobra.Command, s *domain.Student) {
	cmd.Flags().StringVar(&s.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&s.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&s.Email, "email", "", "email")
	cmd.Flags().StringVar(&s.DateOfBirth, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&s.StudentID, "student-id", "", "school-issued student number")
	cmd.Flags().StringVar(&s.EntryDate, "entry-date", "", "entry date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&s.EntryGradeLevel, "grade", "", "entry grade level: K, 1-8 or MULTI")
	cmd.Flags().BoolVar(&s.IsActive, "active", true, "currently enrolled")
}

func newStudentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage students",
		Long: `Manage student records and classroom enrollment.

Examples:
  schoolctl students list
  schoolctl students create --first-name Ada --last-name Lovelace --grade 3
  schoolctl students enroll 41 12`,
		RunE: helpRunE,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/students")
			if err != nil {
				return err
			}
			students, err := client.Students(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(students, view.Students(students))
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/students")
			if err != nil {
				return err
			}
			st, err := client.Student(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			return app.render(st, view.Student(*st))
		},
	}

	var st domain.Student
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Struct(st); err != nil {
				return err
			}
			client, _, err := app.adminClient(cmd.Context(), "/students")
			if err != nil {
				return err
			}
			created, err := client.CreateStudent(cmd.Context(), st)
			if err != nil {
				return err
			}
			return app.render(created, fmt.Sprintf("Created student %s %s (id %s)", created.FirstName, created.LastName, created.ID))
		},
	}
	studentFlags(create, &st)

	var upd domain.Student
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := changedFields(cmd, studentFields)
			if err != nil {
				return err
			}
			client, _, err := app.adminClient(cmd.Context(), "/students")
			if err != nil {
				return err
			}
			updated, err := client.UpdateStudent(cmd.Context(), domain.ID(args[0]), fields)
			if err != nil {
				return err
			}
			return app.render(updated, fmt.Sprintf("Updated student %s.", args[0]))
		},
	}
	studentFlags(update, &upd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/students")
			if err != nil {
				return err
			}
			if err := app.confirm(cmd, fmt.Sprintf("Delete student %s?", args[0])); err != nil {
				return err
			}
			if err := client.DeleteStudent(cmd.Context(), domain.ID(args[0])); err != nil {
				return err
			}
			app.println("Deleted student %s.", args[0])
			return nil
		},
	}
	addYesFlag(del)

	enroll := &cobra.Command{
		Use:   "enroll <student-id> <classroom-id>",
		Short: "Enroll a student in a classroom",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/students")
			if err != nil {
				return err
			}
			out, err := client.EnrollStudent(cmd.Context(), domain.ID(args[0]), domain.ID(args[1]))
			if err != nil {
				return err
			}
			return app.render(out, fmt.Sprintf("Enrolled student %s in classroom %s.", args[0], args[1]))
		},
	}

	cmd.AddCommand(list, show, create, update, del, enroll)
	return cmd
}

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
		Long: `Manage the accounts that can sign in.

Examples:
  schoolctl users list
  schoolctl users create --email t@example.com --first-name Tess --last-name Teach --role teacher`,
		RunE: helpRunE,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/admin/users")
			if err != nil {
				return err
			}
			users, err := client.Users(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(users, view.Users(users))
		},
	}

	var (
		u      domain.NewUser
		school string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Create a user account. Without --password the password is prompted for.

Roles: ` + strings.Join(validate.KnownRoles, ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, s, err := app.adminClient(ctx, "/admin/users")
			if err != nil {
				return err
			}
			u.SchoolID = s.ActiveSchool
			if school != "" {
				u.SchoolID = domain.ID(school)
			}
			if u.Password == "" {
				p := ux.NewPrompter(app.in, app.errOut)
				if u.Password, err = p.Password("Password for " + u.Email); err != nil {
					return err
				}
			}
			if err := validate.Struct(u); err != nil {
				return err
			}

			created, err := client.CreateUser(ctx, u)
			if err != nil {
				return err
			}
			return app.render(created, fmt.Sprintf("Created %s account %s (id %s)", orDash(created.Role), created.Email, created.ID))
		},
	}
	create.Flags().StringVar(&u.Email, "email", "", "sign-in email")
	create.Flags().StringVar(&u.Password, "password", "", "initial password (prompted when omitted)")
	create.Flags().StringVar(&u.FirstName, "first-name", "", "first name")
	create.Flags().StringVar(&u.LastName, "last-name", "", "last name")
	create.Flags().StringVar(&u.Role, "role", domain.RoleTeacher, "role to assign")
	create.Flags().StringVar(&school, "school", "", "school id (default: the active school)")

	cmd.AddCommand(list, create)
	return cmd
}

func newTeachersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "teachers",
		Short: "List teachers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/admin/teachers")
			if err != nil {
				return err
			}
			teachers, err := client.Teachers(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(teachers, view.Users(teachers))
		},
	}
}

func newSchoolsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schools",
		Short: "List schools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/admin")
			if err != nil {
				return err
			}
			schools, err := client.Schools(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(schools, view.Schools(schools))
		},
	}
}

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the overview of the active role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, s, err := app.adminClient(cmd.Context(), "/dashboard")
			if err != nil {
				return err
			}
			if s.ActiveRole == "" {
				return errors.New(errors.ErrCodeSessionBadContext, "no active role").
					WithSuggestion("Pick one with 'schoolctl context switch'")
			}
			o, err := client.Overview(cmd.Context(), domain.RoleFamily(s.ActiveRole))
			if err != nil {
				return err
			}
			return app.render(o, view.Overview(o))
		},
	}
}
