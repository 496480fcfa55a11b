package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/session"
	"github.com/felixgeelhaar/schoolctl/internal/tui"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
	"github.com/felixgeelhaar/schoolctl/internal/view"
)

func newContextCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show or switch the active role and school",
		Long: `Every request is made on behalf of one role at one school. The server
remembers the selection; switching reloads the session.

Examples:
  schoolctl context show
  schoolctl context switch                  # pick from a list
  schoolctl context switch teacher@5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newContextShowCmd(app), newContextSwitchCmd(app))
	return cmd
}

// contextView is the machine-readable form of the session context
type contextView struct {
	Session     session.Session `json:"session" yaml:"session"`
	Assignments []assignment    `json:"assignments" yaml:"assignments"`
}

type assignment struct {
	Role       string    `json:"role" yaml:"role"`
	SchoolID   domain.ID `json:"school_id" yaml:"school_id"`
	SchoolName string    `json:"school_name" yaml:"school_name"`
	Active     bool      `json:"active" yaml:"active"`
}

func assignments(s session.Session) []assignment {
	active, _ := s.Active()
	out := make([]assignment, 0, len(s.Roles))
	for _, ra := range s.Roles {
		out = append(out, assignment{
			Role:       ra.Role,
			SchoolID:   ra.SchoolID,
			SchoolName: s.SchoolName(ra.SchoolID),
			Active:     ra.Key() == active.Key(),
		})
	}
	return out
}

func assignmentTable(as []assignment) ux.Table {
	t := ux.Table{Headers: []string{"", "ROLE", "SCHOOL ID", "SCHOOL"}, Empty: "No role assignments."}
	for _, a := range as {
		marker := ""
		if a.Active {
			marker = "*"
		}
		t.Rows = append(t.Rows, []string{marker, a.Role, a.SchoolID.String(), a.SchoolName})
	}
	return t
}

func newContextShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active role, school and academic year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			as := assignments(s)
			return app.render(contextView{Session: s, Assignments: as}, view.Context(s), assignmentTable(as))
		},
	}
}

func newContextSwitchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "switch [role@school]",
		Short: "Make another role assignment active",
		Long: `Switch the active role and school. Without an argument the role
assignments of the signed-in user are offered for selection.

The server decides whether the pair is acceptable; on failure the previous
role and school stay active.

Examples:
  schoolctl context switch
  schoolctl context switch admin_principal@1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.requireSession(ctx)
			if err != nil {
				return err
			}
			if len(s.Roles) == 0 {
				return errors.New(errors.ErrCodeSessionNoRoles, "the signed-in user has no role assignments")
			}

			target, err := app.switchTarget(s, args)
			if err != nil {
				return err
			}

			m, err := app.Sessions(ctx)
			if err != nil {
				return err
			}
			next, err := m.SwitchContext(ctx, target.Role, target.SchoolID)
			app.Metrics.RecordSwitch(err == nil)
			if err != nil {
				return err
			}

			app.Logger.Info("context switched", "role", target.Role, "school_id", target.SchoolID.String())
			return app.render(next, "Switched to "+view.RoleLabel(next, target))
		},
	}
}

// switchTarget resolves the requested assignment from the argument or a prompt
func (a *App) switchTarget(s session.Session, args []string) (domain.RoleAssignment, error) {
	if len(args) == 1 {
		ra, err := domain.ParseRoleAssignment(args[0])
		if err != nil {
			return ra, errors.NewValidationError([]string{err.Error()})
		}
		if !s.Entitled(ra) {
			a.Logger.Debug("requested assignment is not in the session, asking the server anyway", "assignment", ra.Key())
		}
		return ra, nil
	}
	if !a.prompt() {
		return domain.RoleAssignment{}, errors.NewValidationError([]string{"specify the role assignment as <role>@<school_id>"})
	}
	return tui.PromptForRole(s)
}

func newAccessCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Inspect what the active session may open",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	check := &cobra.Command{
		Use:   "check <view>",
		Short: "Evaluate the access rule of a view",
		Long: `Evaluate the access rule of a view for the current session and report
whether it may be opened. The exit status is non-zero when it may not.

Views: ` + strings.Join(routePaths(), ", ") + `

Examples:
  schoolctl access check /admin
  schoolctl access check dashboard`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, ok := session.Lookup(args[0])
			if !ok {
				return errors.NewValidationError([]string{
					fmt.Sprintf("unknown view %q; known views: %s", args[0], strings.Join(routePaths(), ", ")),
				})
			}

			s, err := app.loadSession(cmd.Context())
			if err != nil {
				return err
			}
			d := route.Check(s)

			out := accessView{
				View:         route.Path,
				RequiredRole: route.RequiredRole,
				Verdict:      d.Verdict.String(),
				Target:       d.Target,
			}
			if err := app.render(out, accessDetails(out)); err != nil {
				return err
			}
			return decisionError(route, d)
		},
	}

	cmd.AddCommand(check)
	return cmd
}

type accessView struct {
	View         string `json:"view" yaml:"view"`
	RequiredRole string `json:"required_role,omitempty" yaml:"required_role,omitempty"`
	Verdict      string `json:"verdict" yaml:"verdict"`
	Target       string `json:"target,omitempty" yaml:"target,omitempty"`
}

func accessDetails(v accessView) ux.Details {
	d := ux.Details{
		{Label: "View", Value: v.View},
		{Label: "Requires", Value: orDash(v.RequiredRole)},
		{Label: "Verdict", Value: v.Verdict},
	}
	if v.Target != "" {
		d = append(d, ux.Detail{Label: "Redirect", Value: v.Target})
	}
	return d
}

func routePaths() []string {
	paths := make([]string, 0, len(session.Routes))
	for _, r := range session.Routes {
		paths = append(paths, r.Path)
	}
	return paths
}
