package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	apiURL     string
	format     string
	logLevel   string
	logFormat  string
	noColor    bool
	ephemeral  bool
}

// annotationTolerant marks commands that still run when the configuration
// file does not load, so a broken file can be inspected and repaired.
const annotationTolerant = "schoolctl/config-tolerant"

func newRootCmd() (*cobra.Command, *App) {
	app := &App{opts: &globalOptions{}}

	root := &cobra.Command{
		Use:   "schoolctl",
		Short: "School administration console",
		Long: `schoolctl is a console for the school administration API.

It signs you in, keeps track of which role and school you are acting as,
and manages academic years, subjects, rooms, classrooms, students and
user accounts on behalf of the active role.

Examples:
  schoolctl auth login --email admin@example.com
  schoolctl context switch admin_principal@1
  schoolctl rooms list
  schoolctl console`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.opts.configPath, "config", "", "config file (default is $SCHOOLCTL_HOME/config.yaml or ~/.schoolctl/config.yaml)")
	flags.StringVar(&app.opts.apiURL, "api-url", "", "school API base URL (overrides api_url)")
	flags.StringVarP(&app.opts.format, "format", "o", "", "output format: text, json, yaml")
	flags.StringVar(&app.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&app.opts.logFormat, "log-format", "", "log format: text, json")
	flags.BoolVar(&app.opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&app.opts.ephemeral, "ephemeral", false, "keep the credential in memory for this invocation only")

	root.AddCommand(
		newAuthCmd(app),
		newContextCmd(app),
		newAccessCmd(app),
		newYearsCmd(app),
		newSubjectsCmd(app),
		newRoomsCmd(app),
		newClassroomsCmd(app),
		newStudentsCmd(app),
		newUsersCmd(app),
		newTeachersCmd(app),
		newSchoolsCmd(app),
		newDashboardCmd(app),
		newConsoleCmd(app),
		newConfigCmd(app),
		newDoctorCmd(app),
		newVersionCmd(app),
		newMetricsCmd(app),
	)

	return root, app
}

// ExecuteContext builds the command tree and runs it with os.Args. Errors are
// printed to stderr before being returned.
func ExecuteContext(ctx context.Context) error {
	root, app := newRootCmd()
	return app.execute(ctx, root)
}
