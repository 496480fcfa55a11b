package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/config"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
)

// secretKeys are masked by config view and config get
var secretKeys = map[string]bool{
	"credentials.passphrase": true,
	"redis.password":         true,
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit schoolctl configuration",
		Long: `Manage configuration stored at ~/.schoolctl/config.yaml (or
$SCHOOLCTL_HOME/config.yaml).

Values resolve from defaults, the file, .env files and SCHOOLCTL_*
environment variables, in increasing order of precedence. Keys use dot
notation, e.g. http.timeout or SCHOOLCTL_HTTP_TIMEOUT.

Examples:
  schoolctl config view
  schoolctl config get api_url
  schoolctl config set api_url https://school.example.com
  schoolctl config set credentials.backend redis
  schoolctl config path`,
		Annotations: map[string]string{annotationTolerant: "true"},
		RunE:        helpRunE,
	}

	view := &cobra.Command{
		Use:         "view",
		Short:       "Display the resolved configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTolerant: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := maskSecrets(app.Config.Settings())
			return app.render(settings, settingsDetails(settings))
		},
	}

	get := &cobra.Command{
		Use:         "get <key>",
		Short:       "Print one configuration value",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTolerant: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.Config.Get(args[0])
			if err != nil {
				return err
			}
			if secretKeys[args[0]] && v != "" {
				v = "********"
			}
			fmt.Fprintln(app.out, v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one configuration value",
		Long: `Write a value into the configuration file. The file is left unchanged
when the result would not load.

Keys: ` + strings.Join(config.Keys(), ", "),
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{annotationTolerant: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(app.Config.Path, args[0], args[1]); err != nil {
				return err
			}
			shown := args[1]
			if secretKeys[args[0]] {
				shown = "********"
			}
			app.println("Set %s = %s in %s", args[0], shown, app.Config.Path)
			return nil
		},
	}

	path := &cobra.Command{
		Use:         "path",
		Short:       "Show the configuration file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTolerant: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(app.out, app.Config.Path)
			return nil
		},
	}

	cmd.AddCommand(view, get, set, path)
	return cmd
}

func maskSecrets(settings map[string]any) map[string]any {
	for k := range secretKeys {
		if v, ok := settings[k]; ok && fmt.Sprint(v) != "" {
			settings[k] = "********"
		}
	}
	return settings
}

func settingsDetails(settings map[string]any) ux.Details {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := make(ux.Details, 0, len(keys))
	for _, k := range keys {
		d = append(d, ux.Detail{Label: k, Value: fmt.Sprint(settings[k])})
	}
	return d
}
