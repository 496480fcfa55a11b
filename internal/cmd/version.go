package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/metrics"
	"github.com/felixgeelhaar/schoolctl/internal/version"
)

func newVersionCmd(app *App) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTolerant: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			text := "schoolctl " + info.Version
			if verbose {
				text = info.String()
			}
			return app.render(info, text)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed version information")
	return cmd
}

func newMetricsCmd(app *App) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print client metrics in Prometheus text format",
		Long: `Load the session once and print the metrics this process collected:
API requests and latency by route, session loads by outcome, and command
counts. Useful to check connectivity and latency against the API.

Examples:
  schoolctl metrics
  schoolctl metrics --probe=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if probe {
				if _, err := app.loadSession(cmd.Context()); err != nil {
					app.Logger.WithError(err).Warn("session probe failed")
				}
			}
			if err := metrics.WriteText(app.out, app.Registry); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", true, "load the session before printing")
	return cmd
}
