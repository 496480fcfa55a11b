package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/health"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
)

type doctorView struct {
	Status health.Status   `json:"status" yaml:"status"`
	Checks []health.Report `json:"checks" yaml:"checks"`
}

func newDoctorCmd(app *App) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials, API and session",
		Long: `Run diagnostic checks in parallel and report what works:

  config       the configuration file loaded
  credentials  the credential store can be read and holds a credential
  api          the school API answers at api_url
  session      the session loads with an active role and academic year

The exit status is non-zero when any check is unhealthy.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTolerant: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// The checks run concurrently; App state is initialized before they start.
			store, storeErr := app.credentialStore(ctx)
			openStore := func(context.Context) (credential.Store, error) { return store, storeErr }

			probe := api.NewClient(app.Config.APIURL, credential.NewMemoryStore(),
				api.WithTimeout(app.Config.HTTP.Timeout),
				api.WithLogger(app.Logger.With("component", "doctor")),
				api.WithObserver(app.Metrics),
			)

			m := health.NewManager(
				health.ConfigCheck(app.Config.Path, app.loadErr),
				health.CredentialCheck(app.Config.Credentials.Backend, openStore),
				health.APICheck(app.Config.APIURL, probe),
				health.SessionCheck(app.loadSession),
			).WithTimeout(timeout)

			reports := m.Check(ctx)
			overall := health.Overall(reports)
			if err := app.render(doctorView{Status: overall, Checks: reports}, doctorTable(reports), "Overall: "+overall.String()); err != nil {
				return err
			}
			if overall == health.StatusUnhealthy {
				return fmt.Errorf("%d of %d checks unhealthy", countStatus(reports, health.StatusUnhealthy), len(reports))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", health.DefaultTimeout, "time limit for each check")
	return cmd
}

func doctorTable(reports []health.Report) ux.Table {
	t := ux.Table{Headers: []string{"CHECK", "STATUS", "MESSAGE", "DETAILS", "LATENCY"}}
	for _, r := range reports {
		t.Rows = append(t.Rows, []string{
			r.Name, r.Status.String(), r.Message, detailText(r.Details),
			r.Latency.Round(time.Millisecond).String(),
		})
	}
	return t
}

func detailText(details map[string]string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+details[k])
	}
	return strings.Join(parts, " ")
}

func countStatus(reports []health.Report, s health.Status) int {
	n := 0
	for _, r := range reports {
		if r.Status == s {
			n++
		}
	}
	return n
}
