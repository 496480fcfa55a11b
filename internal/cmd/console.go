package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/tui"
)

func newConsoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the full-screen console",
		Long: `Open the interactive console. The header shows who is signed in and the
active role, school and academic year. Tabs show the overview, academics,
facilities, students and users; tabs that need a role you do not hold say so.

Keys:
  tab / shift+tab, 1-5   change tab
  s                      switch role
  r                      refresh the tab
  ctrl+r                 reload the session
  q                      quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !tui.IsInteractive() {
				return fmt.Errorf("the console needs a terminal; use the list commands in scripts")
			}
			ctx := cmd.Context()
			m, err := app.Sessions(ctx)
			if err != nil {
				return err
			}
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			return tui.RunConsole(ctx, m, tui.ClientFetcher{Client: client})
		},
	}
}
