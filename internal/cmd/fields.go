package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/session"
)

// fieldFlag maps an update flag to the JSON field it sets
type fieldFlag struct {
	flag string
	key  string
}

// changedFields collects the flags that were set into a partial update
func changedFields(cmd *cobra.Command, mapping []fieldFlag) (api.Fields, error) {
	fields := api.Fields{}
	for _, m := range mapping {
		f := cmd.Flags().Lookup(m.flag)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "int":
			v, err := cmd.Flags().GetInt(m.flag)
			if err != nil {
				return nil, err
			}
			fields[m.key] = v
		case "bool":
			v, err := cmd.Flags().GetBool(m.flag)
			if err != nil {
				return nil, err
			}
			fields[m.key] = v
		default:
			fields[m.key] = f.Value.String()
		}
	}
	if len(fields) == 0 {
		return nil, errors.NewValidationError([]string{"nothing to update; pass at least one field flag"})
	}
	return fields, nil
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

// adminClient authorizes the route and returns the API client
func (a *App) adminClient(ctx context.Context, path string) (*api.Client, session.Session, error) {
	s, err := a.authorize(ctx, path)
	if err != nil {
		return nil, s, err
	}
	client, err := a.Client(ctx)
	if err != nil {
		return nil, s, err
	}
	return client, s, nil
}

func helpRunE(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}
