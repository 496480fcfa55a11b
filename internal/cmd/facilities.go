package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/validate"
	"github.com/felixgeelhaar/schoolctl/internal/view"
)

var roomFields = []fieldFlag{
	{"name", "name"},
	{"code", "room_code"},
	{"type", "room_type"},
	{"capacity", "capacity"},
	{"projector", "has_projector"},
	{"computers", "has_computers"},
	{"smartboard", "has_smartboard"},
	{"sink", "has_sink"},
	{"bookable", "is_bookable"},
}

func roomFlags(cmd *cobra.Command, r *domain.Room) {
	cmd.Flags().StringVar(&r.Name, "name", "", "room name")
	cmd.Flags().StringVar(&r.RoomCode, "code", "", "room code, e.g. B-104")
	cmd.Flags().StringVar(&r.RoomType, "type", "CLASSROOM", strings.Join(domain.RoomTypes, ", "))
	cmd.Flags().IntVar(&r.Capacity, "capacity", 0, "seats")
	cmd.Flags().BoolVar(&r.HasProjector, "projector", false, "has a projector")
	cmd.Flags().BoolVar(&r.HasComputers, "computers", false, "has computers")
	cmd.Flags().BoolVar(&r.HasSmartboard, "smartboard", false, "has a smartboard")
	cmd.Flags().BoolVar(&r.HasSink, "sink", false, "has a sink")
	cmd.Flags().BoolVar(&r.IsBookable, "bookable", true, "can be booked")
}

func newRoomsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage rooms",
		Long: `Manage the rooms of a school. Lists default to the active school.

Examples:
  schoolctl rooms list
  schoolctl rooms create --name "Science Lab" --code LAB1 --type LAB --capacity 24 --sink
  schoolctl rooms update 7 --capacity 30`,
		RunE: helpRunE,
	}

	var school string
	list := &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, s, err := app.adminClient(cmd.Context(), "/rooms")
			if err != nil {
				return err
			}
			schoolID := s.ActiveSchool
			if school != "" {
				schoolID = domain.ID(school)
			}
			rooms, err := client.Rooms(cmd.Context(), schoolID)
			if err != nil {
				return err
			}
			return app.render(rooms, view.Rooms(rooms))
		},
	}
	list.Flags().StringVar(&school, "school", "", "school id (default: the active school)")

	var (
		r          domain.Room
		roomSchool string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, s, err := app.adminClient(ctx, "/rooms")
			if err != nil {
				return err
			}
			r.SchoolID = s.ActiveSchool
			if roomSchool != "" {
				r.SchoolID = domain.ID(roomSchool)
			}
			if err := validate.Struct(r); err != nil {
				return err
			}
			created, err := client.CreateRoom(ctx, r)
			if err != nil {
				return err
			}
			return app.render(created, fmt.Sprintf("Created room %s %s (id %s)", created.RoomCode, created.Name, created.ID))
		},
	}
	roomFlags(create, &r)
	create.Flags().StringVar(&roomSchool, "school", "", "school id (default: the active school)")

	var upd domain.Room
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := changedFields(cmd, roomFields)
			if err != nil {
				return err
			}
			if c, ok := fields["capacity"]; ok {
				if err := validate.Var("capacity", c, "gt=0,lte=1000"); err != nil {
					return err
				}
			}
			client, _, err := app.adminClient(cmd.Context(), "/rooms")
			if err != nil {
				return err
			}
			updated, err := client.UpdateRoom(cmd.Context(), domain.ID(args[0]), fields)
			if err != nil {
				return err
			}
			return app.render(updated, fmt.Sprintf("Updated room %s.", args[0]))
		},
	}
	roomFlags(update, &upd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.adminClient(cmd.Context(), "/rooms")
			if err != nil {
				return err
			}
			if err := app.confirm(cmd, fmt.Sprintf("Delete room %s?", args[0])); err != nil {
				return err
			}
			if err := client.DeleteRoom(cmd.Context(), domain.ID(args[0])); err != nil {
				return err
			}
			app.println("Deleted room %s.", args[0])
			return nil
		},
	}
	addYesFlag(del)

	cmd.AddCommand(list, create, update, del)
	return cmd
}
