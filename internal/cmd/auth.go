package cmd

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/tui"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
	"github.com/felixgeelhaar/schoolctl/internal/validate"
	"github.com/felixgeelhaar/schoolctl/internal/view"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in and out of the school API",
		Long: `Manage the credential used to talk to the school API.

The credential is kept by the configured backend: an encrypted file
(default), Redis, or process memory with --ephemeral.

Subcommands:
  login   Sign in with email and password
  logout  Forget the stored credential
  status  Show who is signed in and the active role
  whoami  Ask the API for the signed-in identity
  token   Inspect the stored credential

Examples:
  schoolctl auth login --email admin@example.com
  schoolctl auth status
  schoolctl auth logout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newAuthLoginCmd(app),
		newAuthLogoutCmd(app),
		newAuthStatusCmd(app),
		newAuthWhoamiCmd(app),
		newAuthTokenCmd(app),
	)
	return cmd
}

func newAuthLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in to the school API. Missing values are prompted for; the
password is never echoed.

Examples:
  schoolctl auth login
  schoolctl auth login --email admin@example.com
  echo "$PASSWORD" | schoolctl auth login --email admin@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := app.credentials(email, password)
			if err != nil {
				return err
			}
			if err := validate.Var("email", creds.Email, "required,email"); err != nil {
				return err
			}

			m, err := app.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			s, err := m.Login(cmd.Context(), creds.Email, creds.Password)
			if err != nil {
				return err
			}
			if !s.Authenticated() {
				return errors.NewNotLoggedInError()
			}

			app.Logger.Info("signed in", "email", creds.Email)
			msg := "Logged in as " + s.Identity.FullName()
			if active, ok := s.Active(); ok {
				msg += " (" + view.RoleLabel(s, active) + ")"
			}
			return app.render(s, msg)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prefer the prompt or stdin)")
	return cmd
}

// credentials fills in what the flags left out, with a form on a terminal or
// line by line from stdin otherwise
func (a *App) credentials(email, password string) (tui.Credentials, error) {
	if email != "" && password != "" {
		return tui.Credentials{Email: email, Password: password}, nil
	}
	if a.prompt() {
		return tui.PromptForCredentials(email)
	}

	p := ux.NewPrompter(a.in, a.errOut)
	var err error
	if email == "" {
		if email, err = p.Line("Email", ""); err != nil {
			return tui.Credentials{}, fmt.Errorf("failed to read email: %w", err)
		}
	}
	if password, err = p.Password("Password"); err != nil {
		return tui.Credentials{}, fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return tui.Credentials{}, errors.NewValidationError([]string{"password is a required field"})
	}
	return tui.Credentials{Email: email, Password: password}, nil
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := app.credentialStore(ctx)
			if err != nil {
				return err
			}
			has, err := credential.Has(ctx, store)
			if err != nil {
				return err
			}
			if !has {
				app.println("Not logged in.")
				return nil
			}

			m, err := app.Sessions(ctx)
			if err != nil {
				return err
			}
			if err := m.Logout(ctx); err != nil {
				return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to remove credential", err)
			}
			app.println("Logged out.")
			return nil
		},
	}
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in and the active role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.requireSession(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(s, view.Context(s))
		},
	}
}

func newAuthWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Ask the API for the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			if has, err := credential.Has(ctx, client.Store()); err != nil {
				return err
			} else if !has {
				return errors.NewNotLoggedInError()
			}

			u, err := client.Me(ctx)
			if err != nil {
				return err
			}
			return app.render(u, ux.Details{
				{Label: "ID", Value: u.ID.String()},
				{Label: "Name", Value: u.FullName()},
				{Label: "Email", Value: u.Email},
				{Label: "Role", Value: orDash(u.Role)},
			})
		},
	}
}

func newAuthTokenCmd(app *App) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect the stored credential",
		Long: `Print the claims of the stored credential. The signature is not
verified; this is for display only.

Examples:
  schoolctl auth token
  schoolctl auth token --show   # print the raw credential`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := app.credentialStore(ctx)
			if err != nil {
				return err
			}
			token, err := store.Get(ctx)
			if err != nil {
				if stderrors.Is(err, credential.ErrNotFound) {
					return errors.NewNotLoggedInError()
				}
				return err
			}

			if show {
				fmt.Fprintln(app.out, token)
				return nil
			}

			claims, err := tokenClaims(token)
			if err != nil {
				app.Logger.Debug("credential is not a JWT", "error", err)
				app.println("The credential is opaque (%d characters). Use --show to print it.", len(token))
				return nil
			}
			return app.render(claims, claimDetails(claims, time.Now()))
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the raw credential")
	return cmd
}

// tokenClaims decodes the claims of a JWT without verifying it
func tokenClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// claimDetails lists sub, iat and exp first, then the remaining claims sorted
func claimDetails(claims jwt.MapClaims, now time.Time) ux.Details {
	var d ux.Details
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		d = append(d, ux.Detail{Label: "Subject", Value: sub})
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		d = append(d, ux.Detail{Label: "Issued", Value: iat.UTC().Format(time.RFC3339)})
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		value := exp.UTC().Format(time.RFC3339)
		if exp.Before(now) {
			value += " (expired)"
		} else {
			value += fmt.Sprintf(" (in %s)", exp.Sub(now).Round(time.Minute))
		}
		d = append(d, ux.Detail{Label: "Expires", Value: value})
	}

	rest := make([]string, 0, len(claims))
	for k := range claims {
		switch k {
		case "sub", "iat", "exp":
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		d = append(d, ux.Detail{Label: k, Value: fmt.Sprint(claims[k])})
	}
	return d
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
