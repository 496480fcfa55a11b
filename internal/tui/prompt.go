// Package tui holds the interactive surfaces of schoolctl: huh prompts for
// sign-in and role selection, and the full-screen bubbletea console.
package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
	"github.com/felixgeelhaar/schoolctl/internal/session"
	"github.com/felixgeelhaar/schoolctl/internal/validate"
	"github.com/felixgeelhaar/schoolctl/internal/view"
)

// Credentials are the answers of the sign-in form
type Credentials struct {
	Email    string
	Password string
}

// PromptForCredentials shows the sign-in form. email pre-fills the first field.
func PromptForCredentials(email string) (Credentials, error) {
	c := Credentials{Email: email}

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Placeholder("admin@example.com").
			Value(&c.Email).
			Validate(func(s string) error { return validate.Var("email", s, "required,email") }),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&c.Password).
			Validate(func(s string) error { return validate.Var("password", s, "required") }),
	))

	if err := form.Run(); err != nil {
		return Credentials{}, fmt.Errorf("prompt failed: %w", err)
	}
	return c, nil
}

// roleOptions labels each assignment "role @ school name" and keys it by
// "role|school", with the active assignment first.
func roleOptions(s session.Session) []huh.Option[string] {
	active, _ := s.Active()
	opts := make([]huh.Option[string], 0, len(s.Roles))
	for _, ra := range s.Roles {
		label := view.RoleLabel(s, ra)
		if ra.Key() == active.Key() {
			opts = append([]huh.Option[string]{huh.NewOption(label+" (active)", ra.Key())}, opts...)
			continue
		}
		opts = append(opts, huh.NewOption(label, ra.Key()))
	}
	return opts
}

// PromptForRole lets the user pick one of the session's role assignments
func PromptForRole(s session.Session) (domain.RoleAssignment, error) {
	if len(s.Roles) == 0 {
		return domain.RoleAssignment{}, fmt.Errorf("no role assignments to choose from")
	}

	var selected string
	field := huh.NewSelect[string]().
		Title("Switch to").
		Options(roleOptions(s)...).
		Value(&selected)

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return domain.RoleAssignment{}, fmt.Errorf("prompt failed: %w", err)
	}
	return domain.ParseRoleAssignment(selected)
}

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Value(&confirmed)

	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ciEnvVars disable prompts when any of them is set
var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"BUILDKITE",
	"SCHOOLCTL_NO_PROMPT",
}

// ShouldPrompt returns true if prompts should be shown. Prompts are
// disabled in CI environments or when stdin is not a terminal.
func ShouldPrompt() bool {
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}
	return IsInteractive()
}
