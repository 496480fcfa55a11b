package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/schoolctl/internal/domain"
)

// ErrNoToken is returned by Login when a 2xx response carries no token
var ErrNoToken = errors.New("login response did not contain an access token")

// Token is the password-grant token response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// Token is an alternative field name some deployments use
	Token string `json:"token,omitempty"`
}

// Value returns the credential carried by the response
func (t Token) Value() string {
	if t.AccessToken != "" {
		return t.AccessToken
	}
	return t.Token
}

// AuthContext is the authorization context of the authenticated identity
type AuthContext struct {
	User         *domain.User            `json:"user"`
	Roles        []domain.RoleAssignment `json:"roles"`
	Schools      []domain.School         `json:"schools"`
	ActiveRole   string                  `json:"active_role"`
	ActiveSchool domain.ID               `json:"active_school"`
}

// Me is the identity summary returned by /auth/me
type Me struct {
	User domain.User `json:"user"`
}

// Preference is the active role/school selection sent to the server
type Preference struct {
	Role     string    `json:"role"`
	SchoolID domain.ID `json:"school_id"`
}

// Login exchanges a username (email) and password for a bearer credential.
// The form-encoded request is sent without an Authorization header. On
// success the credential is written to the store before returning.
func (c *Client) Login(ctx context.Context, username, password string) (*Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok Token
	err := c.do(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", "", &tok)
	if err != nil {
		return nil, err
	}

	value := tok.Value()
	if value == "" {
		return nil, ErrNoToken
	}
	if err := c.store.Set(ctx, value); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	return &tok, nil
}

// Context fetches identity, role assignments, schools and active selection
func (c *Client) Context(ctx context.Context) (*AuthContext, error) {
	var out AuthContext
	if err := c.Get(ctx, "/auth/context", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the identity summary
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out Me
	if err := c.Get(ctx, "/auth/me", &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// SetPreference stores the active role/school selection server-side
func (c *Client) SetPreference(ctx context.Context, role string, schoolID domain.ID) error {
	return c.Post(ctx, "/auth/preference", Preference{Role: role, SchoolID: schoolID}, nil)
}
