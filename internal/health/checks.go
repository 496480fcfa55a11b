package health

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/session"
)

// ProbePath is requested to decide whether the API is reachable. Any HTTP
// response counts; only the status class changes the verdict.
const ProbePath = "/openapi.json"

type checkFunc struct {
	name string
	fn   func(ctx context.Context) *Result
}

func (c checkFunc) Name() string                      { return c.name }
func (c checkFunc) Check(ctx context.Context) *Result { return c.fn(ctx) }

// New adapts a function to a Checker
func New(name string, fn func(ctx context.Context) *Result) Checker {
	return checkFunc{name: name, fn: fn}
}

// ConfigCheck reports whether the configuration file loaded
func ConfigCheck(path string, loadErr error) Checker {
	return New("config", func(context.Context) *Result {
		if loadErr != nil {
			return Unhealthy("configuration did not load, defaults in use").
				WithDetail("path", path).
				WithDetail("error", loadErr.Error())
		}
		return Healthy("loaded").WithDetail("path", path)
	})
}

// CredentialCheck reads the credential store without changing it
func CredentialCheck(backend string, open func(ctx context.Context) (credential.Store, error)) Checker {
	return New("credentials", func(ctx context.Context) *Result {
		store, err := open(ctx)
		if err != nil {
			return Unhealthy("credential store unavailable").
				WithDetail("backend", backend).
				WithDetail("error", err.Error())
		}
		has, err := credential.Has(ctx, store)
		switch {
		case err != nil:
			return Unhealthy("credential store unreadable").
				WithDetail("backend", backend).
				WithDetail("error", err.Error())
		case !has:
			return Degraded("no credential stored; run 'schoolctl auth login'").WithDetail("backend", backend)
		default:
			return Healthy("credential stored").WithDetail("backend", backend)
		}
	})
}

// Getter is the part of the API client the reachability check needs
type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

// APICheck requests ProbePath from the API
func APICheck(baseURL string, client Getter) Checker {
	return New("api", func(ctx context.Context) *Result {
		err := client.Get(ctx, ProbePath, nil)
		if err == nil {
			return Healthy("reachable").WithDetail("url", baseURL)
		}

		var apiErr *api.Error
		if !stderrors.As(err, &apiErr) || apiErr.IsTransport() {
			return Unhealthy("unreachable").
				WithDetail("url", baseURL).
				WithDetail("error", err.Error())
		}
		res := Healthy("reachable")
		if apiErr.StatusCode >= http.StatusInternalServerError {
			res = Degraded(fmt.Sprintf("server error: %s", apiErr.Detail))
		}
		return res.WithDetail("url", baseURL).WithDetail("status", strconv.Itoa(apiErr.StatusCode))
	})
}

// SessionCheck loads the session and reports who is signed in
func SessionCheck(load func(ctx context.Context) (session.Session, error)) Checker {
	return New("session", func(ctx context.Context) *Result {
		s, err := load(ctx)
		if err != nil {
			return Unhealthy("session did not load").WithDetail("error", err.Error())
		}
		if !s.Authenticated() {
			return Degraded("not logged in")
		}

		active, ok := s.Active()
		if !ok {
			return Degraded(fmt.Sprintf("signed in as %s without an active role", s.Identity.Email))
		}
		res := Healthy("signed in as "+s.Identity.Email).
			WithDetail("role", active.Role).
			WithDetail("school", s.SchoolName(active.SchoolID))
		if s.ActiveAcademicYear != nil {
			res.WithDetail("academic_year", s.ActiveAcademicYear.Name)
		} else {
			res.Status = StatusDegraded
			res.WithDetail("academic_year", "none active")
		}
		return res
	})
}
