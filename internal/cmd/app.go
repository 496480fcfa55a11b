package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/schoolctl/internal/api"
	"github.com/felixgeelhaar/schoolctl/internal/config"
	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/errors"
	"github.com/felixgeelhaar/schoolctl/internal/exitcode"
	"github.com/felixgeelhaar/schoolctl/internal/log"
	"github.com/felixgeelhaar/schoolctl/internal/metrics"
	"github.com/felixgeelhaar/schoolctl/internal/session"
	"github.com/felixgeelhaar/schoolctl/internal/telemetry"
	"github.com/felixgeelhaar/schoolctl/internal/tui"
	"github.com/felixgeelhaar/schoolctl/internal/ux"
	"github.com/felixgeelhaar/schoolctl/internal/version"
)

// App carries what commands share. The API client and session manager are
// created on first use, so commands that never talk to the API (version,
// config) work without a reachable credential backend.
type App struct {
	opts *globalOptions

	Config   *config.Config
	Logger   *log.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	out    io.Writer
	errOut io.Writer
	in     io.Reader

	// loadErr is set when a tolerant command runs on default configuration
	loadErr error

	store    credential.Store
	client   *api.Client
	sessions *session.Manager

	// prompt reports whether interactive prompts may be shown
	prompt func() bool

	span              trace.Span
	shutdownTelemetry func(context.Context) error
	started           time.Time
}

func (a *App) setup(cmd *cobra.Command) error {
	a.started = time.Now()
	a.out, a.errOut, a.in = cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin()
	if a.prompt == nil {
		a.prompt = tui.ShouldPrompt
	}

	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		if cmd.Annotations[annotationTolerant] == "" {
			return err
		}
		a.loadErr = err
		cfg = config.Default()
		if a.opts.configPath != "" {
			cfg.Path = a.opts.configPath
		}
	}
	if err := a.applyFlags(cfg); err != nil {
		return err
	}
	a.Config = cfg

	lc := cfg.LoggerConfig()
	lc.Output = a.errOut
	a.Logger = log.New(lc)
	log.SetDefaultLogger(a.Logger)
	if a.loadErr != nil {
		a.Logger.WithError(a.loadErr).Warn("configuration did not load, using defaults", "path", cfg.Path)
	}

	a.Registry, a.Metrics = metrics.NewRegistry()

	shutdown, err := telemetry.InitProvider(cmd.Context(), telemetry.Config{
		ServiceName:    "schoolctl",
		ServiceVersion: version.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		a.Logger.WithError(err).Warn("tracing disabled")
	} else {
		a.shutdownTelemetry = shutdown
	}

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), cmd.CommandPath())
	a.span = span
	cmd.SetContext(ctx)

	a.Logger.Debug("command started", "command", cmd.CommandPath(), "api_url", cfg.APIURL,
		"credentials", cfg.Credentials.Backend)
	return nil
}

// applyFlags lays the persistent flags over the loaded configuration
func (a *App) applyFlags(cfg *config.Config) error {
	o := a.opts
	if o.apiURL != "" {
		cfg.APIURL = o.apiURL
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.noColor || os.Getenv("NO_COLOR") != "" {
		cfg.Output.NoColor = true
	}
	if o.ephemeral {
		cfg.Credentials.Backend = config.BackendMemory
	}
	return cfg.Validate()
}

func (a *App) execute(ctx context.Context, root *cobra.Command) error {
	cmd, err := root.ExecuteContextC(ctx)
	a.finish(ctx, cmd, err)
	if err != nil {
		ux.PrintError(root.ErrOrStderr(), err, a.noColor())
	}
	return err
}

// finish ends the command span, records the command and flushes traces
func (a *App) finish(ctx context.Context, cmd *cobra.Command, err error) {
	if a.span != nil {
		telemetry.End(a.span, err)
	}
	if a.Metrics != nil && cmd != nil {
		a.Metrics.RecordCommand(cmd.CommandPath(), time.Since(a.started), errorCode(err))
	}
	if err != nil && a.Logger != nil {
		code := exitcode.DetermineExitCode(err)
		a.Logger.Debug("command failed", "exit_code", code, "reason", exitcode.GetExitCodeDescription(code))
	}
	if a.shutdownTelemetry != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if serr := a.shutdownTelemetry(sctx); serr != nil {
			a.Logger.WithError(serr).Warn("failed to flush traces")
		}
	}
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "UNCLASSIFIED"
}

func (a *App) noColor() bool {
	if a.Config != nil {
		return a.Config.Output.NoColor
	}
	return a.opts.noColor || os.Getenv("NO_COLOR") != ""
}

// credentialStore opens the configured credential backend
func (a *App) credentialStore(ctx context.Context) (credential.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	cfg := a.Config
	switch cfg.Credentials.Backend {
	case config.BackendMemory:
		a.store = credential.NewMemoryStore()
	case config.BackendRedis:
		s, err := credential.NewRedisStore(ctx, credential.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigBackend, "redis credential backend unavailable", err).
				WithSuggestion(fmt.Sprintf("Check redis.addr (%s) or use --ephemeral", cfg.Redis.Addr))
		}
		a.store = s
	default:
		a.store = credential.NewFileStore(cfg.Credentials.Path, cfg.Credentials.Passphrase)
	}
	return a.store, nil
}

// Client returns the API client, creating it on first use
func (a *App) Client(ctx context.Context) (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	store, err := a.credentialStore(ctx)
	if err != nil {
		return nil, err
	}
	a.client = api.NewClient(a.Config.APIURL, store,
		api.WithTimeout(a.Config.HTTP.Timeout),
		api.WithLogger(a.Logger.With("component", "api")),
		api.WithObserver(a.Metrics),
		api.WithUserAgent(version.GetInfo().UserAgent()),
	)
	return a.client, nil
}

// Sessions returns the session manager, creating it on first use
func (a *App) Sessions(ctx context.Context) (*session.Manager, error) {
	if a.sessions != nil {
		return a.sessions, nil
	}
	client, err := a.Client(ctx)
	if err != nil {
		return nil, err
	}
	logger := a.Logger.With("component", "session")
	loader := session.NewLoader(client, client.Store(),
		session.WithLoaderLogger(logger),
		session.WithObserver(a.Metrics),
	)
	a.sessions = session.NewManager(loader, logger)
	return a.sessions, nil
}

// loadSession reloads the session from the API
func (a *App) loadSession(ctx context.Context) (s session.Session, err error) {
	ctx, span := telemetry.StartSessionSpan(ctx, "reload")
	defer func() { telemetry.End(span, err) }()

	m, err := a.Sessions(ctx)
	if err != nil {
		return session.Empty(), err
	}
	return m.Reload(ctx)
}

// requireSession loads the session and fails unless someone is signed in
func (a *App) requireSession(ctx context.Context) (session.Session, error) {
	s, err := a.loadSession(ctx)
	if err != nil {
		return s, err
	}
	if !s.Authenticated() {
		return s, errors.NewNotLoggedInError()
	}
	return s, nil
}

// authorize loads the session and applies the access guard of a route
func (a *App) authorize(ctx context.Context, path string) (session.Session, error) {
	route, ok := session.Lookup(path)
	if !ok {
		return session.Empty(), fmt.Errorf("no access rule for %s", path)
	}
	s, err := a.loadSession(ctx)
	if err != nil {
		return s, err
	}
	if err := decisionError(route, route.Check(s)); err != nil {
		a.Logger.Debug("access denied", "route", route.Path, "role", s.ActiveRole)
		return s, err
	}
	return s, nil
}

// decisionError converts a guard redirect into the error a command reports
func decisionError(route session.Route, d session.Decision) error {
	switch {
	case d.Verdict == session.Allow:
		return nil
	case d.Verdict == session.Pending:
		return errors.New(errors.ErrCodeSessionBadContext, "session is still loading")
	case d.Target == session.LoginRoute:
		return errors.NewNotLoggedInError()
	default:
		return errors.NewForbiddenError(route.Title, route.RequiredRole)
	}
}

// formatter returns the output formatter for the configured format
func (a *App) formatter() (ux.Formatter, error) {
	return ux.NewFormatter(a.Config.Output.Format, &ux.FormatterOptions{
		Writer:  a.out,
		NoColor: a.Config.Output.NoColor,
	})
}

// render writes data as JSON or YAML, or the text views in order
func (a *App) render(data any, text ...any) error {
	f, err := a.formatter()
	if err != nil {
		return err
	}
	if _, ok := f.(*ux.TextFormatter); !ok || len(text) == 0 {
		return f.Format(data)
	}
	for i, t := range text {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		if err := f.Format(t); err != nil {
			return err
		}
	}
	return nil
}

// textOutput reports whether human-readable output was requested
func (a *App) textOutput() bool {
	f := a.Config.Output.Format
	return f == "" || f == "text"
}

// println writes a status line, only for text output
func (a *App) println(format string, args ...any) {
	if a.textOutput() {
		fmt.Fprintf(a.out, format+"\n", args...)
	}
}

// confirm asks before a destructive action unless --yes was given
func (a *App) confirm(cmd *cobra.Command, message string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return nil
	}
	if !a.prompt() {
		return errors.New(errors.ErrCodeValidationFailed, "confirmation required").
			WithSuggestion("Pass --yes to confirm without a prompt")
	}
	ok, err := tui.PromptForConfirmation(message, false)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cancelled")
	}
	return nil
}
