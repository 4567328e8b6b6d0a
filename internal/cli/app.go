package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kassa/internal/catalog"
	"github.com/roach88/kassa/internal/checkout"
	"github.com/roach88/kassa/internal/clock"
	"github.com/roach88/kassa/internal/config"
	"github.com/roach88/kassa/internal/daybook"
	"github.com/roach88/kassa/internal/forward"
	"github.com/roach88/kassa/internal/ids"
	"github.com/roach88/kassa/internal/remote"
	"github.com/roach88/kassa/internal/remote/postgres"
	"github.com/roach88/kassa/internal/remote/rest"
	"github.com/roach88/kassa/internal/shop"
	"github.com/roach88/kassa/internal/store"
)

// drainTimeout bounds the best-effort delivery done when a one-shot command exits.
const drainTimeout = 10 * time.Second

// app is the wired core used by every command.
type app struct {
	cfg   *config.Config
	store *store.Store
	loc   *time.Location

	remote      remote.Remote
	closeRemote func() error
	forwarder   *forward.Forwarder // nil when no remote is configured

	shops    *shop.Service
	catalog  *catalog.Service
	checkout *checkout.Service
	daybook  *daybook.Service
}

// openApp loads the configuration, installs the logger, opens the store and
// wires the services to the forwarder.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	setupLogging(cmd.ErrOrStderr(), cfg.Level(), opts.Verbose)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: st, loc: loc, closeRemote: func() error { return nil }}

	var sink forward.Sink = forward.Discard
	if err := a.openRemote(); err != nil {
		st.Close()
		return nil, fmt.Errorf("%w: remote: %w", errConfig, err)
	}
	if a.remote != nil {
		timeout, _ := cfg.Remote.DeliveryTimeout()
		a.forwarder = forward.New(a.remote, st, forward.WithTimeout(timeout))
		sink = a.forwarder
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	var gen ids.Generator = ids.UUIDv7{}
	if opts.IDs != nil {
		gen = opts.IDs
	}

	a.shops = shop.New(st, shop.WithClock(clk), shop.WithIDs(gen), shop.WithSink(sink))
	a.catalog = catalog.New(st, catalog.WithClock(clk), catalog.WithIDs(gen), catalog.WithSink(sink))
	a.checkout = checkout.New(st,
		checkout.WithClock(clk), checkout.WithIDs(gen), checkout.WithLocation(loc), checkout.WithSink(sink))
	a.daybook = daybook.New(st,
		daybook.WithClock(clk), daybook.WithIDs(gen), daybook.WithLocation(loc), daybook.WithSink(sink))

	return a, nil
}

func (a *app) openRemote() error {
	rc := a.cfg.Remote
	switch rc.Kind {
	case config.RemoteREST:
		a.remote = rest.New(rc.URL, rc.APIKey)
	case config.RemotePostgres:
		m, err := postgres.Open(rc.DSN)
		if err != nil {
			return err
		}
		a.remote = m
		a.closeRemote = m.Close
	}
	if a.remote != nil {
		slog.Debug("remote configured", "kind", rc.Kind)
	}
	return nil
}

// prepareRemote creates the mirror tables when the remote is a PostgreSQL
// database. Failure is logged: the device keeps working offline.
func (a *app) prepareRemote(ctx context.Context) {
	m, ok := a.remote.(*postgres.Mirror)
	if !ok {
		return
	}
	timeout, _ := a.cfg.Remote.DeliveryTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := m.EnsureSchema(ctx); err != nil {
		slog.Warn("remote schema not ready", "error", err)
	}
}

// Close delivers what the command forwarded, then releases the remote and
// the store. Delivery is best effort and bounded by drainTimeout.
func (a *app) Close() {
	if a.forwarder != nil && a.forwarder.Pending() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		stats, err := a.forwarder.Drain(ctx)
		cancel()
		slog.Debug("forwarded records", "delivered", stats.Delivered, "failed", stats.Failed, "error", err)
	}
	if err := a.closeRemote(); err != nil {
		slog.Error("error closing remote", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}
	return config.LoadOrDefault(DefaultConfigPath)
}

// setupLogging installs a text slog handler on w.
func setupLogging(w io.Writer, level slog.Level, verbose bool) {
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// run opens the app, calls fn and reports its error through the formatter.
func run(cmd *cobra.Command, opts *RootOptions, what string, fn func(ctx context.Context, a *app, out *OutputFormatter) error) error {
	out := opts.formatter(cmd)
	a, err := openApp(cmd, opts)
	if err != nil {
		return out.Fail(what, err)
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx, a, out); err != nil {
		return out.Fail(what, err)
	}
	return nil
}

var (
	errUsage  = errors.New("invalid arguments")
	errConfig = errors.New("configuration error")
	errWrite  = errors.New("write failed")
)

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
