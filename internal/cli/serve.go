package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/kassa/internal/daybook"
	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/receipt"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Listener replaces the TCP listener (for testing).
	Listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the receipt viewer and the sync forwarder",
		Long: `Serve receipt links over HTTP and forward unsynced records to the
configured remote until interrupted.

Records left unsynced by earlier runs are queued again on start.

Example:
  kassa serve --addr :8080
  kassa serve --config /etc/kassa.yaml --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, "serve failed", func(ctx context.Context, a *app, out *OutputFormatter) error {
				return serve(ctx, a, opts, cmd)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides viewer.addr)")

	return cmd
}

func serve(parent context.Context, a *app, opts *ServeOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	addr := opts.Addr
	if addr == "" {
		addr = a.cfg.Viewer.Addr
	}
	ln := opts.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("%w: listen %s: %w", errConfig, addr, err)
		}
	}

	viewer := receipt.ViewerConfig{
		Origin:   a.cfg.Receipt.Origin,
		QRSize:   a.cfg.Receipt.QRSize,
		QRMargin: a.cfg.Receipt.QRMargin,
		Location: a.loc,
	}
	if s, err := a.shops.Active(ctx); err == nil {
		viewer.Currency, viewer.Language = s.Currency, s.Language
		a.watchDay(ctx, s)
	}

	srv := &http.Server{
		Handler:           otelhttp.NewHandler(receipt.NewHandler(viewer), "receipt-viewer"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.forwarder != nil {
		a.prepareRemote(gctx)
		if _, err := a.forwarder.Resend(gctx, a.store); err != nil {
			slog.Warn("resend failed", "error", err)
		}
		g.Go(func() error {
			return a.forwarder.Run(gctx)
		})
	}

	g.Go(func() error {
		slog.Info("viewer listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Serving receipts on %s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "serve error", err)
	}

	slog.Info("stopped gracefully")
	return nil
}

// watchDay logs the running totals of the startup business date whenever
// transactions change, including sales committed by other kassa processes.
func (a *app) watchDay(ctx context.Context, s *model.Shop) {
	day := a.daybook.Today()
	_, err := a.daybook.Watch(ctx, s, day, func(st daybook.Stats) {
		slog.Info("day totals", "business_date", day, "count", st.Count, "total", st.Total)
	})
	if err != nil {
		slog.Warn("live stats unavailable", "error", err)
	}
}
