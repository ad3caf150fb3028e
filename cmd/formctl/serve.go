package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	forms "github.com/goliatone/go-forms"
	"github.com/goliatone/go-forms/pkg/server"
	"github.com/goliatone/go-forms/pkg/session"
	"github.com/goliatone/go-forms/pkg/telemetry"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		defs       string
		addr       string
		prefix     string
		sessionTTL time.Duration
		secure     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forms over HTTP",
		Long: `Serve every form found in the definitions under /forms/<alias>.

The server also exposes /healthz and Prometheus metrics on /metrics.

Examples:
  formctl serve --defs ./forms
  formctl serve --defs forms.yaml --addr :3000 --prefix /f`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := flags.logger()
			metrics := telemetry.New()
			m, err := flags.manager(defs, forms.WithMetrics(metrics))
			if err != nil {
				return err
			}

			store := session.NewMemoryStore()
			defer store.Close()
			sessions := session.NewManager(store,
				session.WithTTL(sessionTTL),
				session.WithSecureCookie(secure),
				session.WithLogger(logger),
			)
			handler, err := forms.Handler(m,
				server.WithSessions(sessions),
				server.WithMetrics(metrics),
				server.WithLogger(logger),
				server.WithPrefix(prefix),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return listen(ctx, &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}, func() {
				success("Serving %d form(s) on %s%s", len(m.Forms()), addr, prefix)
			})
		},
	}

	cmd.Flags().StringVarP(&defs, "defs", "d", "forms", "Definition file or directory")
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Listen address")
	cmd.Flags().StringVar(&prefix, "prefix", server.DefaultPrefix, "Path prefix forms are served under")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", 24*time.Hour, "Session lifetime")
	cmd.Flags().BoolVar(&secure, "secure-cookie", false, "Mark the session cookie Secure")

	return cmd
}

// listen serves until ctx is cancelled, then shuts the server down.
func listen(ctx context.Context, srv *http.Server, ready func()) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ready()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
