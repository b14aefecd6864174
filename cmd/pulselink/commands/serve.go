package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/layer-3/pulselink/adapters/events"
	"github.com/layer-3/pulselink/listener"
	transport "github.com/layer-3/pulselink/transport/http"
)

func serveCmd() *cobra.Command {
	var launchURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the deep-link listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := events.Audit(ctx, a.subscriber, a.log); err != nil {
				a.log.WithError(err).Warn("event audit disabled")
			}

			deps := transport.RouterDeps{Auth: a.auth, Sink: a.sink}
			if a.connect != nil {
				l := listener.New(a.connect, a.log)
				go func() {
					if err := l.Run(ctx, launchURL); err != nil && !errors.Is(err, context.Canceled) {
						a.log.WithError(err).Error("listener stopped")
					}
				}()
				deps.Connect, deps.Listener = a.connect, l
			}

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           transport.SetupRouter(deps),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", cfg.ListenAddr).Info("server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&launchURL, "url", "", "deep link the process was launched with")
	return cmd
}
