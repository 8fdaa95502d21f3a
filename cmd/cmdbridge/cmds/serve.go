package cmds

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/httpapi"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	Addr    string
	Startup []string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge headless and expose cache, listeners and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.setup(cmd)
			if err != nil {
				return err
			}
			addr := cfg.MetricsAddr
			if opts.Addr != "" {
				addr = opts.Addr
			}
			if addr == "" {
				return errors.New("no listen address: set metrics_addr or --addr")
			}

			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := rt.start(ctx); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewMux(rt.bridge, rt.registry),
				ReadHeaderTimeout: 5 * time.Second,
			}

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				logger.Info().Str("addr", addr).Msg("http listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "http server")
				}
				return nil
			})
			eg.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			eg.Go(func() error {
				for _, name := range opts.Startup {
					res, err := rt.bridge.ExecuteCommand(ctx, name, nil, false).Wait(ctx)
					if err != nil {
						break
					}
					if !res.Ok() {
						logger.Warn().Str("command", name).Err(res.Err).Msg("startup command failed")
					}
				}
				return nil
			})
			return eg.Wait()
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (overrides metrics_addr)")
	cmd.Flags().StringSliceVar(&opts.Startup, "startup", nil, "Commands issued once the bridge is running")
	return cmd
}
