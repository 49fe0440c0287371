package cli

import (
	"context"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	transport "geoquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	rt, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.pool != nil {
		if err := runMigrationsWithConfig(ctx, rt.cfg, rt.logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = rt.cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	srv := transport.New(net.JoinHostPort("", finalPort), rt.logger, rt.svc, rt.checks)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rt.logger.Info().Str("port", finalPort).Msg("starting geoquiz service")
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		rt.logger.Info().Msg("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
