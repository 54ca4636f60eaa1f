package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"novelhub/internal/auth"
	"novelhub/internal/cli"
	"novelhub/internal/core"
	httpProtocol "novelhub/internal/protocols/http"
	"novelhub/pkg/logger"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the comment API server",
	Long:  "Serve the threaded comment HTTP API for novels, chapters and news",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			host, port, err := splitAddr(addr)
			if err != nil {
				return err
			}
			cfg.Server.Host, cfg.Server.Port = host, port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("Starting novelhub comment server...")

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		policy := core.NewPolicy(cfg.Comments)
		commentSvc := core.NewCommentService(a.stores.comments, a.stores.votes, a.targets, a.sink, policy)
		voteSvc := core.NewVoteService(a.stores.comments, a.stores.votes, policy)
		moderationSvc := core.NewModerationService(a.stores.comments, a.stores.reports, a.sink, policy)

		authn := auth.NewJWTAuthenticator(cfg.JWT.Secret, cfg.JWT.Issuer)
		httpServer := httpProtocol.NewServer(cfg, authn, commentSvc, voteSvc, moderationSvc)
		for name, check := range a.checks {
			httpServer.AddHealthCheck(name, check)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return httpServer.Run(gctx, cfg.Server.Addr())
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Shutdown signal received")
			return nil
		})

		if err := g.Wait(); err != nil {
			logger.Errorf("Server stopped with error: %v", err)
			return err
		}
		logger.Info("Shutdown complete")
		return nil
	},
}

func init() {
	ServeCmd.Flags().String("addr", "", "Listen address host:port (overrides server.host/port)")
}
