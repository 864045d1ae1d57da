package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/viant/quotevec/bot/slack"
	"github.com/viant/quotevec/internal/app"
)

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack bot and the health endpoint until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := o.load()
			if err != nil {
				return err
			}
			defer closer.Close()
			if cfg.Slack.BotToken == "" && cfg.Health.Addr == "" {
				return errors.New("nothing to serve: configure slack tokens or health.addr")
			}

			a, err := app.Build(cfg)
			if err != nil {
				return err
			}
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.Boot(ctx); err != nil {
				return err
			}
			b, closeBot, err := a.NewBot()
			if err != nil {
				_ = a.Shutdown(context.Background())
				return err
			}
			defer closeBot()

			g, gctx := errgroup.WithContext(ctx)
			if cfg.Slack.BotToken != "" {
				adapter, err := slack.New(slack.Config{
					BotToken:  cfg.Slack.BotToken,
					AppToken:  cfg.Slack.AppToken,
					BotUserID: cfg.Slack.BotUserID,
					APIURL:    cfg.Slack.APIURL,
					Debug:     cfg.Slack.Debug,
				}, b)
				if err != nil {
					_ = a.Shutdown(context.Background())
					return err
				}
				g.Go(func() error { return adapter.Run(gctx) })
			} else {
				log.Warn("slack not configured; serving health endpoint only")
			}
			g.Go(func() error {
				<-gctx.Done()
				return nil
			})

			log.Info("quotebot serving")
			runErr := g.Wait()
			log.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return errors.Join(runErr, a.Shutdown(shutdownCtx))
		},
	}
}
