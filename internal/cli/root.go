// Package cli implements the quotebot command line.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/viant/quotevec/config"
	"github.com/viant/quotevec/internal/app"
)

// version can be overridden at build time via:
// go build -ldflags "-X github.com/viant/quotevec/internal/cli.version=1.2.3"
var version = "0.3.0"

type options struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the quotebot command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "quotebot",
		Short:         "Semantic quote store and chat bot",
		Long:          color.CyanString("quotebot") + " stores quotes as embeddings and answers chat messages with the most similar one.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (JSON); defaults to $"+config.PathEnv)
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newAddCmd(opts),
		newListCmd(opts),
		newRemoveCmd(opts),
		newQueryCmd(opts),
		newCountCmd(opts),
		newRandomCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newReindexCmd(opts),
		newResetCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads configuration and configures logging.
func (o *options) load() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	closer, err := app.ConfigureLogging(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

// withApp boots the embedder and store for a one-shot command and shuts
// them down afterwards.
func (o *options) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, closer, err := o.load()
	if err != nil {
		return err
	}
	defer closer.Close()
	cfg.Health.Addr = ""

	a, err := app.Build(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.Boot(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown failed")
		}
	}()
	return fn(ctx, a)
}
