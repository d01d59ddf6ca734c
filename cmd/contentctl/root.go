package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/formationhub/contentd/internal/app"
	"github.com/formationhub/contentd/internal/config"
	"github.com/formationhub/contentd/internal/content"
	"github.com/formationhub/contentd/internal/logging"
)

// env is the state shared by subcommands once configuration is loaded.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	content *app.Content
}

func (e *env) discover(ctx context.Context) (*content.Snapshot, error) {
	return e.content.Discoverer.Discover(ctx)
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var verbose bool

	root := &cobra.Command{
		Use:           "contentctl",
		Short:         "Inspect, resolve and index blog and tutorial content",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			level := cfg.LogLevel
			switch {
			case verbose:
				level = "debug"
			case level == "":
				level = "warn"
			}
			e.cfg = cfg
			e.logger = logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.Environment, level)

			c, err := app.NewContent(cfg, e.logger)
			if err != nil {
				return err
			}
			e.content = c

			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log discovery at debug level")

	root.AddCommand(
		newIndexCmd(e),
		newListCmd(e),
		newResolveCmd(e),
		newNewCmd(e),
	)

	return root
}
