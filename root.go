package main

import (
	"github.com/spf13/cobra"

	"github.com/video-stream/clipper/internal/config"
	xlog "github.com/video-stream/clipper/internal/log"
)

// commandContext loads the configuration once for whichever subcommand runs.
type commandContext struct {
	configFlag *string
	logLevel   *string
	cfg        *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	if *c.logLevel != "" {
		cfg.LogLevel = *c.logLevel
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "clipper"})
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag, logLevel string
	ctx := &commandContext{configFlag: &configFlag, logLevel: &logLevel}

	serveCmd := newServeCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "clipper",
		Short:         "Video clip and subtitle extraction service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		// Without a subcommand the server runs, matching the container entrypoint.
		RunE: serveCmd.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $CLIPPER_CONFIG or ./clipper.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newCleanupCommand(ctx))
	rootCmd.AddCommand(newDepsCommand(ctx))

	return rootCmd
}
