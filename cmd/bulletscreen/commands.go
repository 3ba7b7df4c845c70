package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"BulletScreen/internal/app"
	"BulletScreen/internal/config"
	"BulletScreen/internal/logging"
	"BulletScreen/internal/usecase"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "bulletscreen",
		Short:         "Fetch video bullet screen (danmaku) comments",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (defaults to $BULLETSCREEN_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging level (debug, info, warn, error)")

	root.AddCommand(newServeCommand(opts), newFetchCommand(opts))
	return root
}

func (o *rootOptions) load() (config.Config, *slog.Logger) {
	var cfg config.Config
	if o.configPath != "" {
		cfg = config.LoadFile(o.configPath)
	} else {
		cfg = config.Load()
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, nil)
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /bulletscreen over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := opts.load()
			application := app.New(cfg, logger)

			if err := application.Serve(cmd.Context()); err != nil {
				logger.Error("application stopped", "error", err)
				return err
			}
			return nil
		},
	}
}

func newFetchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <video-page-url>",
		Short: "Fetch the bullet screen of one video and print the JSON envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := opts.load()
			application := app.New(cfg, logger)

			body, err := application.Fetch(cmd.Context(), args[0])
			if err != nil {
				logger.Debug("fetch failed", "error", err)
				return errors.New(usecase.FailureMessage(err))
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return err
		},
	}
}
