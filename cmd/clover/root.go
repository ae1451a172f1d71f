package main

import (
	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/logging"
)

// options is the state shared by every subcommand
type options struct {
	envFile string
	cfg     *config.Config
	logger  ectologger.Logger
	zap     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "clover",
		Short: "Normalize and match organization names in olms_multiyear",
		Long: "clover canonicalizes employer and union names, scores candidate pairs " +
			"and runs batch matching passes that feed a human review queue.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			logger, zapLogger, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
			if err != nil {
				return err
			}
			opts.cfg, opts.logger, opts.zap = cfg, logger, zapLogger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.zap != nil {
				_ = opts.zap.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	cmd.AddCommand(
		newServeCommand(opts),
		newMatchCommand(opts),
		newNormalizeCommand(opts),
		newTablesCommand(opts),
		newMigrateCommand(opts),
	)
	return cmd
}
