package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.stop()

			if err := a.start(cmd.Context(), startOptions{migrate: true}); err != nil {
				return err
			}
			opts.logger.Info("Migrations applied")
			return nil
		},
	}
}
