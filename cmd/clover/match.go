package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/batch"
)

func newMatchCommand(opts *options) *cobra.Command {
	var (
		passesPath string
		passName   string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run batch matching passes",
		Long: "Run the passes in a passes file, or the one named by --pass. Each pass " +
			"prints a JSON summary. A dry run prints the kept candidates instead of storing them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if passesPath == "" {
				passesPath = opts.cfg.PassesPath
			}
			passes, err := batch.LoadPasses(passesPath)
			if err != nil {
				return err
			}
			if passName != "" {
				pass, err := batch.FindPass(passes, passName)
				if err != nil {
					return err
				}
				passes = []batch.Pass{pass}
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.stop()

			if err := a.start(ctx, startOptions{migrate: opts.cfg.DatabaseMigrateOnStart, services: true}); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, pass := range passes {
				pass.DryRun = pass.DryRun || dryRun
				summary, err := a.matcher.Run(ctx, pass)
				if err != nil {
					return fmt.Errorf("pass %s: %w", pass.Name, err)
				}
				if err := enc.Encode(summary); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&passesPath, "passes", "", "passes file (defaults to BATCH_PASSES_PATH)")
	cmd.Flags().StringVar(&passName, "pass", "", "run only the named pass")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "score without writing candidates or emitting events")
	return cmd
}
