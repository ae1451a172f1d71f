package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newTablesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Dump the effective match tables as YAML",
		Long: "Dump the default tables merged with MATCH_TABLES_OVERRIDE_PATH. The output " +
			"is a valid override file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.normalizer.Tables()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
