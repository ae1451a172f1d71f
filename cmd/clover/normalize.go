package main

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/normalizers"
)

func newNormalizeCommand(opts *options) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "normalize [names...]",
		Short: "Print the normalized form of names as JSON lines",
		Long:  "Normalize each argument, or each line of stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := normalizers.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			emit := func(raw string) error {
				name, err := a.normalizer.Normalize(normalizers.RawName{Name: &raw, Kind: kind})
				if err != nil {
					return err
				}
				return enc.Encode(name)
			}

			if len(args) > 0 {
				for _, raw := range args {
					if err := emit(raw); err != nil {
						return err
					}
				}
				return nil
			}
			return eachLine(cmd.InOrStdin(), emit)
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", string(normalizers.KindEmployer), "employer or union")
	return cmd
}

func eachLine(r io.Reader, fn func(string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}
