package main

import (
	"fmt"

	"github.com/seijikun/subtile"
	"github.com/spf13/cobra"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>...",
		Short: "Detect the subtitle format of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, path := range args {
				f, err := subtile.ProbeFile(path)
				if err != nil {
					return err
				}
				rows = append(rows, []string{path, f.String()})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"File", "Format"}, rows, nil))
			return nil
		},
	}
}
