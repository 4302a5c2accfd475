package main

import (
	"fmt"

	"github.com/seijikun/subtile"
	"github.com/spf13/cobra"
)

func newPGSCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pgs <file.sup>",
		Short: "List the events of a PGS stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := subtile.OpenPGS(cmd.Context(), args[0],
				subtile.PGSParserOptLogger(ctx.logger),
				subtile.PGSParserOptPolicy(ctx.policy()),
			)
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			if n, ok := p.SizeHint(); ok {
				fmt.Fprintf(out, "%d events expected\n", n)
			}
			return ctx.listEvents(out, p.Events())
		},
	}
}
