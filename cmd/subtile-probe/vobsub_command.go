package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/seijikun/subtile"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

func newVobSubCommand(ctx *commandContext) *cobra.Command {
	var track int
	var palette string

	cmd := &cobra.Command{
		Use:   "vobsub <file.idx|file.sub>",
		Short: "List the tracks and events of a VobSub pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := subtile.ProbeFile(args[0])
			if err != nil {
				return err
			}
			opts := []func(*subtile.VobSubParser){
				subtile.VobSubParserOptLogger(ctx.logger),
				subtile.VobSubParserOptPolicy(ctx.policy()),
				subtile.VobSubParserOptTrack(track),
			}

			out := cmd.OutOrStdout()
			switch format {
			case subtile.FormatVobSubIdx:
				idx, err := subtile.OpenVobSubIndex(args[0], ctx.logger)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTracks(out, idx))

				p, err := subtile.OpenVobSub(cmd.Context(), args[0], opts...)
				if err != nil {
					return err
				}
				defer p.Close()
				return ctx.listEvents(out, p.Events())
			case subtile.FormatVobSubSub:
				var pal *subtile.Palette
				if palette != "" {
					if pal, err = subtile.ParseVobSubPalette(palette); err != nil {
						return err
					}
				}
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				p, err := subtile.NewVobSubStreamParser(cmd.Context(), f, pal, opts...)
				if err != nil {
					return err
				}
				return ctx.listEvents(out, p.Events())
			default:
				return fmt.Errorf("%s is a %s file, not a VobSub one", args[0], format)
			}
		},
	}

	cmd.Flags().IntVarP(&track, "track", "t", -1, "Track index (defaults to the idx langidx)")
	cmd.Flags().StringVar(&palette, "palette", "", "Palette to use for a sub file without idx (16 comma separated RGB hex colors)")
	return cmd
}

func renderTracks(out io.Writer, idx *subtile.VobSubIndex) string {
	rows := make([][]string, 0, len(idx.Tracks))
	for _, t := range idx.Tracks {
		name := t.Language
		if tag, err := language.Parse(t.Language); err == nil {
			name = display.English.Tags().Name(tag)
		}
		def := ""
		if t.Index == idx.LangIdx {
			def = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(t.Index), t.Language, name, strconv.Itoa(len(t.Entries)), def})
	}
	return renderTable(out, []string{"Track", "Id", "Language", "Entries", "Default"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft})
}
