package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "subtile-probe",
		Short:         "Inspect and dump bitmap subtitles (VobSub, PGS)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			ctx.teardown()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug messages")
	rootCmd.PersistentFlags().StringVar(&flags.profile, "profile", "", "Write a profile to the current directory (cpu or mem)")
	rootCmd.PersistentFlags().BoolVar(&flags.timingOnly, "timing-only", false, "Skip image decoding")
	rootCmd.PersistentFlags().StringVarP(&flags.dumpDir, "dump", "d", "", "Directory to write one PNG per event to")
	rootCmd.PersistentFlags().BoolVar(&flags.ocr, "ocr", false, "Dump OCR ready grayscale images instead of colored ones")

	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newPGSCommand(ctx))
	rootCmd.AddCommand(newVobSubCommand(ctx))

	return rootCmd
}
