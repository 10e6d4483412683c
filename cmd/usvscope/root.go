package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "usvscope",
		Short:         "Find ultrasonic vocalisations in recordings and render their spectrograms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfigLoad"] == "true" {
				return nil
			}
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")
	f.StringVarP(&ctx.flags.quality, "quality", "q", "", "Spectrogram quality: low, medium or high")
	f.BoolVar(&ctx.flags.filteredOnly, "filtered-only", false, "Skip recordings without a detected call and crop long ones around it")
	f.Float64Var(&ctx.flags.freqMin, "freq-min", 0, "Lower edge of the analysis band in Hz")
	f.Float64Var(&ctx.flags.freqMax, "freq-max", 0, "Upper edge of the analysis band in Hz")
	f.StringVarP(&ctx.flags.out, "out", "o", "", "Directory for rendered images")
	f.BoolVar(&ctx.flags.skipExisting, "skip-existing", false, "Leave recordings whose image already exists untouched")
	f.BoolVar(&ctx.flags.thumbnails, "thumbnails", false, "Also write a small quick-look image per recording")
	f.StringVar(&ctx.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
