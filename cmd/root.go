package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/meysamhadeli/corpus/config"
	"github.com/meysamhadeli/corpus/corpus_aggregator"
	"github.com/meysamhadeli/corpus/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// RootDependencies holds what every subcommand needs
type RootDependencies struct {
	Cwd        string
	Config     *config.Config
	Logger     *pterm.Logger
	Aggregator *corpus_aggregator.CorpusAggregator
}

var rootCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Aggregate a directory of text files into a single JSON corpus.",
	Long: `corpus collects every file matching a glob pattern in a directory, reads each one as text
and writes one JSON object mapping file names to their contents. The output is written
atomically: if any file cannot be read, nothing is written.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultConfig.Version)
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command with ctx, which is cancelled on Ctrl+C by the caller.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// handleRootCommand loads the configuration and builds the shared dependencies.
func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	cfg, err := config.LoadConfigs(cmd, cwd)
	if err != nil {
		return nil, err
	}

	logger := utils.NewLogger(cfg.Verbose, cmd.ErrOrStderr())

	aggregator, err := corpus_aggregator.NewCorpusAggregator(cfg.AggregatorOptions(), logger)
	if err != nil {
		return nil, err
	}

	return &RootDependencies{
		Cwd:        cwd,
		Config:     cfg,
		Logger:     logger,
		Aggregator: aggregator,
	}, nil
}
