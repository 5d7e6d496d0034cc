package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/meysamhadeli/corpus/constants/lipgloss"
	"github.com/meysamhadeli/corpus/corpus_aggregator/models"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Read every matching file and write the JSON corpus.",
	Long: `The 'build' subcommand discovers the files matching the configured pattern in the input
directory, reads each of them as text and writes a single JSON object keyed by file name
to the output path. Any discovery, read or write error aborts the run without output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleBuildCommand(cmd.Context(), rootDependencies, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func handleBuildCommand(ctx context.Context, rootDependencies *RootDependencies, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	spinner, _ := pterm.DefaultSpinner.
		WithWriter(out).
		WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100 * time.Millisecond).
		WithRemoveWhenDone(true).
		Start("Building corpus...")

	result, err := rootDependencies.Aggregator.Run(ctx)

	if spinner != nil {
		_ = spinner.Stop()
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(out, lipgloss.Green.Render(fmt.Sprintf("✔️ Wrote %d entries to %s", result.Keys, result.OutputPath)))
	return renderBuildSummary(out, result)
}

func renderBuildSummary(out io.Writer, result *models.BuildResult) error {
	data := pterm.TableData{
		{"Files", "Keys", "Overwritten", "Read", "Written", "Digest", "Duration"},
		{
			fmt.Sprint(len(result.Files)),
			fmt.Sprint(result.Keys),
			fmt.Sprint(result.Overwrites),
			humanize.Bytes(uint64(result.BytesRead)),
			humanize.Bytes(uint64(result.OutputBytes)),
			result.Digest,
			result.Duration.Round(time.Millisecond).String(),
		},
	}

	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
		return err
	}

	if result.CacheHits+result.CacheMisses > 0 {
		fmt.Fprintln(out, lipgloss.Gray.Render(fmt.Sprintf("cache: %d hits, %d misses", result.CacheHits, result.CacheMisses)))
	}
	return nil
}
