package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/meysamhadeli/corpus/config"
	"github.com/meysamhadeli/corpus/constants/lipgloss"
	"github.com/meysamhadeli/corpus/corpus_aggregator"
	"github.com/meysamhadeli/corpus/utils"
	"github.com/spf13/cobra"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the read cache used by 'build --enable_cache'",
	Long: `The 'reset-cache' command removes the cached file contents stored in the cache directory
(default '<input_dir>/.cache'). Use --older-than to only drop stale entries, or --stats to
show what the cache holds without removing anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %w", err)
		}
		cfg, err := config.LoadConfigs(cmd, cwd)
		if err != nil {
			return err
		}

		return handleResetCacheCommand(cmd, cfg.ResolvedCacheDir(), force, stats, olderThan)
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")
	resetCacheCmd.Flags().Duration("older-than", 0, "Only remove entries older than this duration (e.g., 168h)")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(cmd *cobra.Command, cacheDir string, force, showStats bool, olderThan time.Duration) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		fmt.Fprintln(out, lipgloss.Yellow.Render("No cache found at "+cacheDir))
		return nil
	}

	cacheManager, err := corpus_aggregator.NewCacheManager(cacheDir)
	if err != nil {
		return err
	}

	if showStats {
		stats, err := cacheManager.GetCacheStats()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, lipgloss.Info.Render("Cache Statistics:"))
		fmt.Fprintf(out, "  Cache Directory: %s\n", stats.CacheDir)
		fmt.Fprintf(out, "  Cached Files: %d\n", stats.Files)
		fmt.Fprintf(out, "  Total Size: %s\n", humanize.Bytes(uint64(stats.TotalSize)))
		return nil
	}

	if !force {
		confirmed, err := utils.ConfirmPrompt("Are you sure you want to reset the read cache?", bufio.NewReader(cmd.InOrStdin()), out)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(out, lipgloss.Yellow.Render("Cache reset cancelled."))
			return nil
		}
	}

	var removed int
	if olderThan > 0 {
		removed, err = cacheManager.CleanExpiredCache(olderThan)
	} else {
		removed, err = cacheManager.ClearCache()
	}
	if err != nil {
		return fmt.Errorf("error resetting cache: %w", err)
	}

	fmt.Fprintln(out, lipgloss.Green.Render(fmt.Sprintf("✓ Removed %d cache entries", removed)))
	return nil
}
