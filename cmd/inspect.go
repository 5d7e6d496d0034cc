package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/meysamhadeli/corpus/config"
	"github.com/meysamhadeli/corpus/corpus_aggregator"
	"github.com/meysamhadeli/corpus/corpus_aggregator/models"
	"github.com/meysamhadeli/corpus/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [corpus.json]",
	Short: "List the entries of a corpus file.",
	Long: `The 'inspect' subcommand loads a corpus written by 'build' and prints one row per entry
with its size, line count and xxh3 digest. Use --key to print a single entry, or --raw to
print the whole document with syntax highlighting. Without an argument the configured
output path is inspected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		raw, _ := cmd.Flags().GetBool("raw")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %w", err)
		}
		cfg, err := config.LoadConfigs(cmd, cwd)
		if err != nil {
			return err
		}

		path := cfg.Output
		if len(args) == 1 {
			path = args[0]
		}

		return handleInspectCommand(cmd, path, key, raw, cfg.Theme)
	},
}

func init() {
	inspectCmd.Flags().StringP("key", "k", "", "Print the contents of a single entry")
	inspectCmd.Flags().Bool("raw", false, "Print the whole document with syntax highlighting")

	rootCmd.AddCommand(inspectCmd)
}

// loadCorpus reads a corpus file written by build.
func loadCorpus(path string) (*models.Corpus, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	corpus := models.NewCorpus()
	if err := json.Unmarshal(data, corpus); err != nil {
		return nil, nil, fmt.Errorf("failed to decode corpus %s: %w", path, err)
	}
	return corpus, data, nil
}

func handleInspectCommand(cmd *cobra.Command, path, key string, raw bool, theme string) error {
	out := cmd.OutOrStdout()

	corpus, data, err := loadCorpus(path)
	if err != nil {
		return err
	}

	if key != "" {
		value, ok := corpus.Get(key)
		if !ok {
			return fmt.Errorf("no entry %q in %s", key, path)
		}
		_, err := io.WriteString(out, value)
		return err
	}

	if raw {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, data, "", "  "); err != nil {
			return fmt.Errorf("failed to indent corpus: %w", err)
		}
		return utils.HighlightJSON(cmd.Context(), out, pretty.Bytes(), theme)
	}

	return renderCorpusTable(out, corpus)
}

func renderCorpusTable(out io.Writer, corpus *models.Corpus) error {
	data := pterm.TableData{{"Key", "Size", "Lines", "Digest"}}

	for _, key := range corpus.Keys() {
		value, _ := corpus.Get(key)
		data = append(data, []string{
			key,
			humanize.Bytes(uint64(len(value))),
			fmt.Sprint(countLines(value)),
			corpus_aggregator.Digest([]byte(value)),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d entries\n", corpus.Len())
	return nil
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		lines++
	}
	return lines
}
