package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cfgFile = ""
	t.Cleanup(func() { cfgFile = "" })

	cmd := &cobra.Command{Use: "corpus"}
	InitFlags(cmd)
	return cmd
}

func TestLoadConfigs_Defaults(t *testing.T) {
	cwd := t.TempDir()
	cmd := newTestCommand(t)

	cfg, err := LoadConfigs(cmd, cwd)
	require.NoError(t, err)

	assert.Equal(t, cwd, cfg.InputDir)
	assert.Equal(t, "*.txt", cfg.Pattern)
	assert.Equal(t, filepath.Join(cwd, "corpus.json"), cfg.Output)
	assert.True(t, cfg.Sort)
	assert.Equal(t, "overwrite", cfg.Collision)
	assert.Equal(t, "utf-8", cfg.Encoding)
	assert.False(t, cfg.EnableCache)
	assert.Equal(t, filepath.Join(cwd, ".cache"), cfg.ResolvedCacheDir())
	assert.Equal(t, DefaultConfig.Version, cfg.Version)
}

func TestLoadConfigs_FileEnvAndFlags(t *testing.T) {
	cwd := t.TempDir()
	configYaml := "input_dir: works\npattern: \"*.md\"\noutput: out/plays.json\nindent: true\ncollision: relative\n"
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ConfigName+".yml"), []byte(configYaml), 0644))

	t.Setenv("CORPUS_PATTERN", "*.text")
	t.Setenv("CORPUS_MAX_FILE_SIZE", "4096")

	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("output", "/tmp/flag.json"))

	cfg, err := LoadConfigs(cmd, cwd)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "works"), cfg.InputDir)
	assert.Equal(t, "*.text", cfg.Pattern, "env overrides the config file")
	assert.Equal(t, "/tmp/flag.json", cfg.Output, "flags override everything")
	assert.Equal(t, int64(4096), cfg.MaxFileSize)
	assert.True(t, cfg.Indent)
	assert.Equal(t, "relative", cfg.Collision)
}

func TestLoadConfigs_ExplicitConfigFile(t *testing.T) {
	cwd := t.TempDir()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pattern": "*.srt", "recursive": true}`), 0644))

	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("config", path))

	cfg, err := LoadConfigs(cmd, cwd)
	require.NoError(t, err)
	assert.Equal(t, "*.srt", cfg.Pattern)
	assert.True(t, cfg.Recursive)

	require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(cwd, "missing.yml")))
	_, err = LoadConfigs(cmd, cwd)
	assert.Error(t, err)
}

func TestLoadConfigs_Validation(t *testing.T) {
	cases := map[string]string{
		"collision": "merge",
		"encoding":  "no-such-charset",
		"pattern":   "[",
	}

	for flag, value := range cases {
		t.Run(flag, func(t *testing.T) {
			cmd := newTestCommand(t)
			require.NoError(t, cmd.PersistentFlags().Set(flag, value))

			_, err := LoadConfigs(cmd, t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestConfig_AggregatorOptions(t *testing.T) {
	cfg := DefaultConfig
	cfg.InputDir = "/data/works"
	cfg.Output = "/data/corpus.json"
	cfg.ASCIIOnly = true

	options := cfg.AggregatorOptions()
	assert.Equal(t, "/data/works", options.InputDir)
	assert.Equal(t, "/data/corpus.json", options.OutputPath)
	assert.Equal(t, "*.txt", options.Pattern)
	assert.True(t, options.ASCIIOnly)
	assert.Equal(t, filepath.Join("/data/works", ".cache"), options.CacheDir)
}

func TestGetConfigFileType(t *testing.T) {
	assert.Equal(t, "json", GetConfigFileType("a.json"))
	assert.Equal(t, "yaml", GetConfigFileType("a.yml"))
	assert.Equal(t, "yaml", GetConfigFileType("a.yaml"))
	assert.Equal(t, "", GetConfigFileType("a.conf"))
}

func TestLoadConfigs_ExcludesLoadedConfigFile(t *testing.T) {
	cwd := t.TempDir()
	configPath := filepath.Join(cwd, ConfigName+".json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"pattern": "*.json"}`), 0644))

	cfg, err := LoadConfigs(newTestCommand(t), cwd)
	require.NoError(t, err)
	assert.Equal(t, configPath, cfg.ConfigFile)
	assert.Equal(t, []string{configPath}, cfg.AggregatorOptions().ExcludePaths)

	cfg, err = LoadConfigs(newTestCommand(t), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.ConfigFile)
	assert.Empty(t, cfg.AggregatorOptions().ExcludePaths)
}
