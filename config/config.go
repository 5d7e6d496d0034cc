package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meysamhadeli/corpus/corpus_aggregator"
	"github.com/meysamhadeli/corpus/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Version     string `mapstructure:"version"`
	InputDir    string `mapstructure:"input_dir"`
	Pattern     string `mapstructure:"pattern"`
	Output      string `mapstructure:"output"`
	Recursive   bool   `mapstructure:"recursive"`
	Sort        bool   `mapstructure:"sort"`
	Collision   string `mapstructure:"collision"`
	Encoding    string `mapstructure:"encoding"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
	Indent      bool   `mapstructure:"indent"`
	ASCIIOnly   bool   `mapstructure:"ascii_only"`
	EnableCache bool   `mapstructure:"enable_cache"`
	CacheDir    string `mapstructure:"cache_dir"`
	Theme       string `mapstructure:"theme"`
	Verbose     bool   `mapstructure:"verbose"`

	// ConfigFile is the configuration file that was loaded, if any.
	ConfigFile string `mapstructure:"-"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:     "1.0.0",
	InputDir:    ".",
	Pattern:     "*.txt",
	Output:      "corpus.json",
	Recursive:   false,
	Sort:        true,
	Collision:   corpus_aggregator.CollisionOverwrite,
	Encoding:    "utf-8",
	MaxFileSize: 0,
	Indent:      false,
	ASCIIOnly:   false,
	EnableCache: false,
	CacheDir:    "",
	Theme:       "dracula",
	Verbose:     false,
}

// EnvPrefix is prepended to every environment variable, e.g. CORPUS_INPUT_DIR.
const EnvPrefix = "CORPUS"

// ConfigName is the base name of the configuration file looked up in the working directory.
const ConfigName = "corpus-config"

// configKeys lists every key that can be set from flags, env and the config file.
var configKeys = []string{
	"input_dir",
	"pattern",
	"output",
	"recursive",
	"sort",
	"collision",
	"encoding",
	"max_file_size",
	"indent",
	"ascii_only",
	"enable_cache",
	"cache_dir",
	"theme",
	"verbose",
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs resolves the configuration from defaults, config file, environment
// variables and CLI flags, in increasing priority.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	bindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if GetConfigFileType(cfgFile) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.ConfigFile = v.ConfigFileUsed()
	config.resolvePaths(cwd)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("input_dir", DefaultConfig.InputDir)
	v.SetDefault("pattern", DefaultConfig.Pattern)
	v.SetDefault("output", DefaultConfig.Output)
	v.SetDefault("recursive", DefaultConfig.Recursive)
	v.SetDefault("sort", DefaultConfig.Sort)
	v.SetDefault("collision", DefaultConfig.Collision)
	v.SetDefault("encoding", DefaultConfig.Encoding)
	v.SetDefault("max_file_size", DefaultConfig.MaxFileSize)
	v.SetDefault("indent", DefaultConfig.Indent)
	v.SetDefault("ascii_only", DefaultConfig.ASCIIOnly)
	v.SetDefault("enable_cache", DefaultConfig.EnableCache)
	v.SetDefault("cache_dir", DefaultConfig.CacheDir)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("verbose", DefaultConfig.Verbose)
}

// bindEnv explicitly binds CORPUS_* environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
}

// bindFlags binds the CLI flags to configuration values.
// Only flags the user actually set override lower-priority sources.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := rootCmd.Root().PersistentFlags()
	for _, key := range configKeys {
		if flag := flags.Lookup(key); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().StringP("input_dir", "i", DefaultConfig.InputDir, "Directory containing the text files to aggregate.")
	rootCmd.PersistentFlags().StringP("pattern", "p", DefaultConfig.Pattern, "Glob pattern matched against file names (e.g., '*.txt').")
	rootCmd.PersistentFlags().StringP("output", "o", DefaultConfig.Output, "Path of the JSON corpus to write; an existing file is replaced.")
	rootCmd.PersistentFlags().BoolP("recursive", "r", DefaultConfig.Recursive, "Also match files in subdirectories of the input directory.")
	rootCmd.PersistentFlags().Bool("sort", DefaultConfig.Sort, "Sort discovered files by path so the output is reproducible.")
	rootCmd.PersistentFlags().String("collision", DefaultConfig.Collision, "What to do when two files share a base name: 'overwrite' (last wins), 'error', or 'relative' (key by relative path).")
	rootCmd.PersistentFlags().String("encoding", DefaultConfig.Encoding, "Text encoding of the input files (e.g., 'utf-8', 'latin1', 'windows-1252').")
	rootCmd.PersistentFlags().Int64("max_file_size", DefaultConfig.MaxFileSize, "Fail when a matched file is larger than this many bytes (0 disables the limit).")
	rootCmd.PersistentFlags().Bool("indent", DefaultConfig.Indent, "Pretty-print the JSON output.")
	rootCmd.PersistentFlags().Bool("ascii_only", DefaultConfig.ASCIIOnly, "Escape every non-ASCII character in the JSON output as \\uXXXX.")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Cache decoded file contents between runs.")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.CacheDir, "Directory of the read cache (default '<input_dir>/.cache').")
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Syntax highlighting theme used by 'inspect --raw' (e.g., 'dracula', 'monokai').")
	rootCmd.PersistentFlags().BoolP("verbose", "V", DefaultConfig.Verbose, "Print debug logs to stderr.")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// Validate checks the values that cannot be caught by flag parsing.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return fmt.Errorf("input_dir must not be empty")
	}
	if strings.TrimSpace(c.Pattern) == "" {
		return fmt.Errorf("pattern must not be empty")
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
	}
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output must not be empty")
	}
	if !corpus_aggregator.ValidCollision(c.Collision) {
		return fmt.Errorf("invalid collision policy %q (want overwrite, error or relative)", c.Collision)
	}
	if _, err := utils.NewTextDecoder(c.Encoding); err != nil {
		return err
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative")
	}
	return nil
}

// resolvePaths makes relative paths relative to cwd.
func (c *Config) resolvePaths(cwd string) {
	resolve := func(path string) string {
		if path == "" || filepath.IsAbs(path) || cwd == "" {
			return path
		}
		return filepath.Join(cwd, path)
	}
	c.InputDir = resolve(c.InputDir)
	c.Output = resolve(c.Output)
	c.CacheDir = resolve(c.CacheDir)
	c.ConfigFile = resolve(c.ConfigFile)
}

// ResolvedCacheDir returns the cache directory, defaulting to <input_dir>/.cache.
func (c *Config) ResolvedCacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(c.InputDir, ".cache")
}

// AggregatorOptions converts the configuration into aggregator options.
// The loaded config file is excluded from discovery.
func (c *Config) AggregatorOptions() corpus_aggregator.Options {
	var excluded []string
	if c.ConfigFile != "" {
		excluded = append(excluded, c.ConfigFile)
	}
	return corpus_aggregator.Options{
		InputDir:    c.InputDir,
		Pattern:     c.Pattern,
		OutputPath:  c.Output,
		Recursive:   c.Recursive,
		Sort:        c.Sort,
		Collision:   c.Collision,
		Encoding:    c.Encoding,
		MaxFileSize: c.MaxFileSize,
		Indent:      c.Indent,
		ASCIIOnly:   c.ASCIIOnly,
		EnableCache: c.EnableCache,
		CacheDir:    c.ResolvedCacheDir(),

		ExcludePaths: excluded,
	}
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}
