package corpus_aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/meysamhadeli/corpus/corpus_aggregator/contracts"
	"github.com/meysamhadeli/corpus/corpus_aggregator/models"
	"github.com/meysamhadeli/corpus/utils"
	"github.com/pterm/pterm"
	"github.com/zeebo/xxh3"
)

// Collision policies for files sharing a key
const (
	CollisionOverwrite = "overwrite"
	CollisionFail      = "error"
	CollisionRelative  = "relative"
)

// Options configures a CorpusAggregator.
type Options struct {
	InputDir    string
	Pattern     string
	OutputPath  string
	Recursive   bool
	Sort        bool
	Collision   string
	Encoding    string
	MaxFileSize int64
	Indent      bool
	ASCIIOnly   bool
	EnableCache bool
	CacheDir    string

	// ExcludePaths are never part of the corpus, e.g. the loaded config file.
	ExcludePaths []string
}

// CorpusAggregator collects text files into a single JSON corpus.
type CorpusAggregator struct {
	options      Options
	decoder      *utils.TextDecoder
	cacheManager *CacheManager
	logger       *pterm.Logger
}

var _ contracts.ICorpusAggregator = (*CorpusAggregator)(nil)

// ValidCollision reports whether policy is a known collision policy.
func ValidCollision(policy string) bool {
	switch policy {
	case CollisionOverwrite, CollisionFail, CollisionRelative:
		return true
	}
	return false
}

// NewCorpusAggregator validates options and initializes a CorpusAggregator.
// A cache that cannot be initialized is disabled with a warning.
func NewCorpusAggregator(options Options, logger *pterm.Logger) (*CorpusAggregator, error) {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	if strings.TrimSpace(options.InputDir) == "" {
		return nil, fmt.Errorf("input directory is required")
	}
	if strings.TrimSpace(options.Pattern) == "" {
		return nil, fmt.Errorf("file pattern is required")
	}
	if strings.TrimSpace(options.OutputPath) == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if _, err := filepath.Match(options.Pattern, ""); err != nil {
		return nil, &DiscoveryError{Dir: options.InputDir, Pattern: options.Pattern, Err: err}
	}
	if filepath.IsAbs(options.Pattern) || strings.HasPrefix(filepath.ToSlash(options.Pattern), "../") || strings.Contains(filepath.ToSlash(options.Pattern), "/../") {
		return nil, &DiscoveryError{Dir: options.InputDir, Pattern: options.Pattern, Err: fmt.Errorf("pattern must stay inside the input directory")}
	}
	if options.Collision == "" {
		options.Collision = CollisionOverwrite
	}
	if !ValidCollision(options.Collision) {
		return nil, fmt.Errorf("unknown collision policy %q", options.Collision)
	}
	if options.MaxFileSize < 0 {
		return nil, fmt.Errorf("max file size must not be negative")
	}

	decoder, err := utils.NewTextDecoder(options.Encoding)
	if err != nil {
		return nil, err
	}

	aggregator := &CorpusAggregator{
		options: options,
		decoder: decoder,
		logger:  logger,
	}

	if options.EnableCache {
		if aggregator.options.CacheDir == "" {
			aggregator.options.CacheDir = filepath.Join(options.InputDir, ".cache")
		}
		cacheManager, err := NewCacheManager(aggregator.options.CacheDir)
		if err != nil {
			logger.Warn("read cache disabled", logger.Args("error", err))
		} else {
			aggregator.cacheManager = cacheManager
		}
	}

	return aggregator, nil
}

// CacheManager returns the read cache, or nil when caching is disabled.
func (aggregator *CorpusAggregator) CacheManager() *CacheManager {
	return aggregator.cacheManager
}

// Discover lists the files under the input directory matching the pattern. Patterns
// without a separator match base names; "sub/*.txt" matches relative paths.
func (aggregator *CorpusAggregator) Discover(ctx context.Context) ([]string, error) {
	dir := aggregator.options.InputDir
	pattern := aggregator.options.Pattern

	discoveryErr := func(err error) error {
		return &DiscoveryError{Dir: dir, Pattern: pattern, Err: err}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, discoveryErr(err)
	}
	if !info.IsDir() {
		return nil, discoveryErr(fmt.Errorf("not a directory"))
	}

	ignorePatterns, err := utils.GetIgnorePatterns(dir)
	if err != nil {
		return nil, discoveryErr(err)
	}

	var paths []string
	if aggregator.options.Recursive || patternDepth(pattern) > 1 {
		paths, err = aggregator.walk(ctx, dir, ignorePatterns)
	} else {
		paths, err = aggregator.list(ctx, dir, ignorePatterns)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, discoveryErr(err)
	}

	if aggregator.options.Sort {
		sort.Strings(paths)
	}

	aggregator.logger.Debug("discovered files", aggregator.logger.Args("dir", dir, "pattern", pattern, "count", len(paths)))

	return paths, nil
}

// list matches the entries of dir only.
func (aggregator *CorpusAggregator) list(ctx context.Context, dir string, ignorePatterns []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, entry.Name())
		if aggregator.accept(path, entry.Name(), entry, ignorePatterns) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// walk matches regular files in dir and all of its subdirectories.
func (aggregator *CorpusAggregator) walk(ctx context.Context, dir string, ignorePatterns []string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relativePath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if relativePath == "." {
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)

		if d.IsDir() {
			if aggregator.isSkippedDir(path, relativePath, d.Name(), ignorePatterns) {
				return filepath.SkipDir
			}
			// a pattern with n segments never matches below depth n
			if depth := patternDepth(aggregator.options.Pattern); depth > 1 && strings.Count(relativePath, "/")+1 >= depth {
				return filepath.SkipDir
			}
			return nil
		}

		if aggregator.accept(path, relativePath, d, ignorePatterns) {
			paths = append(paths, path)
		}
		return nil
	})

	return paths, err
}

func (aggregator *CorpusAggregator) isSkippedDir(path, relativePath, name string, ignorePatterns []string) bool {
	if isHidden(name) || utils.IsDefaultIgnored(relativePath) || utils.IsIgnored(relativePath+"/", ignorePatterns) {
		return true
	}
	return aggregator.options.CacheDir != "" && samePath(path, aggregator.options.CacheDir)
}

// accept decides whether a directory entry belongs to the corpus.
func (aggregator *CorpusAggregator) accept(path, relativePath string, entry fs.DirEntry, ignorePatterns []string) bool {
	name := entry.Name()

	if entry.IsDir() {
		return false
	}
	// hidden files only match patterns that start with a dot
	if isHidden(name) && !isHidden(filepath.Base(aggregator.options.Pattern)) {
		return false
	}
	if !aggregator.matchPattern(relativePath, name) {
		return false
	}
	if utils.IsDefaultIgnored(relativePath) || utils.IsIgnored(relativePath, ignorePatterns) {
		aggregator.logger.Debug("skipping ignored file", aggregator.logger.Args("path", path))
		return false
	}
	if samePath(path, aggregator.options.OutputPath) {
		aggregator.logger.Debug("skipping output file", aggregator.logger.Args("path", path))
		return false
	}
	for _, excluded := range aggregator.options.ExcludePaths {
		if samePath(path, excluded) {
			aggregator.logger.Debug("skipping excluded file", aggregator.logger.Args("path", path))
			return false
		}
	}

	if entry.Type()&fs.ModeSymlink != 0 {
		target, err := os.Stat(path)
		return err == nil && target.Mode().IsRegular()
	}
	return entry.Type().IsRegular()
}

// matchPattern matches the base name, or the slash-separated relative path when the
// pattern names subdirectories such as "acts/*.txt".
func (aggregator *CorpusAggregator) matchPattern(relativePath, name string) bool {
	pattern := aggregator.options.Pattern
	if patternDepth(pattern) > 1 {
		match, _ := filepath.Match(filepath.FromSlash(pattern), filepath.FromSlash(relativePath))
		return match
	}
	match, _ := filepath.Match(pattern, name)
	return match
}

// patternDepth returns the number of path segments in pattern.
func patternDepth(pattern string) int {
	return strings.Count(filepath.ToSlash(strings.Trim(pattern, "/")), "/") + 1
}

// Read returns the full contents of the file at path as text.
func (aggregator *CorpusAggregator) Read(path string) (string, error) {
	text, _, err := aggregator.readFile(path)
	return text, err
}

// readFile returns the decoded text of path and the file it was read from.
func (aggregator *CorpusAggregator) readFile(path string) (string, models.InputFile, error) {
	file := models.InputFile{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return "", file, &ReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", file, &ReadError{Path: path, Err: fmt.Errorf("is a directory")}
	}
	if limit := aggregator.options.MaxFileSize; limit > 0 && info.Size() > limit {
		return "", file, &ReadError{Path: path, Err: fmt.Errorf("file size %d exceeds limit %d", info.Size(), limit)}
	}
	file.Size = info.Size()
	file.ModTime = info.ModTime()

	if aggregator.cacheManager != nil {
		if text, found := aggregator.cacheManager.GetText(path, aggregator.decoder.Name()); found {
			return text, file, nil
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", file, &ReadError{Path: path, Err: err}
	}
	file.Size = int64(len(content))

	text, err := aggregator.decoder.Decode(content)
	if err != nil {
		return "", file, &ReadError{Path: path, Err: err}
	}

	// stamped with the stat taken before the read, so a file changed meanwhile misses next time
	if aggregator.cacheManager != nil {
		if err := aggregator.cacheManager.SetText(path, aggregator.decoder.Name(), text, info); err != nil {
			aggregator.logger.Warn("failed to cache file", aggregator.logger.Args("path", path, "error", err))
		}
	}

	return text, file, nil
}

// Key returns the corpus key for path under the configured collision policy.
func (aggregator *CorpusAggregator) Key(path string) string {
	if aggregator.options.Collision == CollisionRelative {
		if rel, err := filepath.Rel(aggregator.options.InputDir, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

// Aggregate reads every path in order and builds the corpus.
func (aggregator *CorpusAggregator) Aggregate(ctx context.Context, paths []string) (*models.Corpus, error) {
	corpus, _, err := aggregator.aggregate(ctx, paths)
	return corpus, err
}

func (aggregator *CorpusAggregator) aggregate(ctx context.Context, paths []string) (*models.Corpus, *models.BuildResult, error) {
	corpus := models.NewCorpus()
	result := &models.BuildResult{}
	sources := make(map[string]string, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		key := aggregator.Key(path)
		if first, exists := sources[key]; exists && aggregator.options.Collision == CollisionFail {
			return nil, nil, &CollisionError{Key: key, First: first, Conflict: path}
		}

		text, file, err := aggregator.readFile(path)
		if err != nil {
			return nil, nil, err
		}
		file.Key = key

		if corpus.Set(key, text) {
			result.Overwrites++
			aggregator.logger.Warn("overwriting corpus entry", aggregator.logger.Args("key", key, "previous", sources[key], "path", path))
		}
		sources[key] = path

		result.Files = append(result.Files, file)
		result.BytesRead += file.Size

		aggregator.logger.Debug("read file", aggregator.logger.Args("path", path, "key", key, "bytes", file.Size))
	}

	result.Keys = corpus.Len()
	return corpus, result, nil
}

// SerializeAndWrite encodes corpus as one JSON object and atomically replaces outputPath.
// It returns the number of bytes written and the xxh3 digest of the document.
func (aggregator *CorpusAggregator) SerializeAndWrite(corpus *models.Corpus, outputPath string) (int64, string, error) {
	if corpus == nil {
		corpus = models.NewCorpus()
	}

	data, err := aggregator.Encode(corpus)
	if err != nil {
		return 0, "", &WriteError{Path: outputPath, Err: err}
	}

	if err := writeAtomic(outputPath, data, 0644); err != nil {
		return 0, "", &WriteError{Path: outputPath, Err: err}
	}

	return int64(len(data)), Digest(data), nil
}

// Encode renders corpus using the configured indent and escaping options.
func (aggregator *CorpusAggregator) Encode(corpus *models.Corpus) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if aggregator.options.Indent {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(corpus); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	data := buf.Bytes()
	if aggregator.options.ASCIIOnly {
		data = EscapeNonASCII(data)
	}
	return data, nil
}

// Run discovers, aggregates and writes the corpus in one pass.
// Nothing is written unless every file was read.
func (aggregator *CorpusAggregator) Run(ctx context.Context) (*models.BuildResult, error) {
	start := time.Now()

	paths, err := aggregator.Discover(ctx)
	if err != nil {
		return nil, err
	}

	corpus, result, err := aggregator.aggregate(ctx, paths)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	written, digest, err := aggregator.SerializeAndWrite(corpus, aggregator.options.OutputPath)
	if err != nil {
		return nil, err
	}

	result.OutputPath = aggregator.options.OutputPath
	result.OutputBytes = written
	result.Digest = digest
	result.Duration = time.Since(start)

	if aggregator.cacheManager != nil {
		perf := aggregator.cacheManager.GetPerformanceStats()
		result.CacheHits = perf.CacheHits
		result.CacheMisses = perf.CacheMisses
	}

	aggregator.logger.Info("corpus written", aggregator.logger.Args(
		"output", result.OutputPath,
		"keys", result.Keys,
		"bytes", result.OutputBytes,
		"duration", result.Duration.Round(time.Millisecond),
	))

	return result, nil
}

// Digest returns the hex xxh3 hash of data.
func Digest(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// EscapeNonASCII rewrites every non-ASCII rune of a JSON document as a \uXXXX escape,
// using surrogate pairs outside the basic multilingual plane.
func EscapeNonASCII(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]

		if r < utf8.RuneSelf {
			buf.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&buf, `\u%04x\u%04x`, r1, r2)
			continue
		}
		fmt.Fprintf(&buf, `\u%04x`, r)
	}

	return buf.Bytes()
}

// writeAtomic writes data to a temporary file next to dest and renames it into place.
func writeAtomic(dest string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".corpus-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = os.Chmod(tmpPath, perm)

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
