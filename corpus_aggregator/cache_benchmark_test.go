package corpus_aggregator

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
)

// BenchmarkCacheKeyGeneration measures the xxh3 cache key of a file path
func BenchmarkCacheKeyGeneration(b *testing.B) {
	filePaths := make([]string, 1000)
	charset := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789/_-."
	for i := 0; i < 1000; i++ {
		length := rand.Intn(100) + 20
		path := make([]byte, length)
		for j := range path {
			path[j] = charset[rand.Intn(len(charset))]
		}
		filePaths[i] = string(path)
	}

	fc := &FileCache{cacheDir: b.TempDir()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = fc.generateCacheKey(filePaths[i%1000])
	}
}

// BenchmarkCorpusAggregator_Run measures a full build of a small corpus with and without the read cache
func BenchmarkCorpusAggregator_Run(b *testing.B) {
	inputDir := b.TempDir()
	files := make(map[string]string)
	content := make([]byte, 20000)
	for i := range content {
		content[i] = byte('a' + (i % 26))
	}
	for i := 0; i < 100; i++ {
		files[fmt.Sprintf("work_%03d.txt", i)] = string(content)
	}
	writeFiles(b, inputDir, files)

	for _, enableCache := range []bool{false, true} {
		b.Run(fmt.Sprintf("cache=%v", enableCache), func(b *testing.B) {
			aggregator := newTestAggregator(b, Options{
				InputDir:    inputDir,
				OutputPath:  filepath.Join(b.TempDir(), "corpus.json"),
				EnableCache: enableCache,
				CacheDir:    filepath.Join(b.TempDir(), "cache"),
			})

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := aggregator.Run(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
