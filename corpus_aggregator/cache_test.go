package corpus_aggregator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test cache manager setup and basic operations
func TestCacheManager_BasicOperations(t *testing.T) {
	tempDir := t.TempDir()

	cacheManager, err := NewCacheManager(filepath.Join(tempDir, "cache"))
	require.NoError(t, err)
	require.NotNil(t, cacheManager)

	testFile := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("test content"), 0644))

	text, found := cacheManager.GetText(testFile, "utf-8")
	assert.False(t, found)
	assert.Empty(t, text)

	require.NoError(t, cacheManager.SetText(testFile, "utf-8", "test content", nil))

	text, found = cacheManager.GetText(testFile, "utf-8")
	assert.True(t, found)
	assert.Equal(t, "test content", text)

	// entries decoded with another encoding are not reused
	_, found = cacheManager.GetText(testFile, "windows-1252")
	assert.False(t, found)

	perf := cacheManager.GetPerformanceStats()
	assert.Equal(t, int64(3), perf.TotalRequests)
	assert.Equal(t, int64(1), perf.CacheHits)
	assert.Equal(t, int64(2), perf.CacheMisses)
	assert.InDelta(t, 33.3, perf.HitRate, 0.1)

	cacheManager.ResetPerformanceStats()
	assert.Equal(t, int64(0), cacheManager.GetPerformanceStats().TotalRequests)
}

// Test cache invalidation when file is modified
func TestCacheManager_FileInvalidation(t *testing.T) {
	tempDir := t.TempDir()

	cacheManager, err := NewCacheManager(filepath.Join(tempDir, "cache"))
	require.NoError(t, err)

	testFile := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("original content"), 0644))
	require.NoError(t, cacheManager.SetText(testFile, "utf-8", "original content", nil))

	_, found := cacheManager.GetText(testFile, "utf-8")
	assert.True(t, found)

	// Wait a moment to ensure different modification time
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(testFile, []byte("modified content, longer"), 0644))

	text, found := cacheManager.GetText(testFile, "utf-8")
	assert.False(t, found)
	assert.Empty(t, text)

	stats, err := cacheManager.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Files, "stale entry is removed")
}

func TestCacheManager_DeletedSourceIsAMiss(t *testing.T) {
	tempDir := t.TempDir()

	cacheManager, err := NewCacheManager(filepath.Join(tempDir, "cache"))
	require.NoError(t, err)

	testFile := filepath.Join(tempDir, "gone.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("soon gone"), 0644))
	require.NoError(t, cacheManager.SetText(testFile, "utf-8", "soon gone", nil))
	require.NoError(t, os.Remove(testFile))

	_, found := cacheManager.GetText(testFile, "utf-8")
	assert.False(t, found)

	assert.Error(t, cacheManager.SetText(testFile, "utf-8", "soon gone", nil))
}

func TestCacheManager_StatsAndClear(t *testing.T) {
	tempDir := t.TempDir()
	cacheDir := filepath.Join(tempDir, "cache")

	cacheManager, err := NewCacheManager(cacheDir)
	require.NoError(t, err)
	assert.Equal(t, cacheDir, cacheManager.CacheDir())

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		path := filepath.Join(tempDir, name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0644))
		require.NoError(t, cacheManager.SetText(path, "utf-8", name, nil))
	}

	stats, err := cacheManager.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)
	assert.Greater(t, stats.TotalSize, int64(0))

	removed, err := cacheManager.CleanExpiredCache(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = cacheManager.CleanExpiredCache(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	require.NoError(t, cacheManager.SetText(filepath.Join(tempDir, "a.txt"), "utf-8", "a.txt", nil))
	removed, err = cacheManager.ClearCache()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats, err = cacheManager.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Files)
}

func TestNewCacheManager_RequiresDirectory(t *testing.T) {
	_, err := NewCacheManager("")
	assert.Error(t, err)
}

// An entry stamped with the stat taken before the read must not survive a change made after it
func TestCacheManager_EntryStampedWithReadTimeInfo(t *testing.T) {
	tempDir := t.TempDir()

	cacheManager, err := NewCacheManager(filepath.Join(tempDir, "cache"))
	require.NoError(t, err)

	testFile := filepath.Join(tempDir, "test.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("old"), 0644))
	oldInfo, err := os.Stat(testFile)
	require.NoError(t, err)

	// the file changes between the read and the cache write
	require.NoError(t, os.WriteFile(testFile, []byte("newer content"), 0644))
	require.NoError(t, cacheManager.SetText(testFile, "utf-8", "old", oldInfo))

	text, found := cacheManager.GetText(testFile, "utf-8")
	assert.False(t, found)
	assert.Empty(t, text)

	newInfo, err := os.Stat(testFile)
	require.NoError(t, err)
	require.NoError(t, cacheManager.SetText(testFile, "utf-8", "newer content", newInfo))

	text, found = cacheManager.GetText(testFile, "utf-8")
	assert.True(t, found)
	assert.Equal(t, "newer content", text)
}
