package corpus_aggregator

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

// CacheEntry represents a cached decoded file with the metadata used for invalidation
type CacheEntry struct {
	Text      string
	Encoding  string
	Timestamp time.Time
	FileSize  int64
	ModTime   time.Time
}

// FileCache stores one gob-encoded entry per source file
type FileCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheManager provides high-level caching operations
type CacheManager struct {
	fileCache *FileCache
	stats     *CacheStats
}

// StorageStats describes what is currently on disk
type StorageStats struct {
	CacheDir  string
	Files     int
	TotalSize int64
}

// NewCacheManager creates a cache manager rooted at cacheDir, creating the directory if needed.
func NewCacheManager(cacheDir string) (*CacheManager, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &CacheManager{
		fileCache: &FileCache{cacheDir: cacheDir},
		stats: &CacheStats{
			LastResetTime: time.Now(),
		},
	}, nil
}

// CacheDir returns the directory holding the cache entries.
func (cm *CacheManager) CacheDir() string {
	return cm.fileCache.cacheDir
}

// generateCacheKey creates a unique cache key for a file
func (fc *FileCache) generateCacheKey(filePath string) string {
	if abs, err := filepath.Abs(filePath); err == nil {
		filePath = abs
	}
	return fmt.Sprintf("%016x.cache", xxh3.HashString(filePath))
}

func (fc *FileCache) getCachePath(cacheKey string) string {
	return filepath.Join(fc.cacheDir, cacheKey)
}

// Get returns the entry for filePath if it is still valid for the file on disk.
func (fc *FileCache) Get(filePath string) (*CacheEntry, bool) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	cachePath := fc.getCachePath(fc.generateCacheKey(filePath))

	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, false
	}

	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, false
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil || !fileInfo.ModTime().Equal(entry.ModTime) || fileInfo.Size() != entry.FileSize {
		_ = os.Remove(cachePath)
		return nil, false
	}

	return &entry, true
}

// Set stores entry for filePath, stamped with the size and mod time of fileInfo.
// fileInfo must describe the file as it was before its content was read; nil stats the file now.
func (fc *FileCache) Set(filePath string, entry CacheEntry, fileInfo os.FileInfo) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if fileInfo == nil {
		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("failed to get file info: %w", err)
		}
		fileInfo = info
	}

	entry.Timestamp = time.Now()
	entry.FileSize = fileInfo.Size()
	entry.ModTime = fileInfo.ModTime()

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	cachePath := fc.getCachePath(fc.generateCacheKey(filePath))
	if err := os.WriteFile(cachePath, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// GetText returns the cached decoded text of filePath.
// Entries decoded with another encoding count as misses.
func (cm *CacheManager) GetText(filePath string, encoding string) (string, bool) {
	entry, found := cm.fileCache.Get(filePath)
	if !found || entry.Encoding != encoding {
		cm.recordCacheMiss()
		return "", false
	}

	cm.recordCacheHit()
	return entry.Text, true
}

// SetText stores the decoded text of filePath, read while the file matched fileInfo.
func (cm *CacheManager) SetText(filePath string, encoding string, text string, fileInfo os.FileInfo) error {
	return cm.fileCache.Set(filePath, CacheEntry{Text: text, Encoding: encoding}, fileInfo)
}

// GetCacheStats returns what the cache directory currently holds
func (cm *CacheManager) GetCacheStats() (StorageStats, error) {
	stats := StorageStats{CacheDir: cm.fileCache.cacheDir}

	entries, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return stats, fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Files++
		stats.TotalSize += info.Size()
	}

	return stats, nil
}

// CleanExpiredCache removes cache entries older than maxAge and returns how many were removed
func (cm *CacheManager) CleanExpiredCache(maxAge time.Duration) (int, error) {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	entries, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, file := range entries {
		if file.IsDir() {
			continue
		}

		cachePath := filepath.Join(cm.fileCache.cacheDir, file.Name())
		data, err := os.ReadFile(cachePath)
		if err != nil {
			continue
		}

		var entry CacheEntry
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
			continue
		}

		if entry.Timestamp.Before(cutoff) {
			if err := os.Remove(cachePath); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// ClearCache removes all cache entries and returns how many were removed
func (cm *CacheManager) ClearCache() (int, error) {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	entries, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	for _, file := range entries {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(cm.fileCache.cacheDir, file.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}
