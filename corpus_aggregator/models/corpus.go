package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// InputFile describes one discovered file
type InputFile struct {
	Path    string
	Key     string
	Size    int64
	ModTime time.Time
}

// Corpus maps keys to file contents and remembers insertion order.
// Overwriting a key replaces its value but keeps its original position.
type Corpus struct {
	keys   []string
	values map[string]string
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{values: make(map[string]string)}
}

// Set inserts or replaces the value for key and reports whether key already existed.
func (c *Corpus) Set(key, value string) bool {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	_, exists := c.values[key]
	if !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
	return exists
}

func (c *Corpus) Get(key string) (string, bool) {
	value, ok := c.values[key]
	return value, ok
}

func (c *Corpus) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

func (c *Corpus) Len() int {
	return len(c.keys)
}

// Keys returns the keys in insertion order.
func (c *Corpus) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

// MarshalJSON encodes the corpus as a single JSON object in insertion order.
// HTML characters are left unescaped.
func (c *Corpus) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, c.values[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of strings, keeping the document order.
func (c *Corpus) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("corpus must be a JSON object")
	}

	c.keys = nil
	c.values = make(map[string]string)

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected corpus key %v", token)
		}

		var value string
		if err := decoder.Decode(&value); err != nil {
			return fmt.Errorf("corpus entry %q: %w", key, err)
		}
		c.Set(key, value)
	}

	if _, err := decoder.Token(); err != nil {
		return err
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(s); err != nil {
		return err
	}
	// Encode terminates every value with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// BuildResult summarises one aggregation run
type BuildResult struct {
	Files       []InputFile
	Keys        int
	Overwrites  int
	BytesRead   int64
	OutputPath  string
	OutputBytes int64
	Digest      string
	Duration    time.Duration
	CacheHits   int64
	CacheMisses int64
}
