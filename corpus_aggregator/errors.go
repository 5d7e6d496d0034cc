package corpus_aggregator

import "fmt"

// DiscoveryError: the input directory is missing, not listable, or the pattern is malformed.
type DiscoveryError struct {
	Dir     string
	Pattern string
	Err     error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to discover %q in %s: %v", e.Pattern, e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ReadError: a matched file could not be opened, read or decoded as text.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read file: %s, error: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError: the output could not be encoded, created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write corpus: %s, error: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// CollisionError: two discovered files map to the same key under the "error" policy.
type CollisionError struct {
	Key      string
	First    string
	Conflict string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("duplicate corpus key %q: %s and %s", e.Key, e.First, e.Conflict)
}
