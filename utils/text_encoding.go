package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrInvalidText is returned when the bytes of a file are not valid in the configured encoding.
var ErrInvalidText = errors.New("invalid text for encoding")

// TextDecoder converts raw file bytes into UTF-8 text.
type TextDecoder struct {
	name string
	enc  encoding.Encoding
}

// NewTextDecoder resolves an encoding label such as "utf-8", "latin1" or "windows-1252".
func NewTextDecoder(label string) (*TextDecoder, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "utf-8"
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}

	name, err := htmlindex.Name(enc)
	if err != nil {
		name = strings.ToLower(label)
	}

	return &TextDecoder{name: name, enc: enc}, nil
}

// Name returns the canonical encoding name.
func (d *TextDecoder) Name() string {
	return d.name
}

// Decode returns data as a UTF-8 string. UTF-8 input is validated strictly and
// returned unchanged, other encodings are transcoded. Bytes that are malformed in
// the encoding fail with ErrInvalidText.
func (d *TextDecoder) Decode(data []byte) (string, error) {
	if d.name == "utf-8" {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w %s", ErrInvalidText, d.name)
		}
		return string(data), nil
	}

	decoded, err := d.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrInvalidText, d.name, err)
	}

	// x/text decoders substitute U+FFFD for malformed input instead of failing.
	// A replacement character is only genuine if it encodes back to the same bytes.
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		encoded, err := d.enc.NewEncoder().Bytes(decoded)
		if err != nil || !bytes.Equal(encoded, data) {
			return "", fmt.Errorf("%w %s", ErrInvalidText, d.name)
		}
	}
	return string(decoded), nil
}
