package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextDecoder_UTF8(t *testing.T) {
	decoder, err := NewTextDecoder("")
	require.NoError(t, err)
	assert.Equal(t, "utf-8", decoder.Name())

	text, err := decoder.Decode([]byte("Ophelia — “nymph”"))
	require.NoError(t, err)
	assert.Equal(t, "Ophelia — “nymph”", text)

	_, err = decoder.Decode([]byte{'o', 0xff, 'k'})
	assert.True(t, errors.Is(err, ErrInvalidText))
}

func TestTextDecoder_Windows1252(t *testing.T) {
	decoder, err := NewTextDecoder("Latin1")
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", decoder.Name())

	text, err := decoder.Decode([]byte{'n', 'a', 0xef, 'v', 'e', ' ', 0x93, 'q', 0x94})
	require.NoError(t, err)
	assert.Equal(t, "naïve “q”", text)
}

func TestNewTextDecoder_Unknown(t *testing.T) {
	_, err := NewTextDecoder("ebcdic-martian")
	assert.Error(t, err)
}

func TestTextDecoder_MalformedMultiByte(t *testing.T) {
	for _, label := range []string{"shift_jis", "euc-kr", "gbk", "utf-16le"} {
		t.Run(label, func(t *testing.T) {
			decoder, err := NewTextDecoder(label)
			require.NoError(t, err)

			_, err = decoder.Decode([]byte("ok\x81 \xff"))
			assert.True(t, errors.Is(err, ErrInvalidText))
		})
	}
}

func TestTextDecoder_ShiftJIS(t *testing.T) {
	decoder, err := NewTextDecoder("shift_jis")
	require.NoError(t, err)

	text, err := decoder.Decode([]byte{0x93, 0xfa, 0x96, 0x7b})
	require.NoError(t, err)
	assert.Equal(t, "日本", text)
}

func TestTextDecoder_EncodedReplacementCharacterIsKept(t *testing.T) {
	decoder, err := NewTextDecoder("utf-16le")
	require.NoError(t, err)

	text, err := decoder.Decode([]byte{'a', 0x00, 0xfd, 0xff})
	require.NoError(t, err)
	assert.Equal(t, "a�", text)
}
