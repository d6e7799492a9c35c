package loader

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "with BOM", input: append([]byte{0xEF, 0xBB, 0xBF}, "a,b"...), want: "a,b"},
		{name: "without BOM", input: []byte("a,b"), want: "a,b"},
		{name: "only BOM", input: []byte{0xEF, 0xBB, 0xBF}, want: ""},
		{name: "empty", input: nil, want: ""},
		{name: "partial BOM kept", input: []byte{0xEF, 0xBB, 'x'}, want: string([]byte{0xEF, 0xBB, 'x'})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(skipBOM(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "ascii", input: []byte("Gadus morhua"), want: "Gadus morhua"},
		{name: "multibyte kept", input: []byte("Pérez, 1885"), want: "Pérez, 1885"},
		{name: "latin-1 byte replaced", input: []byte{'P', 0xE9, 'r', 'e', 'z'}, want: "P?rez"},
		{name: "truncated rune at end", input: []byte{'a', 0xC3}, want: "a?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(newUTF8Sanitizer(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestUTF8Sanitizer_SplitRune(t *testing.T) {
	// One byte per read splits every multi-byte rune across reads.
	src := iotest.OneByteReader(strings.NewReader("Müller 北"))
	got, err := io.ReadAll(newUTF8Sanitizer(src))
	require.NoError(t, err)
	assert.Equal(t, "Müller 北", string(got))
}

func TestLimitReader(t *testing.T) {
	_, err := io.ReadAll(&limitReader{r: strings.NewReader("0123456789"), max: 5})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	got, err := io.ReadAll(&limitReader{r: strings.NewReader("0123456789"), max: 0})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))
}
