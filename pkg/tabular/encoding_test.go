package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name     string
		in       []byte
		want     string
		encoding string
	}{
		{"plain utf-8", []byte("unit,station"), "unit,station", EncodingUTF8},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b")...), "a,b", EncodingUTF8BOM},
		{"utf-16le bom", []byte{0xFF, 0xFE, 'a', 0, ',', 0, 'b', 0}, "a,b", EncodingUTF16LE},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0, 'a', 0, ',', 0, 'b'}, "a,b", EncodingUTF16BE},
		{"windows-1252 fallback", []byte{'c', 'a', 'f', 0xE9}, "café", EncodingWindows1252},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, enc, err := DecodeText(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
			assert.Equal(t, tt.encoding, enc)
		})
	}
}
