package payload

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		chunks [][]byte
	}{
		{"single", [][]byte{[]byte("RIFF....WAVE")}},
		{"ordered", [][]byte{[]byte("first-"), []byte("second-"), []byte("third")}},
		{"unaligned", [][]byte{{0x01}, {0x02, 0x03}, {0x04, 0x05, 0x06, 0x07}}},
		{"with empty chunk", [][]byte{[]byte("ab"), {}, []byte("cd")}},
		{"duplicates kept", [][]byte{[]byte("xx"), []byte("xx"), []byte("xx")}},
		{"binary", [][]byte{bytes.Repeat([]byte{0x00, 0xff}, 300), bytes.Repeat([]byte{0x80}, 77)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Encode(tt.chunks)
			require.NoError(t, err)
			require.False(t, p.Empty())

			got, err := Decode(p)
			require.NoError(t, err)
			assert.Equal(t, bytes.Join(tt.chunks, nil), got)
		})
	}
}

func TestEncode_ConcatenationInOrder(t *testing.T) {
	chunks := [][]byte{
		bytes.Repeat([]byte{'a'}, 400),
		bytes.Repeat([]byte{'b'}, 400),
		bytes.Repeat([]byte{'c'}, 200),
	}
	p, err := Encode(chunks)
	require.NoError(t, err)

	got, err := Decode(p)
	require.NoError(t, err)
	require.Len(t, got, 1000)
	assert.Equal(t, byte('a'), got[0])
	assert.Equal(t, byte('b'), got[400])
	assert.Equal(t, byte('c'), got[999])
}

func TestEncode_Empty(t *testing.T) {
	for _, chunks := range [][][]byte{nil, {}, {{}}, {{}, {}, nil}} {
		t.Run(fmt.Sprintf("%d chunks", len(chunks)), func(t *testing.T) {
			p, err := Encode(chunks)
			assert.True(t, errors.Is(err, ErrEmptyRecording))
			assert.True(t, p.Empty())
		})
	}
}

func TestEncode_IsStandardBase64(t *testing.T) {
	p, err := Encode([][]byte{[]byte("hi?")})
	require.NoError(t, err)
	assert.Equal(t, Payload("aGk/"), p)

	p, err = Encode([][]byte{[]byte("h")})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(p), "=="))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncodeTo_WriterFailure(t *testing.T) {
	err := encodeTo(failingWriter{}, [][]byte{bytes.Repeat([]byte("x"), 4096)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("")
	assert.True(t, errors.Is(err, ErrEmptyPayload))

	_, err = Decode("not base64!!")
	assert.True(t, errors.Is(err, ErrEncoding))
}
