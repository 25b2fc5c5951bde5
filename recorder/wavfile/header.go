package wavfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidWAV is returned for data that is not a PCM RIFF/WAVE file.
var ErrInvalidWAV = errors.New("invalid WAV file")

// Header holds the fmt chunk of a WAV file and where its samples live.
type Header struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataOffset    int
	DataSize      int
}

type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// ParseHeader walks the RIFF chunks of data until it finds "data". Chunks other
// than "fmt " and "data" (LIST, fact) are skipped.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < 12 {
		return h, fmt.Errorf("%w: need at least 12 bytes, got %d", ErrInvalidWAV, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return h, fmt.Errorf("%w: missing RIFF header", ErrInvalidWAV)
	}
	if string(data[8:12]) != "WAVE" {
		return h, fmt.Errorf("%w: missing WAVE format", ErrInvalidWAV)
	}

	var haveFmt bool
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		declared := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8
		// Sizes are compared unsigned so a huge value cannot wrap negative on
		// 32-bit platforms. Only the data chunk may claim more than is present.
		size := len(data) - body
		if uint64(declared) <= uint64(size) {
			size = int(declared)
		} else if id != "data" {
			return h, fmt.Errorf("%w: %q chunk size %d exceeds file", ErrInvalidWAV, id, declared)
		}
		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return h, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			var fc fmtChunk
			if err := binary.Read(bytes.NewReader(data[body:body+16]), binary.LittleEndian, &fc); err != nil {
				return h, fmt.Errorf("%w: reading fmt chunk: %v", ErrInvalidWAV, err)
			}
			h.AudioFormat = fc.AudioFormat
			h.NumChannels = fc.NumChannels
			h.SampleRate = fc.SampleRate
			h.ByteRate = fc.ByteRate
			h.BlockAlign = fc.BlockAlign
			h.BitsPerSample = fc.BitsPerSample
			haveFmt = true
		case "data":
			if !haveFmt {
				return h, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			h.DataOffset = body
			h.DataSize = size
			if h.AudioFormat != 1 {
				return h, fmt.Errorf("%w: unsupported audio format %d (only PCM)", ErrInvalidWAV, h.AudioFormat)
			}
			if h.ByteRate == 0 {
				return h, fmt.Errorf("%w: zero byte rate", ErrInvalidWAV)
			}
			return h, nil
		}
		// Chunks are word aligned.
		off = body + size + size%2
	}
	return h, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
}

// Encode wraps 16-bit PCM samples in a canonical 44-byte WAV header.
func Encode(samples []int16, sampleRate, channels int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, errors.New("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}

	const bitsPerSample = 16
	dataSize := uint32(len(samples) * 2)
	blockAlign := uint16(channels * bitsPerSample / 8)

	buf := bytes.NewBuffer(make([]byte, 0, 44+int(dataSize)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, fmtChunk{
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
	})
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return buf.Bytes(), nil
}
