// Package payload turns captured audio chunks into the transport-safe string
// sent as audio_data, and holds the most recent one for later requests.
package payload

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Payload is the standard base64 encoding of one complete recording.
type Payload string

// Empty reports whether p carries no audio.
func (p Payload) Empty() bool { return p == "" }

// Len returns the length of the encoded form.
func (p Payload) Len() int { return len(p) }

// Encode concatenates chunks in order and encodes the result. Chunks are
// never reordered, dropped or deduplicated.
func Encode(chunks [][]byte) (Payload, error) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total == 0 {
		return "", ErrEmptyRecording
	}

	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(total))
	if err := encodeTo(&sb, chunks); err != nil {
		return "", err
	}
	return Payload(sb.String()), nil
}

func encodeTo(w io.Writer, chunks [][]byte) error {
	enc := base64.NewEncoder(base64.StdEncoding, w)
	for i, c := range chunks {
		if _, err := enc.Write(c); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrEncoding, i, err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrEncoding, err)
	}
	return nil
}

// Decode returns the concatenated audio bytes carried by p.
func Decode(p Payload) ([]byte, error) {
	if p.Empty() {
		return nil, ErrEmptyPayload
	}
	b, err := base64.StdEncoding.DecodeString(string(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return b, nil
}
