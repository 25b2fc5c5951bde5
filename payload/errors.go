package payload

import "errors"

var (
	// ErrEmptyRecording indicates the chunk sequence held no audio bytes.
	ErrEmptyRecording = errors.New("no audio data recorded")
	// ErrEncoding indicates the transport encoding itself failed.
	ErrEncoding = errors.New("payload encoding failed")
	// ErrEmptyPayload is returned when an empty payload is offered to the cache.
	ErrEmptyPayload = errors.New("empty payload")
)
