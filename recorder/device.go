package recorder

import "context"

// Device is a microphone that can be opened by one session at a time.
type Device interface {
	// Supports reports whether the device can deliver the container format.
	Supports(format string) bool
	// Open requests exclusive access with the given configuration. It blocks
	// until access is granted, denied, or ctx is done.
	Open(ctx context.Context, cfg CaptureConfig) (Stream, error)
}

// Stream is an open capture handle.
type Stream interface {
	// ReadChunk blocks until the next chunk is available. Chunks arrive in
	// capture order. After the last chunk it returns io.EOF; a capture
	// failure is returned as any other error.
	ReadChunk() ([]byte, error)
	// Close halts capture and releases the device. Audio captured before
	// Close is still returned by ReadChunk ahead of io.EOF. Close is safe to
	// call more than once.
	Close() error
}

// Sealer is implemented by streams whose container header records how much
// audio follows it. Seal is called once, after the last chunk and before
// encoding, with every chunk delivered; it may rewrite them in place.
type Sealer interface {
	Seal(chunks [][]byte)
}
