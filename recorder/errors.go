package recorder

import (
	"errors"

	"github.com/jmcleod/voicegate/payload"
)

var (
	// ErrDeviceAccess indicates the capture device was denied or unavailable.
	ErrDeviceAccess = errors.New("could not access microphone")
	// ErrRecorder indicates capture failed after recording had started.
	ErrRecorder = errors.New("recording error")
	// ErrSessionActive is returned by Start while another session holds the device.
	ErrSessionActive = errors.New("a recording is already in progress")
	// ErrEmptyRecording is payload.ErrEmptyRecording, re-exported for callers
	// that only import this package.
	ErrEmptyRecording = payload.ErrEmptyRecording
	// ErrEncoding is payload.ErrEncoding, re-exported.
	ErrEncoding = payload.ErrEncoding
)
