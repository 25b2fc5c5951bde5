package recorder

import "time"

// Container formats, most preferred first.
const (
	FormatWebMOpus = "audio/webm;codecs=opus"
	FormatWebM     = "audio/webm"
	FormatWAV      = "audio/wav"
	FormatL16      = "audio/L16"
)

const (
	DefaultMaxDuration   = 15 * time.Second
	DefaultChunkInterval = time.Second
	DefaultTickInterval  = time.Second
	DefaultSampleRate    = 44100
	DefaultChannels      = 1
)

// DefaultFormats is the container preference list.
var DefaultFormats = []string{FormatWebMOpus, FormatWebM, FormatWAV}

// CaptureConfig is what a Device is asked to deliver.
type CaptureConfig struct {
	Channels         int
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	// Format is the chosen container. Empty means the device's native one.
	Format string
	// ChunkInterval is how often buffered audio is handed over as a chunk.
	ChunkInterval time.Duration
}

// Config controls a Recorder and the sessions it starts.
type Config struct {
	Capture      CaptureConfig
	MaxDuration  time.Duration
	TickInterval time.Duration
	Formats      []string
}

// DefaultConfig returns mono 44.1 kHz capture with all voice processing
// enabled, a 15 s limit and one chunk and one progress update per second.
func DefaultConfig() Config {
	return Config{
		Capture: CaptureConfig{
			Channels:         DefaultChannels,
			SampleRate:       DefaultSampleRate,
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
			ChunkInterval:    DefaultChunkInterval,
		},
		MaxDuration:  DefaultMaxDuration,
		TickInterval: DefaultTickInterval,
		Formats:      append([]string(nil), DefaultFormats...),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxDuration <= 0 {
		c.MaxDuration = d.MaxDuration
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.Capture.ChunkInterval <= 0 {
		c.Capture.ChunkInterval = d.Capture.ChunkInterval
	}
	if c.Capture.SampleRate <= 0 {
		c.Capture.SampleRate = d.Capture.SampleRate
	}
	if c.Capture.Channels <= 0 {
		c.Capture.Channels = d.Capture.Channels
	}
	if c.Formats == nil {
		c.Formats = d.Formats
	}
	return c
}

// SelectFormat returns the first preferred format the device supports, or
// the empty string when it supports none of them.
func SelectFormat(d Device, preferred []string) string {
	for _, f := range preferred {
		if d.Supports(f) {
			return f
		}
	}
	return ""
}
