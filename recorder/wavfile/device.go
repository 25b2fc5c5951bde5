// Package wavfile is a recorder.Device that plays back a WAV file as if it
// were being captured live.
package wavfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jmcleod/voicegate/recorder"
)

// Device replays the file at Path each time it is opened.
type Device struct {
	path     string
	realtime bool
	logger   *slog.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithRealtime controls whether playback is paced at the file's byte rate.
// It defaults to true; disabled, the whole file is delivered at once.
func WithRealtime(on bool) Option {
	return func(d *Device) { d.realtime = on }
}

// WithLogger sets the device logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New returns a Device for the WAV file at path.
func New(path string, opts ...Option) *Device {
	d := &Device{
		path:     path,
		realtime: true,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "wavfile", "path", path)
	return d
}

// Supports reports true for audio/wav only.
func (d *Device) Supports(format string) bool {
	return format == recorder.FormatWAV
}

// Open reads and validates the file. The stream emits the file header
// followed by its samples, so the concatenated chunks are a playable WAV.
// When playback is cut short the RIFF and data sizes are rewritten to match
// what was delivered.
func (d *Device) Open(ctx context.Context, cfg recorder.CaptureConfig) (recorder.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d.path, err)
	}
	h, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	if int(h.SampleRate) != cfg.SampleRate || int(h.NumChannels) != cfg.Channels {
		d.logger.Warn("file format differs from capture configuration",
			"file_sample_rate", h.SampleRate,
			"file_channels", h.NumChannels,
			"sample_rate", cfg.SampleRate,
			"channels", cfg.Channels,
		)
	}
	data = data[:h.DataOffset+h.DataSize]

	stop := make(chan struct{})
	var src io.Reader = bytes.NewReader(data)
	if d.realtime {
		src = &pacedReader{
			r:       bytes.NewReader(data),
			rate:    int(h.ByteRate),
			started: time.Now(),
			stop:    stop,
			step:    20 * time.Millisecond,
		}
	}
	release := func() error {
		close(stop)
		return nil
	}
	return &stream{
		Stream:     recorder.NewReaderStream(src, cfg.ChunkInterval, release),
		dataOffset: h.DataOffset,
	}, nil
}

type stream struct {
	recorder.Stream
	dataOffset int
}

// Seal patches the header sizes for the bytes actually delivered. Recordings
// stopped before the header was complete are left alone.
func (s *stream) Seal(chunks [][]byte) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total < s.dataOffset {
		return
	}
	putUint32(chunks, 4, uint32(total-8))
	putUint32(chunks, s.dataOffset-4, uint32(total-s.dataOffset))
}

// putUint32 writes v little-endian at offset off of the concatenation of
// chunks.
func putUint32(chunks [][]byte, off int, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	i := 0
	for _, c := range chunks {
		for off < len(c) && i < len(b) {
			c[off] = b[i]
			off++
			i++
		}
		if i == len(b) {
			return
		}
		off -= len(c)
	}
}

// pacedReader never returns more bytes than rate allows for the time elapsed
// since started. Closing stop ends it with io.EOF.
type pacedReader struct {
	r       *bytes.Reader
	rate    int
	started time.Time
	stop    <-chan struct{}
	step    time.Duration
	read    int
}

func (p *pacedReader) Read(b []byte) (int, error) {
	for {
		select {
		case <-p.stop:
			return 0, io.EOF
		default:
		}
		allowed := int(time.Since(p.started).Seconds()*float64(p.rate)) - p.read
		if allowed > 0 {
			n, err := p.r.Read(b[:min(len(b), allowed)])
			p.read += n
			return n, err
		}
		select {
		case <-p.stop:
			return 0, io.EOF
		case <-time.After(p.step):
		}
	}
}
