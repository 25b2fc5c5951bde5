package recorder

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

type fakeDevice struct {
	formats map[string]bool
	denyErr error
	gate    chan struct{}

	mu      sync.Mutex
	streams []*fakeStream
	opened  []CaptureConfig
}

func newFakeDevice(formats ...string) *fakeDevice {
	d := &fakeDevice{formats: map[string]bool{}}
	for _, f := range formats {
		d.formats[f] = true
	}
	return d
}

func (d *fakeDevice) Supports(format string) bool { return d.formats[format] }

func (d *fakeDevice) Open(ctx context.Context, cfg CaptureConfig) (Stream, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.denyErr != nil {
		return nil, d.denyErr
	}
	s := newFakeStream()
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.opened = append(d.opened, cfg)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDevice) stream(i int) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streams[i]
}

type fakeStream struct {
	chunks chan []byte
	errs   chan error
	closed chan struct{}
	once   sync.Once
	closes atomic.Int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		chunks: make(chan []byte, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (f *fakeStream) push(chunks ...[]byte) {
	for _, c := range chunks {
		f.chunks <- c
	}
}

func (f *fakeStream) ReadChunk() ([]byte, error) {
	select {
	case err := <-f.errs:
		return nil, err
	case c := <-f.chunks:
		return c, nil
	case <-f.closed:
		select {
		case c := <-f.chunks:
			return c, nil
		default:
			return nil, io.EOF
		}
	}
}

func (f *fakeStream) Close() error {
	f.closes.Add(1)
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeStream) released() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

type transitions struct {
	mu   sync.Mutex
	seen [][2]State
}

func (t *transitions) observe(_ string, from, to State) {
	t.mu.Lock()
	t.seen = append(t.seen, [2]State{from, to})
	t.mu.Unlock()
}

func (t *transitions) list() [][2]State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][2]State(nil), t.seen...)
}

func (t *transitions) count(to State) int {
	n := 0
	for _, tr := range t.list() {
		if tr[1] == to {
			n++
		}
	}
	return n
}
