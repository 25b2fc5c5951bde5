package recorder

import (
	"errors"
	"io"
	"sync"
	"time"
)

const readBufferSize = 32 * 1024

// NewReaderStream returns a Stream that hands over whatever src produced
// during each interval as one chunk. release is called once, either by Close
// or when src ends, and must make any pending Read on src return. When src
// ends with an error other than io.EOF before Close, ReadChunk reports it
// after the remaining audio has been delivered.
func NewReaderStream(src io.Reader, interval time.Duration, release func() error) Stream {
	if interval <= 0 {
		interval = DefaultChunkInterval
	}
	s := &readerStream{
		src:      src,
		interval: interval,
		release:  release,
		srcDone:  make(chan struct{}),
		closing:  make(chan struct{}),
		chunks:   make(chan []byte, 4),
	}
	go s.readLoop()
	go s.flushLoop()
	return s
}

type readerStream struct {
	src      io.Reader
	interval time.Duration
	release  func() error

	mu      sync.Mutex
	pending []byte
	readErr error

	srcDone chan struct{}
	closing chan struct{}

	closeOnce  sync.Once
	releaseErr error

	chunks chan []byte
	err    error
}

func (s *readerStream) ReadChunk() ([]byte, error) {
	chunk, ok := <-s.chunks
	if ok {
		return chunk, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *readerStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		if s.release != nil {
			s.releaseErr = s.release()
		}
	})
	return s.releaseErr
}

func (s *readerStream) closed() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

func (s *readerStream) readLoop() {
	defer close(s.srcDone)
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.src.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.pending = append(s.pending, buf[:n]...)
			s.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed() {
				s.mu.Lock()
				s.readErr = err
				s.mu.Unlock()
			}
			return
		}
	}
}

func (s *readerStream) flushLoop() {
	defer close(s.chunks)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.srcDone:
			s.finish()
			return
		case <-s.closing:
			<-s.srcDone
			s.finish()
			return
		}
	}
}

// finish runs once src is drained. s.err is written before chunks is closed,
// so ReadChunk observes it after the last receive.
func (s *readerStream) finish() {
	s.flush()
	_ = s.Close()
	s.mu.Lock()
	s.err = s.readErr
	s.mu.Unlock()
}

func (s *readerStream) flush() {
	s.mu.Lock()
	chunk := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(chunk) > 0 {
		s.chunks <- chunk
	}
}
