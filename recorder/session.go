package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jmcleod/voicegate/internal/audit"
	"github.com/jmcleod/voicegate/payload"
)

// Result describes a completed recording.
type Result struct {
	Payload     payload.Payload
	Format      string
	Chunks      int
	Bytes       int
	Duration    time.Duration
	AutoStopped bool
}

// Session is one capture attempt. It is created by Recorder.Start and is
// discarded once it reaches Completed or Failed.
type Session struct {
	id         string
	cfg        Config
	capture    CaptureConfig
	device     Device
	logger     *slog.Logger
	audit      *audit.Logger
	observer   Observer
	onComplete func(payload.Payload) error

	mu          sync.Mutex
	state       State
	stream      Stream
	startedAt   time.Time
	stoppedAt   time.Time
	chunks      [][]byte
	size        int
	timer       *time.Timer
	autoStopped bool
	released    bool
	result      *Result
	err         error

	granted chan struct{}
	done    chan struct{}
	updates chan time.Duration
}

func newSession(id string, r *Recorder) *Session {
	capture := r.cfg.Capture
	capture.Format = SelectFormat(r.device, r.cfg.Formats)
	s := &Session{
		id:       id,
		cfg:      r.cfg,
		capture:  capture,
		device:   r.device,
		logger:   r.logger.With("session_id", id),
		audit:    r.audit,
		observer: r.observer,
		granted:  make(chan struct{}),
		done:     make(chan struct{}),
		updates:  make(chan time.Duration, 1),
	}
	if r.cache != nil {
		s.onComplete = r.cache.Store
	}
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Format returns the container format chosen for this session. Empty means the
// device's native format.
func (s *Session) Format() string { return s.capture.Format }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// holdsDevice reports whether the session may still own a device handle. A
// new session counts as holding it, and so does one stopped while Open was
// pending, until the handle it gets back has been closed.
func (s *Session) holdsDevice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.released
}

// Done is closed when the session reaches Completed or Failed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Updates delivers the remaining recording time once per tick while the
// session is Recording. The channel is closed on the terminal state. Slow
// receivers miss ticks rather than delaying the session.
func (s *Session) Updates() <-chan time.Duration { return s.updates }

// Remaining returns how long the session may keep recording before the
// automatic stop.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

func (s *Session) remainingLocked() time.Duration {
	switch s.state {
	case StateIdle, StateAcquiringDevice:
		return s.cfg.MaxDuration
	case StateRecording:
		left := s.cfg.MaxDuration - time.Since(s.startedAt)
		if left < 0 {
			return 0
		}
		return left
	default:
		return 0
	}
}

// Wait blocks until the session is terminal and returns its result, or the
// failure that ended it.
func (s *Session) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// Stop ends recording. While Recording the device is released, the last
// buffered audio is flushed and the session finalizes. While acquiring, the
// device is released as soon as it is granted. In any other state Stop does
// nothing.
func (s *Session) Stop() {
	s.stop(false)
}

func (s *Session) timeout() {
	s.stop(true)
}

func (s *Session) stop(auto bool) {
	s.mu.Lock()
	switch {
	case s.state == StateRecording:
	case s.state == StateAcquiringDevice && !auto:
	default:
		s.mu.Unlock()
		return
	}
	s.autoStopped = auto
	s.stoppedAt = time.Now()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.transitionLocked(StateStopping)
	stream := s.stream
	s.mu.Unlock()

	s.audit.Log(context.Background(), audit.RecordingStopped,
		slog.String("session_id", s.id),
		slog.Bool("auto", auto),
	)
	if stream != nil {
		s.release(stream)
	}
}

func (s *Session) start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("session %s already started", s.id)
	}
	s.transitionLocked(StateAcquiringDevice)
	s.mu.Unlock()

	go s.countdown()

	stream, err := s.device.Open(ctx, s.capture)
	if err == nil && stream == nil {
		err = errors.New("device returned no stream")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDeviceAccess, err)
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.stream = stream
	if s.state == StateStopping {
		s.mu.Unlock()
		s.release(stream)
		go s.intake(stream)
		return nil
	}
	s.startedAt = time.Now()
	s.transitionLocked(StateRecording)
	s.timer = time.AfterFunc(s.cfg.MaxDuration, s.timeout)
	close(s.granted)
	s.mu.Unlock()

	s.audit.Log(ctx, audit.RecordingStarted,
		slog.String("session_id", s.id),
		slog.String("format", s.capture.Format),
		slog.Duration("max_duration", s.cfg.MaxDuration),
	)
	go s.intake(stream)
	return nil
}

// intake is the only goroutine appending chunks, so arrival order is kept and
// finalization happens after the last one.
func (s *Session) intake(stream Stream) {
	for {
		chunk, err := stream.ReadChunk()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.finalize()
				return
			}
			s.fail(fmt.Errorf("%w: %w", ErrRecorder, err))
			return
		}
		if len(chunk) == 0 {
			continue
		}
		s.mu.Lock()
		if s.state == StateRecording || s.state == StateStopping {
			s.chunks = append(s.chunks, chunk)
			s.size += len(chunk)
		}
		s.mu.Unlock()
	}
}

func (s *Session) finalize() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	if s.state == StateRecording {
		s.logger.Debug("device finished capture")
		s.stoppedAt = time.Now()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.transitionLocked(StateStopping)
	}
	chunks := s.chunks
	size := s.size
	stream := s.stream
	s.mu.Unlock()

	s.release(stream)

	if sealer, ok := stream.(Sealer); ok {
		sealer.Seal(chunks)
	}
	p, err := payload.Encode(chunks)
	if err != nil {
		s.fail(err)
		return
	}
	if s.onComplete != nil {
		if err := s.onComplete(p); err != nil {
			s.fail(fmt.Errorf("caching payload: %w", err))
			return
		}
	}

	s.mu.Lock()
	var duration time.Duration
	if !s.startedAt.IsZero() {
		duration = s.stoppedAt.Sub(s.startedAt)
	}
	s.result = &Result{
		Payload:     p,
		Format:      s.capture.Format,
		Chunks:      len(chunks),
		Bytes:       size,
		Duration:    duration,
		AutoStopped: s.autoStopped,
	}
	s.transitionLocked(StateCompleted)
	s.mu.Unlock()

	s.audit.Log(context.Background(), audit.RecordingCompleted,
		slog.String("session_id", s.id),
		slog.Int("chunks", len(chunks)),
		slog.Int("bytes", size),
		slog.Duration("duration", duration),
		slog.Bool("auto_stopped", s.autoStopped),
	)
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.err = err
	stream := s.stream
	s.transitionLocked(StateFailed)
	s.mu.Unlock()

	s.audit.Failure(context.Background(), audit.RecordingFailed, err.Error(),
		slog.String("session_id", s.id),
	)
	s.release(stream)
}

// release closes stream, if any, and marks the device free. Callers must not
// pass a nil stream while Open may still return one.
func (s *Session) release(stream Stream) {
	if stream != nil {
		if err := stream.Close(); err != nil {
			s.logger.Warn("releasing capture device", "error", err)
		}
	}
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

func (s *Session) transitionLocked(to State) {
	from := s.state
	s.state = to
	s.logger.Debug("recording state changed", "from", from.String(), "to", to.String())
	if s.observer != nil {
		s.observer(s.id, from, to)
	}
	if to.Terminal() {
		close(s.done)
	}
}

func (s *Session) countdown() {
	defer close(s.updates)
	select {
	case <-s.granted:
	case <-s.done:
		return
	}
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	s.publish()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.publish()
		}
	}
}

func (s *Session) publish() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	left := s.remainingLocked()
	s.mu.Unlock()
	select {
	case s.updates <- left:
	default:
	}
}
