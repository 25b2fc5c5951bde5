// Package recorder captures a short voice sample from a Device and encodes it
// into a payload.Payload.
package recorder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmcleod/voicegate/internal/audit"
	"github.com/jmcleod/voicegate/internal/uuid"
	"github.com/jmcleod/voicegate/payload"
)

// Recorder owns a capture device and starts sessions on it, one at a time.
type Recorder struct {
	device   Device
	cache    *payload.Cache
	cfg      Config
	logger   *slog.Logger
	audit    *audit.Logger
	observer Observer
	newID    func() string

	mu     sync.Mutex
	active *Session
}

// New returns a Recorder for device. Completed payloads are stored in cache
// when it is non-nil.
func New(device Device, cache *payload.Cache, opts ...Option) *Recorder {
	r := &Recorder{
		device: device,
		cache:  cache,
		cfg:    DefaultConfig(),
		logger: slog.New(slog.DiscardHandler),
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.audit == nil {
		r.audit = audit.New(r.logger)
	}
	r.logger = r.logger.With("component", "recorder")
	return r
}

// Config returns the effective configuration.
func (r *Recorder) Config() Config { return r.cfg }

// Start opens the device and begins recording. It returns once access has
// been granted, or with an error wrapping ErrDeviceAccess when it was denied.
// ErrSessionActive is returned until the previous session has released the
// device.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	if r.active != nil && r.active.holdsDevice() {
		active := r.active.ID()
		r.mu.Unlock()
		r.audit.Failure(ctx, audit.RecordingRejected, ErrSessionActive.Error(),
			slog.String("active_session_id", active),
		)
		return nil, ErrSessionActive
	}
	s := newSession(r.newID(), r)
	r.active = s
	r.mu.Unlock()

	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Active returns the most recently started session, or nil.
func (r *Recorder) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
