package recorder

import (
	"log/slog"

	"github.com/jmcleod/voicegate/internal/audit"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithConfig replaces the default capture configuration. Zero fields fall
// back to their defaults.
func WithConfig(cfg Config) Option {
	return func(r *Recorder) {
		r.cfg = cfg.withDefaults()
	}
}

// WithLogger sets the logger for state changes and audit events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAuditLogger overrides the audit logger derived from WithLogger.
func WithAuditLogger(a *audit.Logger) Option {
	return func(r *Recorder) {
		r.audit = a
	}
}

// WithObserver registers a callback for every session state change.
func WithObserver(o Observer) Option {
	return func(r *Recorder) {
		r.observer = o
	}
}

// WithIDGenerator overrides how session identifiers are made.
func WithIDGenerator(gen func() string) Option {
	return func(r *Recorder) {
		if gen != nil {
			r.newID = gen
		}
	}
}
