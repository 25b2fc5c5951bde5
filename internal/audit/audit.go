// Package audit writes structured records of recording and authentication
// events. Passwords and audio payloads never reach this logger.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event identifies the kind of action being logged.
type Event string

const (
	RecordingStarted        Event = "recording_started"
	RecordingStopped        Event = "recording_stopped"
	RecordingCompleted      Event = "recording_completed"
	RecordingFailed         Event = "recording_failed"
	RecordingRejected       Event = "recording_rejected"
	AccountCreateSuccess    Event = "account_create_success"
	AccountCreateFailure    Event = "account_create_failure"
	LoginSuccess            Event = "login_success"
	LoginFailure            Event = "login_failure"
	LogoutSuccess           Event = "logout_success"
	LogoutFailure           Event = "logout_failure"
	RequestValidationFailed Event = "request_validation_failed"
	RequestTransportFailed  Event = "request_transport_failed"
)

// Logger wraps slog.Logger for event logging.
type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

// New returns an event logger that tags every record with component=audit.
// A nil logger discards everything.
func New(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Logger{
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

// Log writes one event record.
func (l *Logger) Log(ctx context.Context, event Event, attrs ...slog.Attr) {
	l.write(ctx, slog.LevelInfo, event, attrs...)
}

// Failure writes an event record carrying a reason, at warn level.
func (l *Logger) Failure(ctx context.Context, event Event, reason string, attrs ...slog.Attr) {
	all := append([]slog.Attr{slog.String("reason", reason)}, attrs...)
	l.write(ctx, slog.LevelWarn, event, all...)
}

func (l *Logger) write(ctx context.Context, level slog.Level, event Event, attrs ...slog.Attr) {
	if l == nil {
		return
	}
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("timestamp", l.now().UTC().Format(time.RFC3339)),
	}
	base = append(base, attrs...)
	l.logger.LogAttrs(ctx, level, "audit", base...)
}
