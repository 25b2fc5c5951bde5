// Package alsa captures from an ALSA PCM device through the arecord utility.
package alsa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmcleod/voicegate/recorder"
)

const (
	defaultCommand = "arecord"
	defaultGrant   = 3 * time.Second
	killAfter      = 2 * time.Second
	firstReadSize  = 44
)

// Device runs one arecord process per session.
type Device struct {
	name      string
	command   string
	grant     time.Duration
	logger    *slog.Logger
	argPrefix []string
}

// Option configures a Device.
type Option func(*Device)

// WithCommand overrides the arecord binary.
func WithCommand(path string) Option {
	return func(d *Device) {
		if path != "" {
			d.command = path
		}
	}
}

// WithGrantTimeout bounds how long Open waits for the first audio before
// treating the device as unavailable.
func WithGrantTimeout(timeout time.Duration) Option {
	return func(d *Device) {
		if timeout > 0 {
			d.grant = timeout
		}
	}
}

// WithLogger sets the device logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New returns a Device for the ALSA PCM name, for example "default" or
// "hw:1,0". An empty name lets arecord pick.
func New(name string, opts ...Option) *Device {
	d := &Device{
		name:    name,
		command: defaultCommand,
		grant:   defaultGrant,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "alsa", "device", name)
	return d
}

// Supports reports whether arecord can produce the container.
func (d *Device) Supports(format string) bool {
	return format == recorder.FormatWAV || format == recorder.FormatL16
}

// Args returns the arecord arguments for cfg. Output goes to stdout.
func (d *Device) Args(cfg recorder.CaptureConfig) []string {
	fileType := "wav"
	if cfg.Format == recorder.FormatL16 {
		fileType = "raw"
	}
	args := []string{"-q"}
	if d.name != "" {
		args = append(args, "-D", d.name)
	}
	args = append(args,
		"-c", strconv.Itoa(cfg.Channels),
		"-r", strconv.Itoa(cfg.SampleRate),
		"-f", "S16_LE",
		"-t", fileType,
		"-",
	)
	return args
}

// Open starts arecord and waits until it produces audio. A process that exits
// first, usually because the device is busy or access is denied, is reported
// with its stderr output.
func (d *Device) Open(ctx context.Context, cfg recorder.CaptureConfig) (recorder.Stream, error) {
	if cfg.EchoCancellation || cfg.NoiseSuppression || cfg.AutoGainControl {
		d.logger.Debug("voice processing is left to the ALSA plugin chain")
	}

	cmd := exec.Command(d.command, append(append([]string(nil), d.argPrefix...), d.Args(cfg)...)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", d.command, err)
	}
	d.logger.Debug("arecord started", "pid", cmd.Process.Pid)

	p := &process{cmd: cmd, stdout: stdout, stderr: stderr}

	first := make(chan firstRead, 1)
	go func() {
		buf := make([]byte, firstReadSize)
		n, err := io.ReadAtLeast(stdout, buf, 1)
		first <- firstRead{buf[:n], err}
	}()

	timer := time.NewTimer(d.grant)
	defer timer.Stop()
	select {
	case r := <-first:
		if r.err != nil {
			return nil, p.exitError(r.err)
		}
		src := io.MultiReader(bytes.NewReader(r.buf), p)
		return recorder.NewReaderStream(src, cfg.ChunkInterval, p.interrupt), nil
	case <-ctx.Done():
		p.abort(first)
		return nil, ctx.Err()
	case <-timer.C:
		p.abort(first)
		return nil, fmt.Errorf("%s produced no audio within %s", d.command, d.grant)
	}
}

type firstRead struct {
	buf []byte
	err error
}

// process adapts a running arecord to an io.Reader that reports an abnormal
// exit as a read error.
type process struct {
	cmd     *exec.Cmd
	stdout  io.Reader
	stderr  *tailBuffer
	stopped atomic.Bool
	once    sync.Once
	waitErr error
}

func (p *process) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if errors.Is(err, io.EOF) {
		if werr := p.wait(); werr != nil && !p.stopped.Load() {
			return n, fmt.Errorf("arecord exited: %w%s", werr, p.stderr.suffix())
		}
	}
	return n, err
}

func (p *process) wait() error {
	p.once.Do(func() { p.waitErr = p.cmd.Wait() })
	return p.waitErr
}

// interrupt asks arecord to finish the current period and exit, and kills it
// if it has not done so shortly after.
func (p *process) interrupt() error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return p.cmd.Process.Kill()
	}
	time.AfterFunc(killAfter, func() {
		_ = p.cmd.Process.Kill()
	})
	return nil
}

func (p *process) exitError(readErr error) error {
	werr := p.wait()
	if werr == nil {
		werr = readErr
	}
	return fmt.Errorf("arecord: %w%s", werr, p.stderr.suffix())
}

// abort kills a process that never delivered audio. The pending first read
// must return before Wait may run.
func (p *process) abort(pending <-chan firstRead) {
	p.stopped.Store(true)
	_ = p.cmd.Process.Kill()
	<-pending
	_ = p.wait()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, b...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

func (t *tailBuffer) suffix() string {
	if s := t.String(); s != "" {
		return ": " + s
	}
	return ""
}
