package alsa

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/voicegate/payload"
	"github.com/jmcleod/voicegate/recorder"
)

const helperEnv = "VOICEGATE_ALSA_HELPER"

// TestHelperProcess stands in for arecord when the test binary re-executes
// itself.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}
	switch mode {
	case "ok":
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		out := append([]byte("RIFF"), bytes.Repeat([]byte{7}, 1040)...)
		_, _ = os.Stdout.Write(out)
		<-sig
		os.Exit(0)
	case "busy":
		fmt.Fprintln(os.Stderr, "arecord: main:830: audio open error: Device or resource busy")
		os.Exit(1)
	case "crash":
		_, _ = os.Stdout.Write(bytes.Repeat([]byte{1}, 100))
		time.Sleep(50 * time.Millisecond)
		fmt.Fprintln(os.Stderr, "arecord: pcm_read:2221: read error: Input/output error")
		os.Exit(1)
	case "silent":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	}
	os.Exit(2)
}

func helperDevice(t *testing.T, mode string) *Device {
	t.Helper()
	t.Setenv(helperEnv, mode)
	d := New("default", WithCommand(os.Args[0]), WithGrantTimeout(time.Second))
	d.argPrefix = []string{"-test.run=TestHelperProcess", "--"}
	return d
}

func testConfig() recorder.Config {
	cfg := recorder.DefaultConfig()
	cfg.Capture.ChunkInterval = 20 * time.Millisecond
	cfg.MaxDuration = 5 * time.Second
	return cfg
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDevice_Args(t *testing.T) {
	cfg := recorder.DefaultConfig().Capture

	cases := []struct {
		name   string
		device string
		format string
		want   []string
	}{
		{
			name:   "wav",
			device: "hw:1,0",
			format: recorder.FormatWAV,
			want:   []string{"-q", "-D", "hw:1,0", "-c", "1", "-r", "44100", "-f", "S16_LE", "-t", "wav", "-"},
		},
		{
			name:   "raw pcm",
			device: "default",
			format: recorder.FormatL16,
			want:   []string{"-q", "-D", "default", "-c", "1", "-r", "44100", "-f", "S16_LE", "-t", "raw", "-"},
		},
		{
			name:   "native container without device name",
			format: "",
			want:   []string{"-q", "-c", "1", "-r", "44100", "-f", "S16_LE", "-t", "wav", "-"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := cfg
			c.Format = tc.format
			assert.Equal(t, tc.want, New(tc.device).Args(c))
		})
	}
}

func TestDevice_Supports(t *testing.T) {
	d := New("")
	assert.True(t, d.Supports(recorder.FormatWAV))
	assert.True(t, d.Supports(recorder.FormatL16))
	assert.False(t, d.Supports(recorder.FormatWebM))
	assert.Equal(t, recorder.FormatWAV, recorder.SelectFormat(d, recorder.DefaultFormats))
}

func TestDevice_RecordUntilStopped(t *testing.T) {
	cache := payload.NewCache()
	rec := recorder.New(helperDevice(t, "ok"), cache, recorder.WithConfig(testConfig()))

	sess, err := rec.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recorder.StateRecording, sess.State())
	sess.Stop()

	res, err := sess.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1044, res.Bytes)
	assert.Equal(t, recorder.FormatWAV, res.Format)

	raw, err := payload.Decode(res.Payload)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(raw[:4]))
}

func TestDevice_BusyIsAccessError(t *testing.T) {
	rec := recorder.New(helperDevice(t, "busy"), nil)

	_, err := rec.Start(context.Background())
	require.ErrorIs(t, err, recorder.ErrDeviceAccess)
	assert.Contains(t, err.Error(), "Device or resource busy")
}

func TestDevice_CrashIsRecorderError(t *testing.T) {
	rec := recorder.New(helperDevice(t, "crash"), nil, recorder.WithConfig(testConfig()))

	sess, err := rec.Start(context.Background())
	require.NoError(t, err)

	_, err = sess.Wait(waitCtx(t))
	require.ErrorIs(t, err, recorder.ErrRecorder)
	assert.Contains(t, err.Error(), "Input/output error")
}

func TestDevice_NoAudioTimesOut(t *testing.T) {
	d := helperDevice(t, "silent")
	d.grant = 200 * time.Millisecond

	start := time.Now()
	_, err := d.Open(context.Background(), testConfig().Capture)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no audio")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDevice_OpenHonoursContext(t *testing.T) {
	d := helperDevice(t, "silent")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := d.Open(ctx, testConfig().Capture)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDevice_MissingBinary(t *testing.T) {
	d := New("default", WithCommand("/nonexistent/arecord"))
	_, err := d.Open(context.Background(), testConfig().Capture)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{limit: 5}
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defg"))
	assert.Equal(t, "cdefg", tb.String())
	assert.Equal(t, ": cdefg", tb.suffix())
	assert.Empty(t, (&tailBuffer{limit: 1}).suffix())
}
