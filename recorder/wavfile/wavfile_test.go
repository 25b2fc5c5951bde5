package wavfile

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/voicegate/payload"
	"github.com/jmcleod/voicegate/recorder"
)

func writeWAV(t *testing.T, samples []int16, rate int) (string, []byte) {
	t.Helper()
	data, err := Encode(samples, rate, 1)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sample.wav")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path, data
}

func TestEncodeParseRoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	data, err := Encode(samples, 16000, 1)
	require.NoError(t, err)
	require.Len(t, data, 44+len(samples)*2)

	h, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), h.AudioFormat)
	assert.Equal(t, uint16(1), h.NumChannels)
	assert.Equal(t, uint32(16000), h.SampleRate)
	assert.Equal(t, uint32(32000), h.ByteRate)
	assert.Equal(t, uint16(16), h.BitsPerSample)
	assert.Equal(t, 44, h.DataOffset)
	assert.Equal(t, 10, h.DataSize)
	assert.Equal(t, int16(-1000), int16(binary.LittleEndian.Uint16(data[48:50])))
}

func TestParseHeader_SkipsUnknownChunks(t *testing.T) {
	data, err := Encode([]int16{1, 2, 3}, 8000, 1)
	require.NoError(t, err)

	// Insert an odd-sized LIST chunk between fmt and data.
	list := append([]byte("LIST"), 3, 0, 0, 0, 'a', 'b', 'c', 0)
	withList := append(append(append([]byte{}, data[:36]...), list...), data[36:]...)

	h, err := ParseHeader(withList)
	require.NoError(t, err)
	assert.Equal(t, 36+len(list)+8, h.DataOffset)
	assert.Equal(t, 6, h.DataSize)
}

func TestParseHeader_ClampsStreamingDataSize(t *testing.T) {
	data, err := Encode([]int16{1, 2, 3}, 8000, 1)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[40:44], 0xFFFFFFFF)

	h, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 44, h.DataOffset)
	assert.Equal(t, 6, h.DataSize)
}

func TestParseHeader_Invalid(t *testing.T) {
	valid, err := Encode([]int16{1}, 8000, 1)
	require.NoError(t, err)

	notPCM := append([]byte{}, valid...)
	binary.LittleEndian.PutUint16(notPCM[20:22], 3)

	oversized := append(append([]byte{}, valid[:36]...), "LIST"...)
	oversized = binary.LittleEndian.AppendUint32(oversized, 0xFFFFFFF0)
	oversized = append(oversized, valid[36:]...)

	cases := map[string][]byte{
		"short":   []byte("RIFF"),
		"no riff": append([]byte("RIFX"), valid[4:]...),
		"no wave": append(append([]byte{}, valid[:8]...), append([]byte("AVI "), valid[12:]...)...),
		"no data": valid[:36],
		"not pcm": notPCM,
		"overrun": oversized,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHeader(data)
			require.ErrorIs(t, err, ErrInvalidWAV)
		})
	}
}

func TestEncode_RejectsBadInput(t *testing.T) {
	_, err := Encode(nil, 8000, 1)
	require.Error(t, err)
	_, err = Encode([]int16{1}, 0, 1)
	require.Error(t, err)
	_, err = Encode([]int16{1}, 8000, 0)
	require.Error(t, err)
}

func TestDevice_Supports(t *testing.T) {
	d := New("unused.wav")
	assert.True(t, d.Supports(recorder.FormatWAV))
	assert.False(t, d.Supports(recorder.FormatWebMOpus))
	assert.Equal(t, recorder.FormatWAV, recorder.SelectFormat(d, recorder.DefaultFormats))
}

func TestDevice_ReplaysWholeFile(t *testing.T) {
	path, data := writeWAV(t, make([]int16, 500), 8000)
	cache := payload.NewCache()
	rec := recorder.New(New(path, WithRealtime(false)), cache)

	sess, err := rec.Start(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := sess.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(data), res.Bytes)
	assert.False(t, res.AutoStopped)

	raw, err := payload.Decode(res.Payload)
	require.NoError(t, err)
	assert.Equal(t, data, raw)
}

func TestDevice_MissingFileIsAccessError(t *testing.T) {
	rec := recorder.New(New(filepath.Join(t.TempDir(), "absent.wav")), nil)
	_, err := rec.Start(context.Background())
	require.ErrorIs(t, err, recorder.ErrDeviceAccess)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDevice_StopDuringPacedPlayback(t *testing.T) {
	// Two seconds of audio at 8 kHz mono.
	path, _ := writeWAV(t, make([]int16, 16000), 8000)
	cfg := recorder.DefaultConfig()
	cfg.Capture.SampleRate = 8000
	cfg.Capture.ChunkInterval = 50 * time.Millisecond
	rec := recorder.New(New(path), nil, recorder.WithConfig(cfg))

	sess, err := rec.Start(context.Background())
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)
	sess.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := sess.Wait(ctx)
	require.NoError(t, err)
	assert.Greater(t, res.Bytes, 44)
	assert.Less(t, res.Bytes, 44+32000)

	raw, err := payload.Decode(res.Payload)
	require.NoError(t, err)
	require.Len(t, raw, res.Bytes)
	assert.Equal(t, uint32(len(raw)-8), binary.LittleEndian.Uint32(raw[4:8]))
	assert.Equal(t, uint32(len(raw)-44), binary.LittleEndian.Uint32(raw[40:44]))
	h, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw)-44, h.DataSize)
}

func TestPutUint32_SpansChunks(t *testing.T) {
	chunks := [][]byte{make([]byte, 3), make([]byte, 2), make([]byte, 4)}
	putUint32(chunks, 2, 0x04030201)
	assert.Equal(t, [][]byte{{0, 0, 1}, {2, 3}, {4, 0, 0, 0}}, chunks)
}

func TestPacedReader_HonoursStop(t *testing.T) {
	stop := make(chan struct{})
	p := &pacedReader{
		r:       nil,
		rate:    1,
		started: time.Now(),
		stop:    stop,
		step:    time.Millisecond,
	}
	done := make(chan error, 1)
	go func() {
		_, err := p.Read(make([]byte, 8))
		done <- err
	}()
	close(stop)
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, io.EOF))
	case <-time.After(time.Second):
		t.Fatal("read did not return after stop")
	}
}
