package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voicegate/payload"
	"github.com/jmcleod/voicegate/recorder"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a voice sample and report what was captured",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := captureSample(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s in %d chunks over %s (format %q, payload %d characters)\n",
			sizeText(res.Bytes), res.Chunks, res.Duration.Round(100*time.Millisecond), formatName(res.Format), res.Payload.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
	addRecordingFlags(recordCmd)
}

// addRecordingFlags registers the capture overrides on a command that records.
func addRecordingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("device", "", "Capture device: alsa or wav")
	f.String("alsa-device", "", "ALSA PCM name passed to arecord")
	f.String("wav-file", "", "WAV file replayed by the wav device")
	f.Duration("max-duration", 0, "Maximum recording length")
}

// captureSample records until Enter is pressed, ctx is cancelled, the limit
// is reached or the device runs out of audio. The payload is left in the
// app's cache.
func captureSample(ctx context.Context, a *app, in io.Reader, out io.Writer) (*recorder.Result, error) {
	rec, err := a.recorder()
	if err != nil {
		return nil, err
	}
	sess, err := rec.Start(ctx)
	if err != nil {
		return nil, err
	}
	limit := rec.Config().MaxDuration
	fmt.Fprintln(out, "Speak now. Press Enter to stop.")

	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err == nil || line != "" {
			sess.Stop()
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			sess.Stop()
		case <-sess.Done():
		}
	}()

	for left := range sess.Updates() {
		fmt.Fprintf(out, "\r%s", countdownText(limit, left))
	}
	fmt.Fprintln(out)
	return sess.Wait(context.WithoutCancel(ctx))
}

// cachedPayload returns the last recording, or an empty payload.
func cachedPayload(c *payload.Cache, logger *slog.Logger) payload.Payload {
	p, ok := c.Load()
	if ok {
		logger.Debug("using cached recording",
			"age", time.Since(c.StoredAt()).Round(time.Millisecond),
			"payload_length", p.Len(),
		)
	}
	return p
}

func formatName(f string) string {
	if f == "" {
		return "native"
	}
	return f
}
