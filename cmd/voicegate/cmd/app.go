package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voicegate/authclient"
	"github.com/jmcleod/voicegate/config"
	"github.com/jmcleod/voicegate/internal/logging"
	"github.com/jmcleod/voicegate/internal/util"
	"github.com/jmcleod/voicegate/payload"
	"github.com/jmcleod/voicegate/recorder"
	"github.com/jmcleod/voicegate/recorder/alsa"
	"github.com/jmcleod/voicegate/recorder/wavfile"
	"github.com/jmcleod/voicegate/storage"
	bboltstorage "github.com/jmcleod/voicegate/storage/bbolt"
	"github.com/jmcleod/voicegate/storage/memory"
)

// app is what a command needs, built from the loaded configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   *payload.Cache
	closers []io.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, logCloser := logging.New(cfg.LoggingOptions())
	return &app{
		cfg:     cfg,
		logger:  logger,
		cache:   payload.NewCache(),
		closers: []io.Closer{logCloser},
	}, nil
}

// Close drops the cached recording and releases storage and log files.
func (a *app) Close() error {
	a.cache.Clear()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func (a *app) device() (recorder.Device, error) {
	rc := a.cfg.Recording
	switch rc.Device {
	case "wav":
		return wavfile.New(rc.WAVFile, wavfile.WithLogger(a.logger)), nil
	case "alsa":
		return alsa.New(rc.ALSADevice, alsa.WithLogger(a.logger)), nil
	default:
		return nil, fmt.Errorf("unknown recording device %q", rc.Device)
	}
}

func (a *app) recorder() (*recorder.Recorder, error) {
	dev, err := a.device()
	if err != nil {
		return nil, err
	}
	return recorder.New(dev, a.cache,
		recorder.WithConfig(a.cfg.RecorderConfig()),
		recorder.WithLogger(a.logger),
	), nil
}

func (a *app) cookieRepository() (storage.Repository, []byte, error) {
	sc := a.cfg.Storage
	if sc.CookieStore == "memory" {
		key, err := util.RandomBytes(32)
		if err != nil {
			return nil, nil, err
		}
		return memory.NewRepository(), key, nil
	}
	if err := os.MkdirAll(sc.DataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	key, err := authclient.LoadOrCreateKey(a.cfg.CookieKeyPath())
	if err != nil {
		return nil, nil, err
	}
	repo, err := bboltstorage.NewRepositoryFromFile(a.cfg.CookieDBPath(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cookie storage: %w", err)
	}
	a.closers = append(a.closers, repo)
	return repo, key, nil
}

func (a *app) client() (*authclient.Client, error) {
	repo, key, err := a.cookieRepository()
	if err != nil {
		return nil, err
	}
	jar, err := authclient.NewJar(repo, key, authclient.WithJarLogger(a.logger))
	if err != nil {
		return nil, err
	}
	opts := []authclient.Option{
		authclient.WithCookieJar(jar),
		authclient.WithTimeout(a.cfg.Server.Timeout),
		authclient.WithUserAgent(a.cfg.Server.UserAgent + "/" + Version),
		authclient.WithLogger(a.logger),
	}
	for action, ep := range a.cfg.Endpoints() {
		opts = append(opts, authclient.WithEndpoint(action, ep))
	}
	return authclient.New(a.cfg.Server.URL, opts...)
}
