// Package config loads voicegate settings from a YAML file, VOICEGATE_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmcleod/voicegate/authclient"
	"github.com/jmcleod/voicegate/internal/logging"
	"github.com/jmcleod/voicegate/recorder"
)

const (
	EnvPrefix       = "VOICEGATE"
	DefaultFileName = "config.yaml"
	defaultDirName  = ".voicegate"
)

// Config is the full set of settings.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Actions   ActionsConfig   `mapstructure:"actions"`
	Recording RecordingConfig `mapstructure:"recording"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	URL       string        `mapstructure:"url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	UserAgent string        `mapstructure:"user_agent" validate:"required"`
}

type ActionConfig struct {
	Path        string `mapstructure:"path" validate:"required"`
	Credentials string `mapstructure:"credentials" validate:"oneof=include same-origin omit"`
}

type ActionsConfig struct {
	CreateAccount ActionConfig `mapstructure:"create_account"`
	Login         ActionConfig `mapstructure:"login"`
	Logout        ActionConfig `mapstructure:"logout"`
	AccountLogout ActionConfig `mapstructure:"account_logout"`
}

type RecordingConfig struct {
	// Device is alsa or wav.
	Device           string        `mapstructure:"device" validate:"oneof=alsa wav"`
	ALSADevice       string        `mapstructure:"alsa_device"`
	WAVFile          string        `mapstructure:"wav_file" validate:"required_if=Device wav"`
	MaxDuration      time.Duration `mapstructure:"max_duration" validate:"gt=0"`
	ChunkInterval    time.Duration `mapstructure:"chunk_interval" validate:"gt=0"`
	TickInterval     time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	SampleRate       int           `mapstructure:"sample_rate" validate:"gt=0"`
	Channels         int           `mapstructure:"channels" validate:"gt=0"`
	EchoCancellation bool          `mapstructure:"echo_cancellation"`
	NoiseSuppression bool          `mapstructure:"noise_suppression"`
	AutoGainControl  bool          `mapstructure:"auto_gain_control"`
	Formats          []string      `mapstructure:"formats"`
}

type StorageConfig struct {
	// CookieStore is memory or bbolt.
	CookieStore string `mapstructure:"cookie_store" validate:"oneof=memory bbolt"`
	DataDir     string `mapstructure:"data_dir" validate:"required"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	Output     string `mapstructure:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"server":       "server.url",
	"timeout":      "server.timeout",
	"device":       "recording.device",
	"alsa-device":  "recording.alsa_device",
	"wav-file":     "recording.wav_file",
	"max-duration": "recording.max_duration",
	"cookie-store": "storage.cookie_store",
	"data-dir":     "storage.data_dir",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"log-output":   "logging.output",
}

// DefaultDir returns $HOME/.voicegate, or .voicegate when there is no home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDirName
	}
	return filepath.Join(home, defaultDirName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8000")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.user_agent", "voicegate")

	for key, ep := range map[string]authclient.Endpoint{
		"create_account": authclient.DefaultEndpoints()[authclient.ActionCreateAccount],
		"login":          authclient.DefaultEndpoints()[authclient.ActionLogin],
		"logout":         authclient.DefaultEndpoints()[authclient.ActionLogout],
		"account_logout": authclient.DefaultEndpoints()[authclient.ActionAccountLogout],
	} {
		v.SetDefault("actions."+key+".path", ep.Path)
		v.SetDefault("actions."+key+".credentials", string(ep.Credentials))
	}

	rec := recorder.DefaultConfig()
	v.SetDefault("recording.device", "alsa")
	v.SetDefault("recording.alsa_device", "default")
	v.SetDefault("recording.wav_file", "")
	v.SetDefault("recording.max_duration", rec.MaxDuration.String())
	v.SetDefault("recording.chunk_interval", rec.Capture.ChunkInterval.String())
	v.SetDefault("recording.tick_interval", rec.TickInterval.String())
	v.SetDefault("recording.sample_rate", rec.Capture.SampleRate)
	v.SetDefault("recording.channels", rec.Capture.Channels)
	v.SetDefault("recording.echo_cancellation", rec.Capture.EchoCancellation)
	v.SetDefault("recording.noise_suppression", rec.Capture.NoiseSuppression)
	v.SetDefault("recording.auto_gain_control", rec.Capture.AutoGainControl)
	v.SetDefault("recording.formats", rec.Formats)

	v.SetDefault("storage.cookie_store", "bbolt")
	v.SetDefault("storage.data_dir", DefaultDir())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// Load builds the configuration. An explicit path must exist; without one,
// $HOME/.voicegate/config.yaml is read when present. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if path == "" {
		candidate := filepath.Join(DefaultDir(), DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Endpoints returns the per-action transport settings for authclient.
func (c *Config) Endpoints() map[authclient.Action]authclient.Endpoint {
	conv := func(a ActionConfig) authclient.Endpoint {
		return authclient.Endpoint{Path: a.Path, Credentials: authclient.CredentialsMode(a.Credentials)}
	}
	return map[authclient.Action]authclient.Endpoint{
		authclient.ActionCreateAccount: conv(c.Actions.CreateAccount),
		authclient.ActionLogin:         conv(c.Actions.Login),
		authclient.ActionLogout:        conv(c.Actions.Logout),
		authclient.ActionAccountLogout: conv(c.Actions.AccountLogout),
	}
}

// RecorderConfig returns the capture settings for recorder.New.
func (c *Config) RecorderConfig() recorder.Config {
	r := c.Recording
	return recorder.Config{
		Capture: recorder.CaptureConfig{
			Channels:         r.Channels,
			SampleRate:       r.SampleRate,
			EchoCancellation: r.EchoCancellation,
			NoiseSuppression: r.NoiseSuppression,
			AutoGainControl:  r.AutoGainControl,
			ChunkInterval:    r.ChunkInterval,
		},
		MaxDuration:  r.MaxDuration,
		TickInterval: r.TickInterval,
		Formats:      append([]string(nil), r.Formats...),
	}
}

// LoggingOptions returns the settings for logging.New.
func (c *Config) LoggingOptions() logging.Options {
	l := c.Logging
	return logging.Options{
		Level:      l.Level,
		Format:     l.Format,
		Output:     l.Output,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
	}
}

// CookieDBPath is the bbolt file holding session cookies.
func (c *Config) CookieDBPath() string {
	return filepath.Join(c.Storage.DataDir, "cookies.db")
}

// CookieKeyPath is the file holding the cookie master key.
func (c *Config) CookieKeyPath() string {
	return filepath.Join(c.Storage.DataDir, "cookie.key")
}
