// Package config loads livesynth settings from yaml file and environment.
package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// BackendOto pulls samples with ebitengine/oto.
	BackendOto = "oto"
	// BackendPortaudio pushes samples with portaudio.
	BackendPortaudio = "portaudio"
)

// Config of livesynth session.
type Config struct {
	SampleRate      int    `yaml:"sample_rate"`
	BlockSize       int    `yaml:"block_size"`
	Channels        int    `yaml:"channels"`
	Backend         string `yaml:"backend"`
	BufferMS        int    `yaml:"buffer_ms"`
	Patch           string `yaml:"patch"`
	WatchIntervalMS int    `yaml:"watch_interval_ms"`
	LogLevel        string `yaml:"log_level"`
}

// Default returns default configuration.
func Default() Config {
	return Config{
		SampleRate:      44100,
		BlockSize:       128,
		Channels:        2,
		Backend:         BackendOto,
		BufferMS:        50,
		Patch:           "patch.txt",
		WatchIntervalMS: 200,
		LogLevel:        "info",
	}
}

// Load reads configuration from yaml file at path on top of defaults.
// Empty path means defaults only. LIVESYNTH_* environment variables
// override both.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// BufferDuration returns device buffer duration.
func (c Config) BufferDuration() time.Duration {
	return time.Duration(c.BufferMS) * time.Millisecond
}

// BufferFrames returns device buffer size in frames.
func (c Config) BufferFrames() int {
	return c.SampleRate * c.BufferMS / 1000
}

// WatchInterval returns interval between patch file checks.
func (c Config) WatchInterval() time.Duration {
	return time.Duration(c.WatchIntervalMS) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	overrideInt(&cfg.SampleRate, "LIVESYNTH_SAMPLE_RATE")
	overrideInt(&cfg.BlockSize, "LIVESYNTH_BLOCK_SIZE")
	overrideInt(&cfg.Channels, "LIVESYNTH_CHANNELS")
	overrideString(&cfg.Backend, "LIVESYNTH_BACKEND")
	overrideInt(&cfg.BufferMS, "LIVESYNTH_BUFFER_MS")
	overrideString(&cfg.Patch, "LIVESYNTH_PATCH")
	overrideInt(&cfg.WatchIntervalMS, "LIVESYNTH_WATCH_INTERVAL_MS")
	overrideString(&cfg.LogLevel, "LIVESYNTH_LOG_LEVEL")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.SampleRate <= 0 {
		return errors.New("sample_rate must be positive")
	}
	if cfg.BlockSize <= 0 {
		return errors.New("block_size must be positive")
	}
	if cfg.Channels <= 0 {
		return errors.New("channels must be positive")
	}
	if cfg.Backend != BackendOto && cfg.Backend != BackendPortaudio {
		return fmt.Errorf("backend must be %s or %s, got %q", BackendOto, BackendPortaudio, cfg.Backend)
	}
	if cfg.BufferFrames() <= 0 {
		return errors.New("buffer_ms is too small for the sample rate")
	}
	if cfg.Patch == "" {
		return errors.New("patch must not be empty")
	}
	if cfg.WatchIntervalMS <= 0 {
		return errors.New("watch_interval_ms must be positive")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
