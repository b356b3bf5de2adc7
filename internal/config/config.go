// Package config loads waylink settings from TOML. Keys absent from the file
// keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/waylink/internal/client"
	"github.com/danmuck/waylink/internal/logging"
	"github.com/danmuck/waylink/internal/transport"
	"github.com/danmuck/waylink/internal/wire"
	"github.com/rs/zerolog"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Display         string
	RuntimeDir      string
	ReadBufferSize  int
	MaxFDsPerRead   int
	ConnectTimeout  time.Duration
	ConnectAttempts int
	SyncTimeout     time.Duration
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	LogLevel        zerolog.Level
}

type fileConfig struct {
	Display         string `toml:"display"`
	RuntimeDir      string `toml:"runtime_dir"`
	ReadBufferSize  int    `toml:"read_buffer_size"`
	MaxFDsPerRead   int    `toml:"max_fds_per_read"`
	ConnectTimeout  string `toml:"connect_timeout"`
	ConnectAttempts int    `toml:"connect_attempts"`
	SyncTimeout     string `toml:"sync_timeout"`
	BackoffInitial  string `toml:"backoff_initial"`
	BackoffMax      string `toml:"backoff_max"`
	LogLevel        string `toml:"log_level"`
}

func Default() Config {
	tc := transport.DefaultConfig()
	cc := client.DefaultConfig()
	return Config{
		ReadBufferSize:  tc.ReadBufferSize,
		MaxFDsPerRead:   tc.MaxFDsPerRead,
		ConnectTimeout:  tc.ConnectTimeout,
		ConnectAttempts: tc.ConnectAttempts,
		SyncTimeout:     cc.SyncTimeout,
		BackoffInitial:  tc.Backoff.InitialDelay,
		BackoffMax:      tc.Backoff.MaxDelay,
		LogLevel:        zerolog.InfoLevel,
	}
}

// Load reads path and overlays every defined key onto Default.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return apply(raw, meta)
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return apply(raw, meta)
}

func apply(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := Default()
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}

	if meta.IsDefined("display") {
		cfg.Display = strings.TrimSpace(raw.Display)
	}
	if meta.IsDefined("runtime_dir") {
		cfg.RuntimeDir = strings.TrimSpace(raw.RuntimeDir)
	}
	if meta.IsDefined("read_buffer_size") {
		cfg.ReadBufferSize = raw.ReadBufferSize
	}
	if meta.IsDefined("max_fds_per_read") {
		cfg.MaxFDsPerRead = raw.MaxFDsPerRead
	}
	if meta.IsDefined("connect_attempts") {
		cfg.ConnectAttempts = raw.ConnectAttempts
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"sync_timeout", raw.SyncTimeout, &cfg.SyncTimeout},
		{"backoff_initial", raw.BackoffInitial, &cfg.BackoffInitial},
		{"backoff_max", raw.BackoffMax, &cfg.BackoffMax},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("log_level") {
		level, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("%w: log_level %q", ErrInvalid, raw.LogLevel)
		}
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.ReadBufferSize < wire.HeaderLen:
		return fmt.Errorf("%w: read_buffer_size %d below header length %d", ErrInvalid, c.ReadBufferSize, wire.HeaderLen)
	case c.ReadBufferSize > 1<<20:
		return fmt.Errorf("%w: read_buffer_size %d above 1MiB", ErrInvalid, c.ReadBufferSize)
	case c.MaxFDsPerRead <= 0:
		return fmt.Errorf("%w: max_fds_per_read must be positive", ErrInvalid)
	case c.ConnectAttempts <= 0:
		return fmt.Errorf("%w: connect_attempts must be positive", ErrInvalid)
	case c.ConnectTimeout < 0 || c.SyncTimeout < 0:
		return fmt.Errorf("%w: negative timeout", ErrInvalid)
	case c.BackoffInitial <= 0:
		return fmt.Errorf("%w: backoff_initial must be positive", ErrInvalid)
	case c.BackoffMax > 0 && c.BackoffMax < c.BackoffInitial:
		return fmt.Errorf("%w: backoff_max below backoff_initial", ErrInvalid)
	}
	return nil
}

func (c Config) TransportConfig() transport.Config {
	tc := transport.DefaultConfig()
	tc.Display = c.Display
	tc.RuntimeDir = c.RuntimeDir
	tc.ReadBufferSize = c.ReadBufferSize
	tc.MaxFDsPerRead = c.MaxFDsPerRead
	tc.ConnectTimeout = c.ConnectTimeout
	tc.ConnectAttempts = c.ConnectAttempts
	tc.Backoff.InitialDelay = c.BackoffInitial
	tc.Backoff.MaxDelay = c.BackoffMax
	return tc
}

func (c Config) ClientConfig() client.Config {
	return client.Config{
		SyncTimeout: c.SyncTimeout,
		Transport:   c.TransportConfig(),
	}
}

// LoggingConfig starts from the runtime profile and applies log_level.
func (c Config) LoggingConfig() logging.Config {
	lc := logging.Resolve(logging.ProfileRuntime)
	lc.Level = c.LogLevel
	return lc
}

// Encode renders c in the same TOML layout Load accepts.
func (c Config) Encode() ([]byte, error) {
	raw := fileConfig{
		Display:         c.Display,
		RuntimeDir:      c.RuntimeDir,
		ReadBufferSize:  c.ReadBufferSize,
		MaxFDsPerRead:   c.MaxFDsPerRead,
		ConnectTimeout:  c.ConnectTimeout.String(),
		ConnectAttempts: c.ConnectAttempts,
		SyncTimeout:     c.SyncTimeout.String(),
		BackoffInitial:  c.BackoffInitial.String(),
		BackoffMax:      c.BackoffMax.String(),
		LogLevel:        c.LogLevel.String(),
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
