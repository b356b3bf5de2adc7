package transport

import (
	"time"

	"github.com/danmuck/waylink/internal/wire"
)

const (
	DefaultReadBufferSize = 4096
	// DefaultMaxFDsPerRead matches the descriptor cap libwayland applies per message batch.
	DefaultMaxFDsPerRead = 28
)

// BackoffConfig defines connect retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines endpoint and socket behavior.
type Config struct {
	// Display is a socket name relative to RuntimeDir, or an absolute path.
	// Empty falls back to the environment.
	Display         string
	RuntimeDir      string
	ReadBufferSize  int
	MaxFDsPerRead   int
	ConnectTimeout  time.Duration
	WriteTimeout    time.Duration
	ConnectAttempts int
	Backoff         BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  DefaultReadBufferSize,
		MaxFDsPerRead:   DefaultMaxFDsPerRead,
		ConnectTimeout:  5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ConnectAttempts: 1,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ReadBufferSize < wire.HeaderLen {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.MaxFDsPerRead <= 0 {
		c.MaxFDsPerRead = def.MaxFDsPerRead
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = def.ConnectAttempts
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}
