// Package config loads sendwire's yaml configuration, layering file values
// over built-in defaults. Command-line flags override both.
package config

import (
	"fmt"
	"os"
	"time"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the CLI exposes. String sizes ("2MiB") are
// parsed lazily so the yaml stays human-editable.
type Config struct {
	// Listen is the receive-side bind address.
	Listen string `yaml:"listen"`
	// StateDir holds the bbolt session journal.
	StateDir string `yaml:"state_dir"`
	// ChunkSize bounds one transfer call, e.g. "2MiB".
	ChunkSize string `yaml:"chunk_size"`
	// DeadPeerTimeout is the total stall tolerated before a peer is
	// declared gone.
	DeadPeerTimeout time.Duration `yaml:"dead_peer_timeout"`
	// PollInterval is the writability poll cadence while stalled.
	PollInterval time.Duration `yaml:"poll_interval"`
	// MaxRetries bounds consecutive transient write failures on one range.
	MaxRetries int `yaml:"max_retries"`
	// RetryBackoff is the pause between those retries.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	// Workers bounds concurrent inbound sessions on the receive side.
	Workers int `yaml:"workers"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:          ":9444",
		StateDir:        "./.sendwire-state",
		ChunkSize:       "2MiB",
		DeadPeerTimeout: 60 * time.Second,
		PollInterval:    250 * time.Millisecond,
		MaxRetries:      100,
		RetryBackoff:    100 * time.Millisecond,
		Workers:         8,
		LogLevel:        "info",
	}
}

// Load reads path over the defaults. An empty path returns the defaults; a
// missing file is an error so typos do not silently fall back.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ChunkBytes parses the configured chunk size.
func (c *Config) ChunkBytes() (int64, error) {
	n, err := units.RAMInBytes(c.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("chunk_size %q: %w", c.ChunkSize, err)
	}
	return n, nil
}
