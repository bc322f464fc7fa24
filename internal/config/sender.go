package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SenderConfig is the full configuration of rudp-send: the CLI flags
// recognized by cmd/rudp-send plus an optional YAML overlay loaded with
// -config.
type SenderConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	File string `yaml:"file"`

	Chunk     string `yaml:"chunk"` // human size, e.g. "1024" or "4kb"
	ChunkSize uint32 `yaml:"-"`     // parsed bytes, filled by Validate()

	Window     uint16        `yaml:"window"`
	TimeoutMS  int           `yaml:"timeout_ms"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"-"` // derived from TimeoutMS

	Schedule string      `yaml:"schedule"` // optional cron expression; repeat the transfer
	Logging  LoggingInfo `yaml:"logging"`
}

// DefaultSenderConfig returns the spec's default sender configuration.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Host:       "127.0.0.1",
		Port:       9000,
		Chunk:      "1024",
		Window:     8,
		TimeoutMS:  300,
		MaxRetries: 20,
		Logging:    LoggingInfo{Level: "info", Format: "json"},
	}
}

// LoadSenderConfig reads and validates a YAML overlay file, starting from
// SenderConfig's defaults so an overlay may specify only the fields it
// wants to override.
func LoadSenderConfig(path string) (*SenderConfig, error) {
	cfg := DefaultSenderConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sender config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing sender config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating sender config: %w", err)
	}
	return &cfg, nil
}

// Validate fills in defaults for unset fields and parses the human-readable
// chunk size, rejecting values that would make the protocol's invariants
// (chunk_size > 0, window > 0) impossible to satisfy.
func (c *SenderConfig) Validate() error {
	if c.File == "" {
		return fmt.Errorf("file is required")
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.Chunk == "" {
		c.Chunk = "1024"
	}
	chunkSize, err := ParseByteSize(c.Chunk)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	if chunkSize <= 0 || chunkSize > 65507 {
		return fmt.Errorf("chunk must be between 1 and 65507 bytes, got %d", chunkSize)
	}
	c.ChunkSize = uint32(chunkSize)

	if c.Window == 0 {
		c.Window = 8
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 300
	}
	c.Timeout = time.Duration(c.TimeoutMS) * time.Millisecond
	if c.MaxRetries <= 0 {
		c.MaxRetries = 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

// LoggingInfo is the shared sender/receiver logging configuration block.
type LoggingInfo struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ParseByteSize converts human-readable strings like "256mb" or "1gb" to a
// byte count. A bare number is interpreted as bytes.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Ordered longest-suffix-first so "mb" isn't matched as "b".
	type suffix struct {
		s string
		m int64
	}
	suffixes := []suffix{
		{"gb", 1024 * 1024 * 1024},
		{"mb", 1024 * 1024},
		{"kb", 1024},
		{"b", 1},
	}

	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.s) {
			numStr := strings.TrimSuffix(s, sfx.s)
			num, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number %q: %w", numStr, err)
			}
			return num * sfx.m, nil
		}
	}

	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown size format %q", s)
	}
	return num, nil
}
