package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReceiverConfig is the full configuration of rudp-recv.
type ReceiverConfig struct {
	Port   int    `yaml:"port"`
	OutDir string `yaml:"outdir"`
	Window uint16 `yaml:"window"`

	Compress string `yaml:"compress"` // "none" (default), "gzip", "zstd"

	S3 S3Config `yaml:"s3"`

	Logging LoggingInfo `yaml:"logging"`
}

// S3Config configures the optional secondary persistence backend: a
// completed session's output file is additionally uploaded to this bucket
// once FIN has been processed. Left zero-valued, the feature is disabled.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`

	// AccessKeyID/SecretAccessKey optionally override the default AWS
	// credential chain (env vars, shared config, instance role). Left
	// empty, the default chain is used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Enabled reports whether S3 mirroring was configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// DefaultReceiverConfig returns the spec's default receiver configuration.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		Port:     9000,
		OutDir:   "./server_data",
		Window:   8,
		Compress: "none",
		Logging:  LoggingInfo{Level: "info", Format: "json"},
	}
}

// LoadReceiverConfig reads and validates a YAML overlay, starting from
// ReceiverConfig's defaults.
func LoadReceiverConfig(path string) (*ReceiverConfig, error) {
	cfg := DefaultReceiverConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading receiver config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing receiver config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating receiver config: %w", err)
	}
	return &cfg, nil
}

// Validate fills in defaults for unset fields and rejects invalid settings.
func (c *ReceiverConfig) Validate() error {
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.OutDir == "" {
		c.OutDir = "./server_data"
	}
	if c.Window == 0 {
		c.Window = 8
	}
	switch c.Compress {
	case "":
		c.Compress = "none"
	case "none", "gzip", "zstd":
	default:
		return fmt.Errorf("compress must be one of none, gzip, zstd, got %q", c.Compress)
	}
	if c.S3.Enabled() && c.S3.Region == "" {
		return fmt.Errorf("s3.region is required when s3.bucket is set")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}
