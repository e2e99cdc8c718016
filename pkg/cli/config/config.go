package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig is the optional TOML configuration file. Every value has a flag
// counterpart; a flag that is set wins over the file.
type AppConfig struct {
	Sync      SyncFile      `toml:"sync"`
	Directory DirectoryFile `toml:"directory"`
	Slack     SlackFile     `toml:"slack"`
}

// SyncFile is the [sync] section
type SyncFile struct {
	Interval   string `toml:"interval"`
	TxTimeout  string `toml:"tx_timeout"`
	BufferSize int    `toml:"buffer_size"`
}

// DirectoryFile is the [directory] section. The token is read only from the flag or environment.
type DirectoryFile struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
}

// SlackFile is the [slack] section
type SlackFile struct {
	Channel string `toml:"channel"`
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidDuration, "failed to parse duration",
			goerr.V(FieldKey, field),
			goerr.V(ValueKey, value))
	}
	if d < 0 {
		return 0, goerr.Wrap(ErrInvalidDuration, "duration must not be negative",
			goerr.V(FieldKey, field),
			goerr.V(ValueKey, value))
	}
	return d, nil
}

// Validate checks if the SyncFile is valid
func (s *SyncFile) Validate() error {
	if _, err := parseDuration("sync.interval", s.Interval); err != nil {
		return err
	}
	if _, err := parseDuration("sync.tx_timeout", s.TxTimeout); err != nil {
		return err
	}
	if s.BufferSize < 0 {
		return goerr.Wrap(ErrInvalidConfig, "buffer_size must not be negative",
			goerr.V(FieldKey, "sync.buffer_size"),
			goerr.V(ValueKey, s.BufferSize))
	}
	return nil
}

// IntervalDuration returns the parsed interval, zero when unset
func (s *SyncFile) IntervalDuration() time.Duration {
	d, _ := parseDuration("sync.interval", s.Interval)
	return d
}

// TxTimeoutDuration returns the parsed transaction timeout, zero when unset
func (s *SyncFile) TxTimeoutDuration() time.Duration {
	d, _ := parseDuration("sync.tx_timeout", s.TxTimeout)
	return d
}

// Validate checks if the DirectoryFile is valid
func (d *DirectoryFile) Validate() error {
	if _, err := parseDuration("directory.timeout", d.Timeout); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration returns the parsed request timeout, zero when unset
func (d *DirectoryFile) TimeoutDuration() time.Duration {
	v, _ := parseDuration("directory.timeout", d.Timeout)
	return v
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Sync.Validate(); err != nil {
		return goerr.Wrap(err, "invalid [sync] section")
	}
	if err := a.Directory.Validate(); err != nil {
		return goerr.Wrap(err, "invalid [directory] section")
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path),
			goerr.V("cause", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}
