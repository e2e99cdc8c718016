package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound   = goerr.New("configuration file not found")
	ErrInvalidConfig    = goerr.New("invalid configuration")
	ErrInvalidDuration  = goerr.New("invalid duration")
	ErrMissingURL       = goerr.New("directory URL is required")
	ErrMissingToken     = goerr.New("directory token is required")
	ErrInvalidBackend   = goerr.New("invalid repository backend")
	ErrMissingProjectID = goerr.New("firestore-project-id is required when using firestore backend")
	ErrMissingDSN       = goerr.New("postgres-dsn is required when using postgres backend")
	ErrInvalidLogLevel  = goerr.New("invalid log level")
	ErrInvalidLogFormat = goerr.New("invalid log format")
	ErrMissingChannel   = goerr.New("slack-channel is required when slack-bot-token is set")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	FieldKey      = "field"
	ValueKey      = "value"
)
