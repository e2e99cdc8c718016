package config

import "time"

// NewDirectoryForTest creates a Directory config for testing purposes
func NewDirectoryForTest(url, token string, timeout time.Duration) *Directory {
	return &Directory{url: url, token: token, timeout: timeout}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, sqlitePath, postgresDSN, projectID string) *Repository {
	return &Repository{
		backend:     backend,
		sqlitePath:  sqlitePath,
		postgresDSN: postgresDSN,
		projectID:   projectID,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewSyncForTest creates a Sync config for testing purposes
func NewSyncForTest(interval, txTimeout time.Duration, bufferSize int) *Sync {
	return &Sync{interval: interval, txTimeout: txTimeout, bufferSize: bufferSize}
}

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, channel string) *Slack {
	return &Slack{botToken: botToken, channel: channel}
}

func (x *Directory) URL() string { return x.url }
func (x *Directory) Timeout() time.Duration { return x.timeout }
func (x *Sync) Interval() time.Duration { return x.interval }
func (x *Sync) TxTimeout() time.Duration { return x.txTimeout }
func (x *Sync) BufferSize() int { return x.bufferSize }
func (x *Slack) Channel() string { return x.channel }
