package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/plaza-hq/rostersync/pkg/cli/config"
	"github.com/plaza-hq/rostersync/pkg/service/statusbus"
	"github.com/plaza-hq/rostersync/pkg/service/worker"
	"github.com/urfave/cli/v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rostersync.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestLoadAppConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		check   func(t *testing.T, cfg *config.AppConfig)
	}{
		{
			name: "all sections",
			content: `
[sync]
interval = "5m"
tx_timeout = "10s"
buffer_size = 64

[directory]
url = "https://intranet.example.com/api/users"
timeout = "30s"

[slack]
channel = "directory-alerts"
`,
			check: func(t *testing.T, cfg *config.AppConfig) {
				gt.Value(t, cfg.Sync.IntervalDuration()).Equal(5 * time.Minute)
				gt.Value(t, cfg.Sync.TxTimeoutDuration()).Equal(10 * time.Second)
				gt.Number(t, cfg.Sync.BufferSize).Equal(64)
				gt.Value(t, cfg.Directory.URL).Equal("https://intranet.example.com/api/users")
				gt.Value(t, cfg.Directory.TimeoutDuration()).Equal(30 * time.Second)
				gt.Value(t, cfg.Slack.Channel).Equal("directory-alerts")
			},
		},
		{
			name:    "empty file",
			content: "",
			check: func(t *testing.T, cfg *config.AppConfig) {
				gt.Value(t, cfg.Sync.IntervalDuration()).Equal(time.Duration(0))
				gt.Value(t, cfg.Directory.URL).Equal("")
			},
		},
		{
			name:    "malformed TOML",
			content: "[sync\ninterval = ",
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "invalid interval",
			content: "[sync]\ninterval = \"soon\"\n",
			wantErr: config.ErrInvalidDuration,
		},
		{
			name:    "negative timeout",
			content: "[directory]\ntimeout = \"-1s\"\n",
			wantErr: config.ErrInvalidDuration,
		},
		{
			name:    "negative buffer size",
			content: "[sync]\nbuffer_size = -1\n",
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadAppConfiguration(writeConfig(t, tt.content))
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err).Required()
			tt.check(t, cfg)
		})
	}
}

func TestLoadAppConfiguration_NotFound(t *testing.T) {
	_, err := config.LoadAppConfiguration(filepath.Join(t.TempDir(), "missing.toml"))
	gt.Error(t, err).Is(config.ErrConfigNotFound)
}

func flagsSet(names ...string) func(string) bool {
	return func(name string) bool {
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return false
	}
}

func TestDirectory_Merge(t *testing.T) {
	file := config.DirectoryFile{URL: "https://file.example.com", Timeout: "15s"}

	t.Run("file fills unset flags", func(t *testing.T) {
		d := config.NewDirectoryForTest("", "token", 0)
		d.Merge(file, flagsSet())
		gt.Value(t, d.URL()).Equal("https://file.example.com")
		gt.Value(t, d.Timeout()).Equal(15 * time.Second)
	})

	t.Run("flags win over file", func(t *testing.T) {
		d := config.NewDirectoryForTest("https://flag.example.com", "token", 0)
		d.Merge(file, flagsSet("directory-url", "directory-timeout"))
		gt.Value(t, d.URL()).Equal("https://flag.example.com")
		gt.Value(t, d.Timeout()).Equal(time.Duration(0))
	})
}

func TestDirectory_Configure(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		client, err := config.NewDirectoryForTest("https://example.com/api/users", "token", time.Second).Configure()
		gt.NoError(t, err)
		gt.Value(t, client).NotNil()
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := config.NewDirectoryForTest("", "token", 0).Configure()
		gt.Error(t, err).Is(config.ErrMissingURL)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := config.NewDirectoryForTest("https://example.com/api/users", "", 0).Configure()
		gt.Error(t, err).Is(config.ErrMissingToken)
	})
}

func TestSync_Merge(t *testing.T) {
	file := config.SyncFile{Interval: "2m", TxTimeout: "3s", BufferSize: 8}

	t.Run("defaults are replaced by file", func(t *testing.T) {
		s := config.NewSyncForTest(worker.DefaultInterval, 0, statusbus.DefaultBufferSize)
		s.Merge(file, flagsSet())
		gt.Value(t, s.Interval()).Equal(2 * time.Minute)
		gt.Value(t, s.TxTimeout()).Equal(3 * time.Second)
		gt.Number(t, s.BufferSize()).Equal(8)
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		s := config.NewSyncForTest(worker.DefaultInterval, 0, statusbus.DefaultBufferSize)
		s.Merge(config.SyncFile{}, flagsSet())
		gt.Value(t, s.Interval()).Equal(worker.DefaultInterval)
		gt.Number(t, s.BufferSize()).Equal(statusbus.DefaultBufferSize)
	})

	t.Run("explicit flags equal to defaults still win", func(t *testing.T) {
		var s config.Sync
		cmd := &cli.Command{
			Name:  "sync",
			Flags: s.Flags(),
			Action: func(ctx context.Context, c *cli.Command) error {
				s.Merge(file, c.IsSet)
				return nil
			},
		}
		err := cmd.Run(context.Background(), []string{"sync", "--interval", "60s", "--tx-timeout", "0s"})
		gt.NoError(t, err).Required()

		gt.Value(t, s.Interval()).Equal(60 * time.Second)
		gt.Value(t, s.TxTimeout()).Equal(time.Duration(0))
		gt.Number(t, s.BufferSize()).Equal(8)
	})

	t.Run("options are built", func(t *testing.T) {
		s := config.NewSyncForTest(time.Minute, time.Second, 4)
		gt.Array(t, s.BusOptions()).Length(1)
		gt.Array(t, s.UseCaseOptions()).Length(1)
		gt.Array(t, s.WorkerOptions()).Length(1)
	})
}

func TestRepository_Validate(t *testing.T) {
	tests := []struct {
		name    string
		repo    *config.Repository
		wantErr error
	}{
		{name: "memory", repo: config.NewRepositoryForTest(config.BackendMemory, "", "", "")},
		{name: "sqlite", repo: config.NewRepositoryForTest(config.BackendSQLite, "x.db", "", "")},
		{name: "postgres", repo: config.NewRepositoryForTest(config.BackendPostgres, "", "postgres://localhost/db", "")},
		{name: "firestore", repo: config.NewRepositoryForTest(config.BackendFirestore, "", "", "project")},
		{name: "postgres without dsn", repo: config.NewRepositoryForTest(config.BackendPostgres, "", "", ""), wantErr: config.ErrMissingDSN},
		{name: "firestore without project", repo: config.NewRepositoryForTest(config.BackendFirestore, "", "", ""), wantErr: config.ErrMissingProjectID},
		{name: "unknown backend", repo: config.NewRepositoryForTest("mysql", "", "", ""), wantErr: config.ErrInvalidBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.repo.Validate()
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err)
		})
	}
}

func TestRepository_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest(config.BackendMemory, "", "", "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite is migrated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roster.db")
		repo, err := config.NewRepositoryForTest(config.BackendSQLite, path, "", "").Configure(ctx)
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, repo.Close()) }()

		_, statErr := os.Stat(path)
		gt.NoError(t, statErr)
	})

	t.Run("schema", func(t *testing.T) {
		gt.String(t, config.NewRepositoryForTest(config.BackendSQLite, "", "", "").Schema()).Contains("CREATE TABLE")
		gt.String(t, config.NewRepositoryForTest(config.BackendPostgres, "", "", "").Schema()).Contains("CREATE TABLE")
		gt.Value(t, config.NewRepositoryForTest(config.BackendMemory, "", "", "").Schema()).Equal("")
	})
}

func TestLogger_Configure(t *testing.T) {
	t.Run("console to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rostersync.log")
		closer, err := config.NewLoggerForTest("debug", "console", path).Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("json to stdout", func(t *testing.T) {
		closer, err := config.NewLoggerForTest("INFO", "json", "stdout").Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "console", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidLogLevel)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidLogFormat)
	})
}

func TestSlack_Configure(t *testing.T) {
	t.Run("disabled without token", func(t *testing.T) {
		n, err := config.NewSlackForTest("", "").Configure()
		gt.NoError(t, err)
		gt.Value(t, n).Nil()
	})

	t.Run("channel required with token", func(t *testing.T) {
		_, err := config.NewSlackForTest("xoxb-test", "").Configure()
		gt.Error(t, err).Is(config.ErrMissingChannel)
	})

	t.Run("file fills channel", func(t *testing.T) {
		s := config.NewSlackForTest("xoxb-test", "")
		s.Merge(config.SlackFile{Channel: "alerts"}, flagsSet())
		gt.Value(t, s.Channel()).Equal("alerts")

		n, err := s.Configure()
		gt.NoError(t, err)
		gt.Value(t, n).NotNil()
	})

	t.Run("flag channel wins over file", func(t *testing.T) {
		s := config.NewSlackForTest("xoxb-test", "from-flag")
		s.Merge(config.SlackFile{Channel: "alerts"}, flagsSet("slack-channel"))
		gt.Value(t, s.Channel()).Equal("from-flag")
	})
}

func TestLoadAppConfiguration_ErrorKeepsPath(t *testing.T) {
	path := writeConfig(t, "[sync\n")
	_, err := config.LoadAppConfiguration(path)
	gt.Value(t, err).NotNil().Required()
	gt.Bool(t, errors.Is(err, config.ErrInvalidConfig)).True()
	gt.String(t, err.Error()).NotEqual("")
}
