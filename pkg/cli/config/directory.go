package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/service/directory"
	"github.com/urfave/cli/v3"
)

// Directory holds CLI flags for the directory API
type Directory struct {
	url     string
	token   string
	timeout time.Duration
}

func (x *Directory) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "directory-url",
			Usage:       "Roster endpoint of the directory API",
			Category:    "Directory",
			Destination: &x.url,
			Sources:     cli.EnvVars("ROSTERSYNC_DIRECTORY_URL"),
		},
		&cli.StringFlag{
			Name:        "directory-token",
			Usage:       "Token sent in the x-auth-token header",
			Category:    "Directory",
			Destination: &x.token,
			Sources:     cli.EnvVars("ROSTERSYNC_DIRECTORY_TOKEN"),
		},
		&cli.DurationFlag{
			Name:        "directory-timeout",
			Usage:       "Bound on one roster download (0 = none)",
			Category:    "Directory",
			Destination: &x.timeout,
			Sources:     cli.EnvVars("ROSTERSYNC_DIRECTORY_TIMEOUT"),
		},
	}
}

func (x Directory) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", x.url),
		slog.Int("token.len", len(x.token)),
		slog.Duration("timeout", x.timeout),
	)
}

// Merge fills values that were not set by a flag or environment variable from
// the [directory] file section. isSet is usually (*cli.Command).IsSet.
func (x *Directory) Merge(file DirectoryFile, isSet func(name string) bool) {
	if !isSet("directory-url") && file.URL != "" {
		x.url = file.URL
	}
	if !isSet("directory-timeout") && file.Timeout != "" {
		x.timeout = file.TimeoutDuration()
	}
}

// Configure creates the directory client
func (x *Directory) Configure() (*directory.Client, error) {
	if x.url == "" {
		return nil, goerr.Wrap(ErrMissingURL, "invalid directory configuration")
	}
	if x.token == "" {
		return nil, goerr.Wrap(ErrMissingToken, "invalid directory configuration")
	}

	var opts []directory.Option
	if x.timeout > 0 {
		opts = append(opts, directory.WithTimeout(x.timeout))
	}
	return directory.New(x.url, x.token, opts...)
}
