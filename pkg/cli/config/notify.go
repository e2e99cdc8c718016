package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/service/slack"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for failure notifications
type Slack struct {
	botToken string
	channel  string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token; enables failure notifications",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("ROSTERSYNC_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Channel ID or name to notify",
			Category:    "Slack",
			Destination: &x.channel,
			Sources:     cli.EnvVars("ROSTERSYNC_SLACK_CHANNEL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel", x.channel),
	)
}

// Merge fills the channel from the [slack] file section unless a flag or
// environment variable set it
func (x *Slack) Merge(file SlackFile, isSet func(name string) bool) {
	if !isSet("slack-channel") && file.Channel != "" {
		x.channel = file.Channel
	}
}

// Configure returns a notifier, or nil when Slack is not configured
func (x *Slack) Configure() (*slack.Notifier, error) {
	if x.botToken == "" {
		logging.Default().Info("Slack notification is disabled")
		return nil, nil
	}
	if x.channel == "" {
		return nil, goerr.Wrap(ErrMissingChannel, "invalid slack configuration")
	}

	svc, err := slack.New(x.botToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Slack service")
	}
	return slack.NewNotifier(svc, x.channel), nil
}

// Sentry holds CLI flags for error reporting
type Sentry struct {
	dsn string
	env string
}

func (x *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN; enables error reporting",
			Category:    "Sentry",
			Destination: &x.dsn,
			Sources:     cli.EnvVars("ROSTERSYNC_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Category:    "Sentry",
			Destination: &x.env,
			Sources:     cli.EnvVars("ROSTERSYNC_SENTRY_ENV"),
		},
	}
}

func (x Sentry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.dsn != ""),
		slog.String("env", x.env),
	)
}

// Configure initializes the global Sentry client and returns a flush function
func (x *Sentry) Configure(ctx context.Context, release string) (func(), error) {
	if x.dsn == "" {
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         x.dsn,
		Environment: x.env,
		Release:     release,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize Sentry")
	}
	logging.From(ctx).Info("Sentry error reporting enabled", "env", x.env)

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}
