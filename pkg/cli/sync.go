package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/cli/config"
	"github.com/plaza-hq/rostersync/pkg/service/statusbus"
	"github.com/plaza-hq/rostersync/pkg/service/statuslog"
	"github.com/plaza-hq/rostersync/pkg/service/worker"
	"github.com/plaza-hq/rostersync/pkg/usecase"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
	"github.com/plaza-hq/rostersync/pkg/utils/safe"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

var errWorkerFailed = goerr.New("directory sync worker stopped after a roster download failure")

// notifyDrainTimeout bounds how long sync waits for pending Slack posts on exit
const notifyDrainTimeout = 10 * time.Second

func cmdSync() *cli.Command {
	var (
		configPath string
		once       bool
		repoCfg    config.Repository
		dirCfg     config.Directory
		syncCfg    config.Sync
		slackCfg   config.Slack
		sentryCfg  config.Sentry
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a TOML configuration file",
			Sources:     cli.EnvVars("ROSTERSYNC_CONFIG"),
			Destination: &configPath,
		},
		&cli.BoolFlag{
			Name:        "once",
			Usage:       "Run a single pass and exit",
			Destination: &once,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, dirCfg.Flags()...)
	flags = append(flags, syncCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "sync",
		Aliases: []string{"s"},
		Usage:   "Reconcile the directory roster into the repository periodically",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if configPath != "" {
				appCfg, err := config.LoadAppConfiguration(configPath)
				if err != nil {
					return err
				}
				dirCfg.Merge(appCfg.Directory, c.IsSet)
				syncCfg.Merge(appCfg.Sync, c.IsSet)
				slackCfg.Merge(appCfg.Slack, c.IsSet)
			}

			logger.Info("Sync configuration",
				"config", configPath,
				"once", once,
				"repository", repoCfg,
				"directory", dirCfg,
				"sync", syncCfg,
				"slack", slackCfg,
				"sentry", sentryCfg,
			)

			flush, err := sentryCfg.Configure(ctx, c.Root().Version)
			if err != nil {
				return err
			}
			defer flush()

			dir, err := dirCfg.Configure()
			if err != nil {
				return err
			}

			notifier, err := slackCfg.Configure()
			if err != nil {
				return err
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			bus := statusbus.New(syncCfg.BusOptions()...)
			uc := usecase.New(repo, bus, syncCfg.UseCaseOptions()...)
			w := worker.NewDirectorySyncWorker(dir, uc, bus, syncCfg.WorkerOptions()...)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Consumers drain until the bus is closed, so they ignore ctx cancellation.
			consumeCtx := context.WithoutCancel(ctx)
			var eg errgroup.Group

			logSub := bus.Subscribe()
			eg.Go(func() error {
				statuslog.Consume(consumeCtx, logSub.Events())
				return nil
			})

			if notifier != nil {
				notifySub := bus.Subscribe()
				eg.Go(func() error {
					notifier.Consume(consumeCtx, notifySub.Events())
					return nil
				})
			}

			var runErr error
			if once {
				runErr = w.RunOnce(ctx)
			} else {
				w.Run(ctx)
				if w.State() == worker.StateFailed {
					runErr = errWorkerFailed
				}
			}

			bus.Close()
			if err := eg.Wait(); err != nil {
				logger.Warn("status consumer failed", "error", err.Error())
			}
			if notifier != nil {
				waitCtx, cancel := context.WithTimeout(consumeCtx, notifyDrainTimeout)
				if err := notifier.Wait(waitCtx); err != nil {
					logger.Warn("exiting before Slack notifications were delivered", "error", err.Error())
				}
				cancel()
			}
			if dropped := logSub.Dropped(); dropped > 0 {
				logger.Warn("status events dropped by log consumer", "count", dropped)
			}

			return runErr
		},
	}
}
