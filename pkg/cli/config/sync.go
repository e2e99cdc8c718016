package config

import (
	"log/slog"
	"time"

	"github.com/plaza-hq/rostersync/pkg/service/statusbus"
	"github.com/plaza-hq/rostersync/pkg/service/worker"
	"github.com/plaza-hq/rostersync/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Sync holds CLI flags for the sync loop
type Sync struct {
	interval   time.Duration
	txTimeout  time.Duration
	bufferSize int
}

func (x *Sync) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "interval",
			Aliases:     []string{"i"},
			Usage:       "Wait between two sync passes",
			Category:    "Sync",
			Value:       worker.DefaultInterval,
			Destination: &x.interval,
			Sources:     cli.EnvVars("ROSTERSYNC_INTERVAL"),
		},
		&cli.DurationFlag{
			Name:        "tx-timeout",
			Usage:       "Bound on each reconciliation transaction (0 = none)",
			Category:    "Sync",
			Destination: &x.txTimeout,
			Sources:     cli.EnvVars("ROSTERSYNC_TX_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:        "status-buffer",
			Usage:       "Per consumer buffer of the status bus",
			Category:    "Sync",
			Value:       statusbus.DefaultBufferSize,
			Destination: &x.bufferSize,
			Sources:     cli.EnvVars("ROSTERSYNC_STATUS_BUFFER"),
		},
	}
}

func (x Sync) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("interval", x.interval),
		slog.Duration("tx_timeout", x.txTimeout),
		slog.Int("status_buffer", x.bufferSize),
	)
}

// Merge fills values that were not set by a flag or environment variable from
// the [sync] file section. isSet is usually (*cli.Command).IsSet.
func (x *Sync) Merge(file SyncFile, isSet func(name string) bool) {
	if !isSet("interval") && file.Interval != "" {
		x.interval = file.IntervalDuration()
	}
	if !isSet("tx-timeout") && file.TxTimeout != "" {
		x.txTimeout = file.TxTimeoutDuration()
	}
	if !isSet("status-buffer") && file.BufferSize > 0 {
		x.bufferSize = file.BufferSize
	}
}

func (x *Sync) BusOptions() []statusbus.Option {
	return []statusbus.Option{statusbus.WithBufferSize(x.bufferSize)}
}

func (x *Sync) UseCaseOptions() []usecase.Option {
	return []usecase.Option{usecase.WithTxTimeout(x.txTimeout)}
}

func (x *Sync) WorkerOptions() []worker.Option {
	return []worker.Option{worker.WithInterval(x.interval)}
}
