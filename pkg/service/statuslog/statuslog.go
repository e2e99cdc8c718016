// Package statuslog renders status events as structured log records.
package statuslog

import (
	"context"
	"log/slog"

	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"github.com/plaza-hq/rostersync/pkg/utils/errutil"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
)

// Consume logs every event of events until the channel is closed or ctx is done
func Consume(ctx context.Context, events <-chan model.StatusEvent) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			Render(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

// Render writes a single event to the logger in ctx
func Render(ctx context.Context, ev model.StatusEvent) {
	logger := logging.From(ctx).With(
		"kind", string(ev.Kind()),
		"pass_id", ev.Meta().PassID,
	)

	switch e := ev.(type) {
	case model.PassStarted:
		logger.Info("sync pass started")
	case model.RosterDownloading:
		logger.Debug("downloading roster")
	case model.RosterDownloaded:
		logger.Info("roster downloaded", "count", e.Count)
	case model.RosterDownloadFailed:
		if e.Err == nil {
			logger.Error("roster download failed", "error", errorText(e.Err))
			return
		}
		errutil.Handle(logging.With(ctx, logger), e.Err, "roster download failed")
	case model.JobTitleSyncing:
		logger.Debug("syncing job title", "label", e.Label, "current", e.Current, "total", e.Total)
	case model.JobTitleSyncFailed:
		logger.Warn("job title sync failed",
			"label", e.Label,
			"current", e.Current,
			"total", e.Total,
			"error", errorText(e.Err))
	case model.JobTitleSyncFinished:
		logger.Info("job titles synced", "total", e.Total, "cached", e.Cached)
	case model.UserSyncing:
		logger.Debug("syncing user",
			"external_id", e.ExternalID,
			"full_name", e.FullName,
			"email", e.Email,
			"current", e.Current,
			"total", e.Total)
	case model.UserSyncFailed:
		logger.Warn("user sync failed",
			"external_id", e.ExternalID,
			"full_name", e.FullName,
			"current", e.Current,
			"total", e.Total,
			"error", errorText(e.Err))
	case model.UserSyncFinished:
		logger.Info("users synced",
			"total", e.Result.Total,
			"created", e.Result.Created,
			"updated", e.Result.Updated,
			"unchanged", e.Result.Unchanged,
			"failed", e.Result.Failed)
	case model.PassFinished:
		logger.Info("sync pass finished", slog.Duration("duration", e.Duration))
	default:
		logger.Debug("unhandled status event")
	}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
