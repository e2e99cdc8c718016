package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"github.com/plaza-hq/rostersync/pkg/usecase"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
)

// DefaultInterval is the wait between two passes
const DefaultInterval = 60 * time.Second

// State is the lifecycle position of a DirectorySyncWorker
type State int32

const (
	StateIdle State = iota
	StateDownloading
	StateReconcilingTitles
	StateReconcilingUsers
	StateWaiting
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDownloading:
		return "downloading"
	case StateReconcilingTitles:
		return "reconciling_titles"
	case StateReconcilingUsers:
		return "reconciling_users"
	case StateWaiting:
		return "waiting"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DirectorySyncWorker periodically pulls the roster and reconciles it into the repository
//
// Architecture assumptions:
// - Single instance per repository; passes never overlap
// - A pass that has started runs to completion even if cancellation arrives
type DirectorySyncWorker struct {
	directory interfaces.Directory
	uc        *usecase.UseCases
	publisher interfaces.StatusPublisher
	interval  time.Duration
	newPassID func() string
	now       func() time.Time

	state    atomic.Int32
	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type Option func(*DirectorySyncWorker)

// WithInterval sets the wait between passes. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(w *DirectorySyncWorker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithPassIDGenerator replaces the uuid based pass id generator
func WithPassIDGenerator(fn func() string) Option {
	return func(w *DirectorySyncWorker) {
		w.newPassID = fn
	}
}

// NewDirectorySyncWorker creates a worker. publisher receives pass level events;
// stage events are published by the use cases.
func NewDirectorySyncWorker(directory interfaces.Directory, uc *usecase.UseCases, publisher interfaces.StatusPublisher, opts ...Option) *DirectorySyncWorker {
	w := &DirectorySyncWorker{
		directory: directory,
		uc:        uc,
		publisher: publisher,
		interval:  DefaultInterval,
		newPassID: uuid.NewString,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current lifecycle state
func (w *DirectorySyncWorker) State() State {
	return State(w.state.Load())
}

// Done is closed when Run has returned
func (w *DirectorySyncWorker) Done() <-chan struct{} {
	return w.doneCh
}

// Start runs the loop in a background goroutine
func (w *DirectorySyncWorker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return goerr.New("directory sync worker already started")
	}
	logging.From(ctx).Info("Directory sync worker starting", "interval", w.interval.String())

	go w.loop(ctx)
	return nil
}

// Stop signals the worker to stop and waits until the current pass, if any, has finished
func (w *DirectorySyncWorker) Stop() {
	logging.Default().Info("Directory sync worker stopping")
	w.stopOnce.Do(func() { close(w.stopCh) })
	if w.started.Load() {
		<-w.doneCh
	}
	logging.Default().Info("Directory sync worker stopped")
}

// Run drives passes until ctx is cancelled, Stop is called or a download fails.
// It blocks and must be called at most once.
func (w *DirectorySyncWorker) Run(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		logging.From(ctx).Warn("Directory sync worker is already running")
		return
	}
	w.loop(ctx)
}

func (w *DirectorySyncWorker) loop(ctx context.Context) {
	defer close(w.doneCh)

	logger := logging.From(ctx)

	for {
		if w.cancelled(ctx) {
			w.setState(StateCancelled)
			logger.Info("Directory sync worker cancelled before pass")
			return
		}

		if err := w.RunOnce(ctx); err != nil {
			w.setState(StateFailed)
			logger.Debug("Directory sync worker terminated by download failure", "error", err.Error())
			return
		}

		w.setState(StateWaiting)
		timer := time.NewTimer(w.interval)
		select {
		case <-timer.C:
		case <-w.stopCh:
			timer.Stop()
			w.setState(StateCancelled)
			logger.Info("Directory sync worker received stop signal")
			return
		case <-ctx.Done():
			timer.Stop()
			w.setState(StateCancelled)
			logger.Info("Directory sync worker context cancelled")
			return
		}
	}
}

// RunOnce performs a single pass: download, job titles, then users. Only a
// download failure is returned; per item failures are published as events.
// The pass ignores cancellation of ctx once it has begun.
func (w *DirectorySyncWorker) RunOnce(ctx context.Context) error {
	startTime := w.now()
	meta := model.EventMeta{PassID: w.newPassID()}
	ctx = context.WithoutCancel(ctx)
	logger := logging.From(ctx).With("pass_id", meta.PassID)
	ctx = logging.With(ctx, logger)

	w.publish(model.PassStarted{EventMeta: w.stamp(meta)})
	defer func() {
		duration := w.now().Sub(startTime)
		w.publish(model.PassFinished{EventMeta: w.stamp(meta), Duration: duration})
		logger.Info("Directory sync pass finished", "duration", duration.String())
	}()

	w.setState(StateDownloading)
	w.publish(model.RosterDownloading{EventMeta: w.stamp(meta)})

	roster, err := w.directory.FetchRoster(ctx)
	if err != nil {
		w.publish(model.RosterDownloadFailed{EventMeta: w.stamp(meta), Err: err})
		return goerr.Wrap(err, "failed to download roster", goerr.V("pass_id", meta.PassID))
	}
	w.publish(model.RosterDownloaded{EventMeta: w.stamp(meta), Count: len(roster)})
	logger.Info("Roster downloaded", "count", len(roster))

	w.setState(StateReconcilingTitles)
	cache := w.uc.JobTitle.Run(ctx, meta, roster)

	w.setState(StateReconcilingUsers)
	result := w.uc.User.Run(ctx, meta, cache, roster)

	logger.Info("Roster reconciled",
		"job_titles", cache.Len(),
		"users", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"failed", result.Failed)
	return nil
}

func (w *DirectorySyncWorker) cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *DirectorySyncWorker) setState(s State) {
	w.state.Store(int32(s))
}

func (w *DirectorySyncWorker) stamp(meta model.EventMeta) model.EventMeta {
	meta.At = w.now()
	return meta
}

func (w *DirectorySyncWorker) publish(ev model.StatusEvent) {
	if w.publisher != nil {
		w.publisher.Publish(ev)
	}
}
