package usecase

import (
	"context"
	"time"

	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

type UseCases struct {
	repo      interfaces.Repository
	publisher interfaces.StatusPublisher
	txTimeout time.Duration
	now       func() time.Time
	JobTitle  *JobTitleSync
	User      *UserSync
}

type Option func(*UseCases)

// WithTxTimeout bounds every reconciliation transaction. Zero means no bound.
func WithTxTimeout(d time.Duration) Option {
	return func(uc *UseCases) {
		uc.txTimeout = d
	}
}

// WithClock replaces time.Now for event timestamps
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, publisher interfaces.StatusPublisher, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.JobTitle = &JobTitleSync{uc: uc}
	uc.User = &UserSync{uc: uc}

	return uc
}

// runTx runs fn in its own transaction, bounded by the configured timeout
func (uc *UseCases) runTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if uc.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.txTimeout)
		defer cancel()
	}
	return uc.repo.RunTx(ctx, fn)
}

func (uc *UseCases) stamp(meta model.EventMeta) model.EventMeta {
	meta.At = uc.now()
	return meta
}

func (uc *UseCases) publish(ev model.StatusEvent) {
	if uc.publisher != nil {
		uc.publisher.Publish(ev)
	}
}
