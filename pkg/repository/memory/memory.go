package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

var (
	ErrNotFound       = goerr.New("not found")
	ErrDuplicateLabel = goerr.New("job title label already exists")
	ErrTxClosed       = goerr.New("transaction already finished")
)

// Memory is an in-process repository used for development and tests.
// Transactions are serialized and stage their writes until commit.
type Memory struct {
	mu sync.Mutex

	jobTitles      map[model.JobTitleID]*model.JobTitle
	users          map[model.UserID]*model.User
	nextJobTitleID model.JobTitleID
	nextUserID     model.UserID
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		jobTitles:      make(map[model.JobTitleID]*model.JobTitle),
		users:          make(map[model.UserID]*model.User),
		nextJobTitleID: 1,
		nextUserID:     1,
	}
}

// RunTx runs fn with exclusive access to the store. Writes become visible only if fn succeeds.
func (m *Memory) RunTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &transaction{
		store:          m,
		jobTitles:      make(map[model.JobTitleID]*model.JobTitle),
		users:          make(map[model.UserID]*model.User),
		nextJobTitleID: m.nextJobTitleID,
		nextUserID:     m.nextUserID,
	}
	defer tx.finish()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

func (m *Memory) Close() error {
	return nil
}

type transaction struct {
	store    *Memory
	finished bool

	// staged writes, keyed like the store maps
	jobTitles      map[model.JobTitleID]*model.JobTitle
	users          map[model.UserID]*model.User
	nextJobTitleID model.JobTitleID
	nextUserID     model.UserID
}

func (tx *transaction) finish() {
	tx.finished = true
}

func (tx *transaction) commit() {
	for id, jt := range tx.jobTitles {
		tx.store.jobTitles[id] = jt
	}
	for id, u := range tx.users {
		tx.store.users[id] = u
	}
	tx.store.nextJobTitleID = tx.nextJobTitleID
	tx.store.nextUserID = tx.nextUserID
}

func (tx *transaction) check() error {
	if tx.finished {
		return ErrTxClosed
	}
	return nil
}
