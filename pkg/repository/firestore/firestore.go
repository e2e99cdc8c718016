package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
)

const (
	jobTitlesCollection = "job_titles"
	usersCollection     = "users"
	countersCollection  = "counters"

	jobTitleCounterDoc = "job_title_counter"
	userCounterDoc     = "user_counter"
)

var ErrNotFound = goerr.New("not found")

type Firestore struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces every collection, e.g. for parallel test runs
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.collectionPrefix = prefix
	}
}

// New creates a Firestore repository. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var (
		client *firestore.Client
		err    error
	)
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{client: client}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) collection(name string) *firestore.CollectionRef {
	if f.collectionPrefix != "" {
		return f.client.Collection(f.collectionPrefix + "_" + name)
	}
	return f.client.Collection(name)
}

// RunTx runs fn in a Firestore transaction. Firestore requires every read of a
// transaction to happen before its first write, and may call fn more than once.
func (f *Firestore) RunTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &transaction{repo: f, tx: tx})
	})
	if err != nil {
		return goerr.Wrap(err, "firestore transaction failed")
	}
	return nil
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
