package interfaces

import (
	"context"

	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

// Repository is the transactional store of job titles and users.
//
// Every write happens inside RunTx. If fn returns an error, nothing fn wrote is
// persisted; otherwise all of it is committed atomically.
type Repository interface {
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
	Close() error
}

// Transaction provides the operations available within a single RunTx call.
// Find methods return nil without an error when no record matches.
type Transaction interface {
	FindJobTitleByLabel(ctx context.Context, label string) (*model.JobTitle, error)
	CreateJobTitle(ctx context.Context, args *model.CreateJobTitleArgs) (model.JobTitleID, error)
	ListJobTitles(ctx context.Context) ([]*model.JobTitle, error)

	FindUserByExternalID(ctx context.Context, externalID model.ExternalID) (*model.User, error)
	CreateUser(ctx context.Context, args *model.CreateUserArgs) (model.UserID, error)
	// UpdateUser overwrites the directory-owned fields of an existing user
	UpdateUser(ctx context.Context, args *model.UpdateUserArgs) error
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListUsersByJobTitle(ctx context.Context, jobTitleID model.JobTitleID) ([]*model.User, error)
}

// Directory fetches the current roster from the external employee directory
type Directory interface {
	FetchRoster(ctx context.Context) ([]model.RosterRecord, error)
}

// StatusPublisher accepts status events. Publish must never block.
type StatusPublisher interface {
	Publish(ev model.StatusEvent)
}
