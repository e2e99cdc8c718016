package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

func copyUser(u *model.User) *model.User {
	copied := *u
	if u.ExternalID != nil {
		extID := *u.ExternalID
		copied.ExternalID = &extID
	}
	if u.Email != nil {
		email := *u.Email
		copied.Email = &email
	}
	if u.PasswordHash != nil {
		hash := *u.PasswordHash
		copied.PasswordHash = &hash
	}
	return &copied
}

func (tx *transaction) user(id model.UserID) (*model.User, bool) {
	if u, ok := tx.users[id]; ok {
		return u, true
	}
	u, ok := tx.store.users[id]
	return u, ok
}

func (tx *transaction) allUsers() []*model.User {
	merged := make(map[model.UserID]*model.User, len(tx.store.users)+len(tx.users))
	for id, u := range tx.store.users {
		merged[id] = u
	}
	for id, u := range tx.users {
		merged[id] = u
	}

	result := make([]*model.User, 0, len(merged))
	for _, u := range merged {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (tx *transaction) FindUserByExternalID(ctx context.Context, externalID model.ExternalID) (*model.User, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}

	for _, u := range tx.allUsers() {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (tx *transaction) CreateUser(ctx context.Context, args *model.CreateUserArgs) (model.UserID, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	if _, ok := tx.jobTitle(args.JobTitleID); !ok {
		return 0, goerr.Wrap(ErrNotFound, "job title not found", goerr.V("job_title_id", args.JobTitleID))
	}

	id := tx.nextUserID
	tx.nextUserID++

	tx.users[id] = copyUser(&model.User{
		ID:           id,
		ExternalID:   args.ExternalID,
		Email:        args.Email,
		FullName:     args.FullName,
		PasswordHash: args.PasswordHash,
		JobTitleID:   args.JobTitleID,
	})
	return id, nil
}

func (tx *transaction) UpdateUser(ctx context.Context, args *model.UpdateUserArgs) error {
	if err := tx.check(); err != nil {
		return err
	}

	current, ok := tx.user(args.ID)
	if !ok {
		return goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", args.ID))
	}
	if _, ok := tx.jobTitle(args.JobTitleID); !ok {
		return goerr.Wrap(ErrNotFound, "job title not found", goerr.V("job_title_id", args.JobTitleID))
	}

	updated := copyUser(current)
	updated.ExternalID = args.ExternalID
	updated.Email = args.Email
	updated.FullName = args.FullName
	updated.JobTitleID = args.JobTitleID
	tx.users[args.ID] = copyUser(updated)
	return nil
}

func (tx *transaction) ListUsers(ctx context.Context) ([]*model.User, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}

	all := tx.allUsers()
	result := make([]*model.User, len(all))
	for i, u := range all {
		result[i] = copyUser(u)
	}
	return result, nil
}

func (tx *transaction) ListUsersByJobTitle(ctx context.Context, jobTitleID model.JobTitleID) ([]*model.User, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}

	var result []*model.User
	for _, u := range tx.allUsers() {
		if u.JobTitleID == jobTitleID {
			result = append(result, copyUser(u))
		}
	}
	return result, nil
}
