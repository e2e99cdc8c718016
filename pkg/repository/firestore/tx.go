package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type transaction struct {
	repo *Firestore
	tx   *firestore.Transaction
}

// jobTitleDoc is the Firestore persistence model of model.JobTitle
type jobTitleDoc struct {
	ID           int64   `firestore:"id"`
	Label        string  `firestore:"label"`
	Name         *string `firestore:"name"`
	DepartmentID *int64  `firestore:"department_id"`
	ParentID     *int64  `firestore:"parent_id"`
}

// userDoc is the Firestore persistence model of model.User
type userDoc struct {
	ID           int64   `firestore:"id"`
	ExternalID   *int64  `firestore:"external_id"`
	Email        *string `firestore:"email"`
	FullName     string  `firestore:"full_name"`
	PasswordHash *string `firestore:"password_hash"`
	JobTitleID   int64   `firestore:"job_title_id"`
}

func (d *jobTitleDoc) toModel() *model.JobTitle {
	jt := &model.JobTitle{
		ID:           model.JobTitleID(d.ID),
		Label:        d.Label,
		Name:         d.Name,
		DepartmentID: d.DepartmentID,
	}
	if d.ParentID != nil {
		parent := model.JobTitleID(*d.ParentID)
		jt.ParentID = &parent
	}
	return jt
}

func (d *userDoc) toModel() *model.User {
	u := &model.User{
		ID:           model.UserID(d.ID),
		Email:        d.Email,
		FullName:     d.FullName,
		PasswordHash: d.PasswordHash,
		JobTitleID:   model.JobTitleID(d.JobTitleID),
	}
	if d.ExternalID != nil {
		extID := model.ExternalID(*d.ExternalID)
		u.ExternalID = &extID
	}
	return u
}

func toInt64Ptr[T ~int64](v *T) *int64 {
	if v == nil {
		return nil
	}
	i := int64(*v)
	return &i
}

func docID(id int64) string {
	return fmt.Sprintf("%d", id)
}

// nextID reserves the next value of the named counter within the transaction
func (x *transaction) nextID(counter string) (int64, error) {
	counterRef := x.repo.collection(countersCollection).Doc(counter)

	doc, err := x.tx.Get(counterRef)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			if err := x.tx.Set(counterRef, map[string]interface{}{"value": int64(1)}); err != nil {
				return 0, goerr.Wrap(err, "failed to initialize counter", goerr.V("counter", counter))
			}
			return 1, nil
		}
		return 0, goerr.Wrap(err, "failed to get counter", goerr.V("counter", counter))
	}

	currentValue, err := doc.DataAt("value")
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get counter value", goerr.V("counter", counter))
	}
	val, ok := currentValue.(int64)
	if !ok {
		return 0, goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
	}

	next := val + 1
	if err := x.tx.Update(counterRef, []firestore.Update{{Path: "value", Value: next}}); err != nil {
		return 0, goerr.Wrap(err, "failed to update counter", goerr.V("counter", counter))
	}
	return next, nil
}

func (x *transaction) FindJobTitleByLabel(ctx context.Context, label string) (*model.JobTitle, error) {
	query := x.repo.collection(jobTitlesCollection).Where("label", "==", label).Limit(1)
	iter := x.tx.Documents(query)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query job title by label", goerr.V("label", label))
	}

	var doc jobTitleDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode job title", goerr.V("docID", snap.Ref.ID))
	}
	return doc.toModel(), nil
}

func (x *transaction) CreateJobTitle(ctx context.Context, args *model.CreateJobTitleArgs) (model.JobTitleID, error) {
	id, err := x.nextID(jobTitleCounterDoc)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to allocate job title id", goerr.V("label", args.Label))
	}

	doc := &jobTitleDoc{
		ID:           id,
		Label:        args.Label,
		Name:         args.Name,
		DepartmentID: args.DepartmentID,
		ParentID:     toInt64Ptr(args.ParentID),
	}
	if err := x.tx.Create(x.repo.collection(jobTitlesCollection).Doc(docID(id)), doc); err != nil {
		return 0, goerr.Wrap(err, "failed to create job title", goerr.V("label", args.Label), goerr.V("id", id))
	}
	return model.JobTitleID(id), nil
}

func (x *transaction) ListJobTitles(ctx context.Context) ([]*model.JobTitle, error) {
	iter := x.tx.Documents(x.repo.collection(jobTitlesCollection).OrderBy("id", firestore.Asc))
	defer iter.Stop()

	var jobTitles []*model.JobTitle
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate job titles")
		}

		var doc jobTitleDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode job title", goerr.V("docID", snap.Ref.ID))
		}
		jobTitles = append(jobTitles, doc.toModel())
	}
	return jobTitles, nil
}

func (x *transaction) FindUserByExternalID(ctx context.Context, externalID model.ExternalID) (*model.User, error) {
	query := x.repo.collection(usersCollection).Where("external_id", "==", int64(externalID)).Limit(1)
	iter := x.tx.Documents(query)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query user by external id", goerr.V("external_id", externalID))
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("docID", snap.Ref.ID))
	}
	return doc.toModel(), nil
}

func (x *transaction) CreateUser(ctx context.Context, args *model.CreateUserArgs) (model.UserID, error) {
	jobTitleRef := x.repo.collection(jobTitlesCollection).Doc(docID(int64(args.JobTitleID)))
	if _, err := x.tx.Get(jobTitleRef); err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, goerr.Wrap(ErrNotFound, "job title not found", goerr.V("job_title_id", args.JobTitleID))
		}
		return 0, goerr.Wrap(err, "failed to get job title", goerr.V("job_title_id", args.JobTitleID))
	}

	id, err := x.nextID(userCounterDoc)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to allocate user id")
	}

	doc := &userDoc{
		ID:           id,
		ExternalID:   toInt64Ptr(args.ExternalID),
		Email:        args.Email,
		FullName:     args.FullName,
		PasswordHash: args.PasswordHash,
		JobTitleID:   int64(args.JobTitleID),
	}
	if err := x.tx.Create(x.repo.collection(usersCollection).Doc(docID(id)), doc); err != nil {
		return 0, goerr.Wrap(err, "failed to create user", goerr.V("id", id))
	}
	return model.UserID(id), nil
}

func (x *transaction) UpdateUser(ctx context.Context, args *model.UpdateUserArgs) error {
	jobTitleRef := x.repo.collection(jobTitlesCollection).Doc(docID(int64(args.JobTitleID)))
	if _, err := x.tx.Get(jobTitleRef); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "job title not found", goerr.V("job_title_id", args.JobTitleID))
		}
		return goerr.Wrap(err, "failed to get job title", goerr.V("job_title_id", args.JobTitleID))
	}

	// Update fails with NotFound when the user document does not exist.
	// password_hash is never written here.
	userRef := x.repo.collection(usersCollection).Doc(docID(int64(args.ID)))
	err := x.tx.Update(userRef, []firestore.Update{
		{Path: "external_id", Value: toInt64Ptr(args.ExternalID)},
		{Path: "email", Value: args.Email},
		{Path: "full_name", Value: args.FullName},
		{Path: "job_title_id", Value: int64(args.JobTitleID)},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to update user", goerr.V("id", args.ID))
	}
	return nil
}

func (x *transaction) ListUsers(ctx context.Context) ([]*model.User, error) {
	return x.queryUsers(x.repo.collection(usersCollection).OrderBy("id", firestore.Asc))
}

// ListUsersByJobTitle needs the composite index (job_title_id, id) created by the migrate command
func (x *transaction) ListUsersByJobTitle(ctx context.Context, jobTitleID model.JobTitleID) ([]*model.User, error) {
	return x.queryUsers(x.repo.collection(usersCollection).
		Where("job_title_id", "==", int64(jobTitleID)).
		OrderBy("id", firestore.Asc))
}

func (x *transaction) queryUsers(query firestore.Query) ([]*model.User, error) {
	iter := x.tx.Documents(query)
	defer iter.Stop()

	var users []*model.User
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate users")
		}

		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode user", goerr.V("docID", snap.Ref.ID))
		}
		users = append(users, doc.toModel())
	}
	return users, nil
}
