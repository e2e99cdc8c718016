package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

type transaction struct {
	tx pgx.Tx
}

func scanJobTitle(row pgx.Row) (*model.JobTitle, error) {
	var (
		id         int64
		label      string
		name       *string
		department *int64
		parent     *int64
	)
	if err := row.Scan(&id, &label, &name, &department, &parent); err != nil {
		return nil, err
	}

	jt := &model.JobTitle{
		ID:           model.JobTitleID(id),
		Label:        label,
		Name:         name,
		DepartmentID: department,
	}
	if parent != nil {
		parentID := model.JobTitleID(*parent)
		jt.ParentID = &parentID
	}
	return jt, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		id         int64
		extID      *int64
		email      *string
		fullName   string
		password   *string
		jobTitleID int64
	)
	if err := row.Scan(&id, &extID, &email, &fullName, &password, &jobTitleID); err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           model.UserID(id),
		Email:        email,
		FullName:     fullName,
		PasswordHash: password,
		JobTitleID:   model.JobTitleID(jobTitleID),
	}
	if extID != nil {
		externalID := model.ExternalID(*extID)
		u.ExternalID = &externalID
	}
	return u, nil
}

func externalIDArg(id *model.ExternalID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}

func parentIDArg(id *model.JobTitleID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}

func (x *transaction) FindJobTitleByLabel(ctx context.Context, label string) (*model.JobTitle, error) {
	row := x.tx.QueryRow(ctx,
		`SELECT id, intranet_name, name, company_department_id, parent_job_title_id FROM job_titles WHERE intranet_name = $1`,
		label)

	jt, err := scanJobTitle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find job title by label", goerr.V("label", label))
	}
	return jt, nil
}

func (x *transaction) CreateJobTitle(ctx context.Context, args *model.CreateJobTitleArgs) (model.JobTitleID, error) {
	var id int64
	err := x.tx.QueryRow(ctx,
		`INSERT INTO job_titles (name, intranet_name, company_department_id, parent_job_title_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		args.Name, args.Label, args.DepartmentID, parentIDArg(args.ParentID),
	).Scan(&id)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to insert job title", goerr.V("label", args.Label))
	}
	return model.JobTitleID(id), nil
}

func (x *transaction) ListJobTitles(ctx context.Context) ([]*model.JobTitle, error) {
	rows, err := x.tx.Query(ctx,
		`SELECT id, intranet_name, name, company_department_id, parent_job_title_id FROM job_titles ORDER BY id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list job titles")
	}
	defer rows.Close()

	var jobTitles []*model.JobTitle
	for rows.Next() {
		jt, err := scanJobTitle(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan job title")
		}
		jobTitles = append(jobTitles, jt)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate job titles")
	}
	return jobTitles, nil
}

func (x *transaction) FindUserByExternalID(ctx context.Context, externalID model.ExternalID) (*model.User, error) {
	row := x.tx.QueryRow(ctx,
		`SELECT id, ad_id, email, full_name, password, job_title_id FROM users WHERE ad_id = $1`,
		int64(externalID))

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find user by external id", goerr.V("external_id", externalID))
	}
	return u, nil
}

func (x *transaction) CreateUser(ctx context.Context, args *model.CreateUserArgs) (model.UserID, error) {
	var id int64
	err := x.tx.QueryRow(ctx,
		`INSERT INTO users (ad_id, email, full_name, password, job_title_id) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		externalIDArg(args.ExternalID), args.Email, args.FullName, args.PasswordHash, int64(args.JobTitleID),
	).Scan(&id)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to insert user", goerr.V("external_id", externalIDArg(args.ExternalID)))
	}
	return model.UserID(id), nil
}

func (x *transaction) UpdateUser(ctx context.Context, args *model.UpdateUserArgs) error {
	tag, err := x.tx.Exec(ctx,
		`UPDATE users SET ad_id = $1, email = $2, full_name = $3, job_title_id = $4 WHERE id = $5`,
		externalIDArg(args.ExternalID), args.Email, args.FullName, int64(args.JobTitleID), int64(args.ID))
	if err != nil {
		return goerr.Wrap(err, "failed to update user", goerr.V("id", args.ID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.New("user not found", goerr.V("id", args.ID))
	}
	return nil
}

func (x *transaction) ListUsers(ctx context.Context) ([]*model.User, error) {
	return x.queryUsers(ctx,
		`SELECT id, ad_id, email, full_name, password, job_title_id FROM users ORDER BY id`)
}

func (x *transaction) ListUsersByJobTitle(ctx context.Context, jobTitleID model.JobTitleID) ([]*model.User, error) {
	return x.queryUsers(ctx,
		`SELECT id, ad_id, email, full_name, password, job_title_id FROM users WHERE job_title_id = $1 ORDER BY id`,
		int64(jobTitleID))
}

func (x *transaction) queryUsers(ctx context.Context, query string, args ...any) ([]*model.User, error) {
	rows, err := x.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan user")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate users")
	}
	return users, nil
}
