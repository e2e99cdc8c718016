package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

type transaction struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobTitle(row rowScanner) (*model.JobTitle, error) {
	var (
		jt         model.JobTitle
		name       sql.NullString
		department sql.NullInt64
		parent     sql.NullInt64
	)
	if err := row.Scan(&jt.ID, &jt.Label, &name, &department, &parent); err != nil {
		return nil, err
	}
	if name.Valid {
		jt.Name = &name.String
	}
	if department.Valid {
		jt.DepartmentID = &department.Int64
	}
	if parent.Valid {
		parentID := model.JobTitleID(parent.Int64)
		jt.ParentID = &parentID
	}
	return &jt, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		extID    sql.NullInt64
		email    sql.NullString
		password sql.NullString
	)
	if err := row.Scan(&u.ID, &extID, &email, &u.FullName, &password, &u.JobTitleID); err != nil {
		return nil, err
	}
	if extID.Valid {
		id := model.ExternalID(extID.Int64)
		u.ExternalID = &id
	}
	if email.Valid {
		u.Email = &email.String
	}
	if password.Valid {
		u.PasswordHash = &password.String
	}
	return &u, nil
}

func (x *transaction) FindJobTitleByLabel(ctx context.Context, label string) (*model.JobTitle, error) {
	row := x.tx.QueryRowContext(ctx,
		`SELECT id, intranet_name, name, company_department_id, parent_job_title_id FROM job_titles WHERE intranet_name = ?`,
		label)

	jt, err := scanJobTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find job title by label", goerr.V("label", label))
	}
	return jt, nil
}

func (x *transaction) CreateJobTitle(ctx context.Context, args *model.CreateJobTitleArgs) (model.JobTitleID, error) {
	var id model.JobTitleID
	err := x.tx.QueryRowContext(ctx,
		`INSERT INTO job_titles (name, intranet_name, company_department_id, parent_job_title_id) VALUES (?, ?, ?, ?) RETURNING id`,
		args.Name, args.Label, args.DepartmentID, args.ParentID,
	).Scan(&id)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to insert job title", goerr.V("label", args.Label))
	}
	return id, nil
}

func (x *transaction) ListJobTitles(ctx context.Context) ([]*model.JobTitle, error) {
	rows, err := x.tx.QueryContext(ctx,
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
	row := x.tx.QueryRowContext(ctx,
		`SELECT id, ad_id, email, full_name, password, job_title_id FROM users WHERE ad_id = ?`,
		int64(externalID))

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find user by external id", goerr.V("external_id", externalID))
	}
	return u, nil
}

func (x *transaction) CreateUser(ctx context.Context, args *model.CreateUserArgs) (model.UserID, error) {
	var id model.UserID
	err := x.tx.QueryRowContext(ctx,
		`INSERT INTO users (ad_id, email, full_name, password, job_title_id) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		args.ExternalID, args.Email, args.FullName, args.PasswordHash, args.JobTitleID,
	).Scan(&id)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to insert user", goerr.V("external_id", args.ExternalID))
	}
	return id, nil
}

func (x *transaction) UpdateUser(ctx context.Context, args *model.UpdateUserArgs) error {
	result, err := x.tx.ExecContext(ctx,
		`UPDATE users SET ad_id = ?, email = ?, full_name = ?, job_title_id = ? WHERE id = ?`,
		args.ExternalID, args.Email, args.FullName, args.JobTitleID, args.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to update user", goerr.V("id", args.ID))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get affected rows", goerr.V("id", args.ID))
	}
	if affected == 0 {
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
		`SELECT id, ad_id, email, full_name, password, job_title_id FROM users WHERE job_title_id = ? ORDER BY id`,
		int64(jobTitleID))
}

func (x *transaction) queryUsers(ctx context.Context, query string, args ...any) ([]*model.User, error) {
	rows, err := x.tx.QueryContext(ctx, query, args...)
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
