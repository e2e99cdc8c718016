package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
)

func copyJobTitle(jt *model.JobTitle) *model.JobTitle {
	copied := *jt
	if jt.Name != nil {
		name := *jt.Name
		copied.Name = &name
	}
	if jt.DepartmentID != nil {
		dept := *jt.DepartmentID
		copied.DepartmentID = &dept
	}
	if jt.ParentID != nil {
		parent := *jt.ParentID
		copied.ParentID = &parent
	}
	return &copied
}

// jobTitle returns the staged version of id if any, falling back to the committed one
func (tx *transaction) jobTitle(id model.JobTitleID) (*model.JobTitle, bool) {
	if jt, ok := tx.jobTitles[id]; ok {
		return jt, true
	}
	jt, ok := tx.store.jobTitles[id]
	return jt, ok
}

func (tx *transaction) allJobTitles() []*model.JobTitle {
	merged := make(map[model.JobTitleID]*model.JobTitle, len(tx.store.jobTitles)+len(tx.jobTitles))
	for id, jt := range tx.store.jobTitles {
		merged[id] = jt
	}
	for id, jt := range tx.jobTitles {
		merged[id] = jt
	}

	result := make([]*model.JobTitle, 0, len(merged))
	for _, jt := range merged {
		result = append(result, jt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (tx *transaction) FindJobTitleByLabel(ctx context.Context, label string) (*model.JobTitle, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}

	for _, jt := range tx.allJobTitles() {
		if jt.Label == label {
			return copyJobTitle(jt), nil
		}
	}
	return nil, nil
}

func (tx *transaction) CreateJobTitle(ctx context.Context, args *model.CreateJobTitleArgs) (model.JobTitleID, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}

	for _, jt := range tx.allJobTitles() {
		if jt.Label == args.Label {
			return 0, goerr.Wrap(ErrDuplicateLabel, "failed to create job title", goerr.V("label", args.Label))
		}
	}
	if args.ParentID != nil {
		if _, ok := tx.jobTitle(*args.ParentID); !ok {
			return 0, goerr.Wrap(ErrNotFound, "parent job title not found", goerr.V("parent_id", *args.ParentID))
		}
	}

	id := tx.nextJobTitleID
	tx.nextJobTitleID++

	tx.jobTitles[id] = copyJobTitle(&model.JobTitle{
		ID:           id,
		Label:        args.Label,
		Name:         args.Name,
		DepartmentID: args.DepartmentID,
		ParentID:     args.ParentID,
	})
	return id, nil
}

func (tx *transaction) ListJobTitles(ctx context.Context) ([]*model.JobTitle, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}

	all := tx.allJobTitles()
	result := make([]*model.JobTitle, len(all))
	for i, jt := range all {
		result[i] = copyJobTitle(jt)
	}
	return result, nil
}
