package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
)

// JobTitleSync makes sure every job title label of a roster exists locally
type JobTitleSync struct {
	uc *UseCases
}

// Run reconciles the distinct labels of roster, one transaction per label,
// and returns the label to id cache for the rest of the pass. A label that
// fails is reported and left out of the cache.
func (s *JobTitleSync) Run(ctx context.Context, meta model.EventMeta, roster []model.RosterRecord) model.JobTitleCache {
	labels := model.JobTitleLabels(roster)
	total := len(labels)
	ids := make(map[string]model.JobTitleID, total)
	logger := logging.From(ctx)

	for i, label := range labels {
		current := i + 1
		s.uc.publish(model.JobTitleSyncing{
			EventMeta: s.uc.stamp(meta),
			Label:     label,
			Current:   current,
			Total:     total,
		})

		id, err := s.ensure(ctx, label)
		if err != nil {
			logger.Debug("job title reconciliation failed",
				"pass_id", meta.PassID,
				"label", label,
				"error", err.Error())
			s.uc.publish(model.JobTitleSyncFailed{
				EventMeta: s.uc.stamp(meta),
				Label:     label,
				Current:   current,
				Total:     total,
				Err:       err,
			})
			continue
		}
		ids[label] = id
	}

	cache := model.NewJobTitleCache(ids)
	s.uc.publish(model.JobTitleSyncFinished{
		EventMeta: s.uc.stamp(meta),
		Total:     total,
		Cached:    cache.Len(),
	})
	return cache
}

// ensure returns the id of the job title labelled label, creating it if absent
func (s *JobTitleSync) ensure(ctx context.Context, label string) (model.JobTitleID, error) {
	var id model.JobTitleID
	err := s.uc.runTx(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		found, err := tx.FindJobTitleByLabel(ctx, label)
		if err != nil {
			return err
		}
		if found != nil {
			id = found.ID
			return nil
		}

		created, err := tx.CreateJobTitle(ctx, &model.CreateJobTitleArgs{Label: label})
		if err != nil {
			return err
		}
		id = created
		logging.From(ctx).Info("job title created", "label", label, "id", created)
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to reconcile job title", goerr.V(LabelKey, label))
	}
	return id, nil
}
