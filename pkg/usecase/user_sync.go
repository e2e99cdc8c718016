package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
)

type userOutcome int

const (
	userUnchanged userOutcome = iota
	userCreated
	userUpdated
)

// UserSync creates or updates local users from roster records
type UserSync struct {
	uc *UseCases
}

// Run reconciles every record of roster in its own transaction. Failures are
// reported per record and never stop the loop.
func (s *UserSync) Run(ctx context.Context, meta model.EventMeta, cache model.JobTitleCache, roster []model.RosterRecord) model.UserSyncResult {
	result := model.UserSyncResult{Total: len(roster)}
	logger := logging.From(ctx)

	for i, rec := range roster {
		current := i + 1
		s.uc.publish(model.UserSyncing{
			EventMeta:  s.uc.stamp(meta),
			ExternalID: rec.ExternalID,
			FullName:   rec.FullName,
			Email:      rec.Email,
			Current:    current,
			Total:      result.Total,
		})

		outcome, err := s.reconcile(ctx, cache, rec)
		if err != nil {
			result.Failed++
			logger.Debug("user reconciliation failed",
				"pass_id", meta.PassID,
				"external_id", rec.ExternalID,
				"error", err.Error())
			s.uc.publish(model.UserSyncFailed{
				EventMeta:  s.uc.stamp(meta),
				ExternalID: rec.ExternalID,
				FullName:   rec.FullName,
				Current:    current,
				Total:      result.Total,
				Err:        err,
			})
			continue
		}

		switch outcome {
		case userCreated:
			result.Created++
		case userUpdated:
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	s.uc.publish(model.UserSyncFinished{
		EventMeta: s.uc.stamp(meta),
		Result:    result,
	})
	return result
}

func (s *UserSync) reconcile(ctx context.Context, cache model.JobTitleCache, rec model.RosterRecord) (userOutcome, error) {
	jobTitleID, ok := cache.Lookup(rec.JobTitle)
	if !ok {
		return userUnchanged, goerr.Wrap(ErrJobTitleCacheMiss, "failed to resolve job title",
			goerr.V(ExternalIDKey, rec.ExternalID),
			goerr.V(LabelKey, rec.JobTitle))
	}

	var outcome userOutcome
	err := s.uc.runTx(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		// fn may be retried by the store, so outcome is decided afresh each time
		outcome = userUnchanged

		user, err := tx.FindUserByExternalID(ctx, rec.ExternalID)
		if err != nil {
			return err
		}

		externalID := rec.ExternalID
		email := rec.Email

		if user == nil {
			if _, err := tx.CreateUser(ctx, &model.CreateUserArgs{
				ExternalID: &externalID,
				Email:      &email,
				FullName:   rec.FullName,
				JobTitleID: jobTitleID,
			}); err != nil {
				return err
			}
			outcome = userCreated
			return nil
		}

		if user.MatchesRoster(rec, jobTitleID) {
			return nil
		}

		if err := tx.UpdateUser(ctx, &model.UpdateUserArgs{
			ID:         user.ID,
			ExternalID: &externalID,
			Email:      &email,
			FullName:   rec.FullName,
			JobTitleID: jobTitleID,
		}); err != nil {
			return err
		}
		outcome = userUpdated
		return nil
	})
	if err != nil {
		return userUnchanged, goerr.Wrap(err, "failed to reconcile user", goerr.V(ExternalIDKey, rec.ExternalID))
	}
	return outcome, nil
}
