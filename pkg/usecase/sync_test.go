package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/plaza-hq/rostersync/pkg/domain/interfaces"
	"github.com/plaza-hq/rostersync/pkg/domain/model"
	"github.com/plaza-hq/rostersync/pkg/repository/memory"
	"github.com/plaza-hq/rostersync/pkg/usecase"
	"github.com/plaza-hq/rostersync/pkg/utils/logging"
)

// recorder collects published events
type recorder struct {
	mu     sync.Mutex
	events []model.StatusEvent
}

func (r *recorder) Publish(ev model.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []model.StatusKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]model.StatusKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind()
	}
	return kinds
}

func (r *recorder) userFailures() []model.UserSyncFailed {
	r.mu.Lock()
	defer r.mu.Unlock()
	var failed []model.UserSyncFailed
	for _, ev := range r.events {
		if f, ok := ev.(model.UserSyncFailed); ok {
			failed = append(failed, f)
		}
	}
	return failed
}

// mockRepository wraps a real repository and lets tests intercept writes
type mockRepository struct {
	interfaces.Repository

	mu              sync.Mutex
	createJobTitles int
	createUsers     int
	updateUsers     int

	CreateJobTitleFn func(ctx context.Context, args *model.CreateJobTitleArgs) error
	UpdateUserFn     func(ctx context.Context, args *model.UpdateUserArgs) error
}

func (m *mockRepository) RunTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	return m.Repository.RunTx(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		return fn(ctx, &mockTransaction{Transaction: tx, repo: m})
	})
}

type mockTransaction struct {
	interfaces.Transaction
	repo *mockRepository
}

func (x *mockTransaction) CreateJobTitle(ctx context.Context, args *model.CreateJobTitleArgs) (model.JobTitleID, error) {
	x.repo.mu.Lock()
	x.repo.createJobTitles++
	fn := x.repo.CreateJobTitleFn
	x.repo.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, args); err != nil {
			return 0, err
		}
	}
	return x.Transaction.CreateJobTitle(ctx, args)
}

func (x *mockTransaction) CreateUser(ctx context.Context, args *model.CreateUserArgs) (model.UserID, error) {
	x.repo.mu.Lock()
	x.repo.createUsers++
	x.repo.mu.Unlock()
	return x.Transaction.CreateUser(ctx, args)
}

func (x *mockTransaction) UpdateUser(ctx context.Context, args *model.UpdateUserArgs) error {
	x.repo.mu.Lock()
	x.repo.updateUsers++
	fn := x.repo.UpdateUserFn
	x.repo.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, args); err != nil {
			return err
		}
	}
	return x.Transaction.UpdateUser(ctx, args)
}

func (m *mockRepository) writes() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createJobTitles, m.createUsers, m.updateUsers
}

func (m *mockRepository) resetCounts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createJobTitles, m.createUsers, m.updateUsers = 0, 0, 0
}

func record(id int64, name, email, title string) model.RosterRecord {
	return model.RosterRecord{
		ExternalID: model.ExternalID(id),
		Hostname:   name,
		FullName:   name,
		Email:      email,
		IsEnabled:  true,
		JobTitle:   title,
	}
}

func ptr[T any](v T) *T {
	return &v
}

var testMeta = model.EventMeta{PassID: "pass-test"}

func runPass(ctx context.Context, uc *usecase.UseCases, roster []model.RosterRecord) (model.JobTitleCache, model.UserSyncResult) {
	cache := uc.JobTitle.Run(ctx, testMeta, roster)
	result := uc.User.Run(ctx, testMeta, cache, roster)
	return cache, result
}

func listUsers(t *testing.T, repo interfaces.Repository) []*model.User {
	t.Helper()
	var users []*model.User
	err := repo.RunTx(context.Background(), func(ctx context.Context, tx interfaces.Transaction) error {
		var err error
		users, err = tx.ListUsers(ctx)
		return err
	})
	gt.NoError(t, err).Required()
	return users
}

func listJobTitles(t *testing.T, repo interfaces.Repository) []*model.JobTitle {
	t.Helper()
	var jobTitles []*model.JobTitle
	err := repo.RunTx(context.Background(), func(ctx context.Context, tx interfaces.Transaction) error {
		var err error
		jobTitles, err = tx.ListJobTitles(ctx)
		return err
	})
	gt.NoError(t, err).Required()
	return jobTitles
}

func TestJobTitleSync(t *testing.T) {
	t.Run("creates missing labels once and caches all", func(t *testing.T) {
		ctx := context.Background()
		repo := memory.New()
		rec := &recorder{}
		uc := usecase.New(repo, rec)

		roster := []model.RosterRecord{
			record(1, "A", "a@x", "Engineer"),
			record(2, "B", "b@x", "Manager"),
			record(3, "C", "c@x", "Engineer"),
		}
		cache := uc.JobTitle.Run(ctx, testMeta, roster)

		gt.Number(t, cache.Len()).Equal(2)
		for _, rec := range roster {
			_, ok := cache.Lookup(rec.JobTitle)
			gt.Bool(t, ok).True()
		}

		jobTitles := listJobTitles(t, repo)
		gt.Array(t, jobTitles).Length(2).Required()
		gt.Value(t, jobTitles[0].Label).Equal("Engineer")
		gt.Value(t, jobTitles[1].Label).Equal("Manager")
		gt.Value(t, jobTitles[0].Name).Nil()

		gt.Value(t, rec.kinds()).Equal([]model.StatusKind{
			model.StatusJobTitleSyncing,
			model.StatusJobTitleSyncing,
			model.StatusJobTitleSyncFinished,
		})

		finished := rec.events[2].(model.JobTitleSyncFinished)
		gt.Number(t, finished.Total).Equal(2)
		gt.Number(t, finished.Cached).Equal(2)
		gt.Value(t, finished.PassID).Equal("pass-test")
	})

	t.Run("reuses existing job titles", func(t *testing.T) {
		ctx := context.Background()
		repo := &mockRepository{Repository: memory.New()}
		uc := usecase.New(repo, nil)

		first := uc.JobTitle.Run(ctx, testMeta, []model.RosterRecord{record(1, "A", "a@x", "Engineer")})
		repo.resetCounts()

		second := uc.JobTitle.Run(ctx, testMeta, []model.RosterRecord{record(2, "B", "b@x", "Engineer")})
		created, _, _ := repo.writes()
		gt.Number(t, created).Equal(0)

		id1, _ := first.Lookup("Engineer")
		id2, _ := second.Lookup("Engineer")
		gt.Value(t, id1).Equal(id2)
	})

	t.Run("failed label is reported and left out of the cache", func(t *testing.T) {
		ctx := context.Background()
		errInsert := errors.New("insert refused")
		repo := &mockRepository{
			Repository: memory.New(),
			CreateJobTitleFn: func(ctx context.Context, args *model.CreateJobTitleArgs) error {
				if args.Label == "Broken" {
					return errInsert
				}
				return nil
			},
		}
		rec := &recorder{}
		uc := usecase.New(repo, rec)

		cache := uc.JobTitle.Run(ctx, testMeta, []model.RosterRecord{
			record(1, "A", "a@x", "Broken"),
			record(2, "B", "b@x", "Engineer"),
		})

		gt.Number(t, cache.Len()).Equal(1)
		_, ok := cache.Lookup("Broken")
		gt.Bool(t, ok).False()
		_, ok = cache.Lookup("Engineer")
		gt.Bool(t, ok).True()

		var failed *model.JobTitleSyncFailed
		for _, ev := range rec.events {
			if f, ok := ev.(model.JobTitleSyncFailed); ok {
				failed = &f
			}
		}
		gt.Value(t, failed).NotNil().Required()
		gt.Value(t, failed.Label).Equal("Broken")
		gt.Number(t, failed.Current).Equal(1)
		gt.Number(t, failed.Total).Equal(2)
		gt.Error(t, failed.Err).Is(errInsert)
	})

	t.Run("empty roster", func(t *testing.T) {
		rec := &recorder{}
		uc := usecase.New(memory.New(), rec)

		cache := uc.JobTitle.Run(context.Background(), testMeta, nil)
		gt.Number(t, cache.Len()).Equal(0)
		gt.Value(t, rec.kinds()).Equal([]model.StatusKind{model.StatusJobTitleSyncFinished})
	})
}

func TestUserSync(t *testing.T) {
	t.Run("new hire is created with a fresh job title", func(t *testing.T) {
		ctx := context.Background()
		repo := memory.New()
		rec := &recorder{}
		uc := usecase.New(repo, rec)

		cache, result := runPass(ctx, uc, []model.RosterRecord{record(42, "New Hire", "new@x.com", "Intern")})
		gt.Value(t, result).Equal(model.UserSyncResult{Total: 1, Created: 1})

		internID, ok := cache.Lookup("Intern")
		gt.Bool(t, ok).True()

		users := listUsers(t, repo)
		gt.Array(t, users).Length(1).Required()
		gt.Value(t, *users[0].ExternalID).Equal(model.ExternalID(42))
		gt.Value(t, *users[0].Email).Equal("new@x.com")
		gt.Value(t, users[0].FullName).Equal("New Hire")
		gt.Value(t, users[0].JobTitleID).Equal(internID)
		gt.Value(t, users[0].PasswordHash).Nil()

		gt.Value(t, rec.kinds()).Equal([]model.StatusKind{
			model.StatusJobTitleSyncing,
			model.StatusJobTitleSyncFinished,
			model.StatusUserSyncing,
			model.StatusUserSyncFinished,
		})
		syncing := rec.events[2].(model.UserSyncing)
		gt.Value(t, syncing.ExternalID).Equal(model.ExternalID(42))
		gt.Value(t, syncing.Email).Equal("new@x.com")
		gt.Number(t, syncing.Current).Equal(1)
		gt.Number(t, syncing.Total).Equal(1)
	})

	t.Run("second identical pass writes nothing", func(t *testing.T) {
		ctx := context.Background()
		repo := &mockRepository{Repository: memory.New()}
		uc := usecase.New(repo, nil)

		roster := []model.RosterRecord{
			record(1, "A", "a@x", "Engineer"),
			record(2, "B", "b@x", "Manager"),
		}
		_, first := runPass(ctx, uc, roster)
		gt.Number(t, first.Created).Equal(2)
		before := listUsers(t, repo)

		repo.resetCounts()
		_, second := runPass(ctx, uc, roster)

		gt.Value(t, second).Equal(model.UserSyncResult{Total: 2, Unchanged: 2})
		jt, cu, uu := repo.writes()
		gt.Number(t, jt).Equal(0)
		gt.Number(t, cu).Equal(0)
		gt.Number(t, uu).Equal(0)
		gt.Value(t, listUsers(t, repo)).Equal(before)
	})

	t.Run("changed fields update in place and keep the password hash", func(t *testing.T) {
		ctx := context.Background()
		repo := memory.New()
		uc := usecase.New(repo, nil)

		var engineerID model.JobTitleID
		err := repo.RunTx(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
			var err error
			engineerID, err = tx.CreateJobTitle(ctx, &model.CreateJobTitleArgs{Label: "Engineer"})
			if err != nil {
				return err
			}
			_, err = tx.CreateUser(ctx, &model.CreateUserArgs{
				ExternalID:   ptr(model.ExternalID(7)),
				Email:        ptr("old@x.com"),
				FullName:     "Old Name",
				PasswordHash: ptr("hash"),
				JobTitleID:   engineerID,
			})
			return err
		})
		gt.NoError(t, err).Required()

		cache, result := runPass(ctx, uc, []model.RosterRecord{record(7, "New Name", "new@x.com", "Lead")})
		gt.Value(t, result).Equal(model.UserSyncResult{Total: 1, Updated: 1})

		leadID, ok := cache.Lookup("Lead")
		gt.Bool(t, ok).True()

		users := listUsers(t, repo)
		gt.Array(t, users).Length(1).Required()
		gt.Value(t, *users[0].Email).Equal("new@x.com")
		gt.Value(t, users[0].FullName).Equal("New Name")
		gt.Value(t, users[0].JobTitleID).Equal(leadID)
		gt.Value(t, *users[0].PasswordHash).Equal("hash")
	})

	t.Run("one failing record does not affect the others", func(t *testing.T) {
		ctx := context.Background()
		errUpdate := errors.New("update refused")
		repo := &mockRepository{Repository: memory.New()}
		uc := usecase.New(repo, nil)

		// seed users 1..3 so the next pass updates them
		_, seeded := runPass(ctx, uc, []model.RosterRecord{
			record(1, "A", "a@x", "Engineer"),
			record(2, "B", "b@x", "Engineer"),
			record(3, "C", "c@x", "Engineer"),
		})
		gt.Number(t, seeded.Created).Equal(3)

		repo.UpdateUserFn = func(ctx context.Context, args *model.UpdateUserArgs) error {
			if args.ExternalID != nil && *args.ExternalID == 2 {
				return errUpdate
			}
			return nil
		}

		rec := &recorder{}
		uc = usecase.New(repo, rec)
		_, result := runPass(ctx, uc, []model.RosterRecord{
			record(1, "A2", "a@x", "Engineer"),
			record(2, "B2", "b@x", "Engineer"),
			record(3, "C2", "c@x", "Engineer"),
		})
		gt.Value(t, result).Equal(model.UserSyncResult{Total: 3, Updated: 2, Failed: 1})

		names := map[model.ExternalID]string{}
		for _, u := range listUsers(t, repo) {
			names[*u.ExternalID] = u.FullName
		}
		gt.Value(t, names[1]).Equal("A2")
		gt.Value(t, names[2]).Equal("B")
		gt.Value(t, names[3]).Equal("C2")

		failures := rec.userFailures()
		gt.Array(t, failures).Length(1).Required()
		gt.Value(t, failures[0].ExternalID).Equal(model.ExternalID(2))
		gt.Number(t, failures[0].Current).Equal(2)
		gt.Number(t, failures[0].Total).Equal(3)
		gt.Error(t, failures[0].Err).Is(errUpdate)
	})

	t.Run("cache miss fails only that record", func(t *testing.T) {
		ctx := context.Background()
		repo := memory.New()
		rec := &recorder{}
		uc := usecase.New(repo, rec)

		cache := uc.JobTitle.Run(ctx, testMeta, []model.RosterRecord{record(1, "A", "a@x", "Engineer")})
		result := uc.User.Run(ctx, testMeta, cache, []model.RosterRecord{
			record(1, "A", "a@x", "Engineer"),
			record(2, "B", "b@x", "Unknown"),
		})
		gt.Value(t, result).Equal(model.UserSyncResult{Total: 2, Created: 1, Failed: 1})

		failures := rec.userFailures()
		gt.Array(t, failures).Length(1).Required()
		gt.Value(t, failures[0].ExternalID).Equal(model.ExternalID(2))
		gt.Error(t, failures[0].Err).Is(usecase.ErrJobTitleCacheMiss)

		gt.Array(t, listUsers(t, repo)).Length(1)
	})

	t.Run("failed job title cascades into cache misses", func(t *testing.T) {
		ctx := context.Background()
		repo := &mockRepository{
			Repository: memory.New(),
			CreateJobTitleFn: func(ctx context.Context, args *model.CreateJobTitleArgs) error {
				return errors.New("down")
			},
		}
		rec := &recorder{}
		uc := usecase.New(repo, rec)

		_, result := runPass(ctx, uc, []model.RosterRecord{record(1, "A", "a@x", "Engineer")})
		gt.Value(t, result).Equal(model.UserSyncResult{Total: 1, Failed: 1})
		gt.Error(t, rec.userFailures()[0].Err).Is(usecase.ErrJobTitleCacheMiss)
	})

	t.Run("timestamps come from the clock", func(t *testing.T) {
		fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		rec := &recorder{}
		uc := usecase.New(memory.New(), rec, usecase.WithClock(func() time.Time { return fixed }))

		runPass(context.Background(), uc, []model.RosterRecord{record(1, "A", "a@x", "Engineer")})
		for _, ev := range rec.events {
			gt.Value(t, ev.Meta().At).Equal(fixed)
			gt.Value(t, ev.Meta().PassID).Equal("pass-test")
		}
	})

	t.Run("transaction timeout fails records instead of hanging", func(t *testing.T) {
		ctx := context.Background()
		repo := &mockRepository{
			Repository: memory.New(),
			CreateJobTitleFn: func(ctx context.Context, args *model.CreateJobTitleArgs) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}
		uc := usecase.New(repo, nil, usecase.WithTxTimeout(20*time.Millisecond))

		cache, result := runPass(ctx, uc, []model.RosterRecord{record(1, "A", "a@x", "Engineer")})
		gt.Number(t, cache.Len()).Equal(0)
		gt.Value(t, result).Equal(model.UserSyncResult{Total: 1, Failed: 1})
	})
}

func TestSync_FailuresAreLeftToStatusConsumers(t *testing.T) {
	errFull := errors.New("table full")
	roster := []model.RosterRecord{
		record(1, "Ann", "ann@example.com", "Engineer"),
		record(2, "Bob", "bob@example.com", "Chef"),
	}

	for _, tc := range []struct {
		name   string
		level  slog.Level
		logged bool
	}{
		{name: "info", level: slog.LevelInfo, logged: false},
		{name: "debug", level: slog.LevelDebug, logged: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: tc.level}))
			ctx := logging.With(context.Background(), logger)

			repo := &mockRepository{
				Repository: memory.New(),
				CreateJobTitleFn: func(ctx context.Context, args *model.CreateJobTitleArgs) error {
					if args.Label == "Chef" {
						return errFull
					}
					return nil
				},
			}
			rec := &recorder{}
			_, result := runPass(ctx, usecase.New(repo, rec), roster)

			gt.Number(t, result.Failed).Equal(1)
			gt.Array(t, rec.userFailures()).Length(1)
			gt.Value(t, bytes.Contains(buf.Bytes(), []byte("job title reconciliation failed"))).Equal(tc.logged)
			gt.Value(t, bytes.Contains(buf.Bytes(), []byte("user reconciliation failed"))).Equal(tc.logged)
		})
	}
}
