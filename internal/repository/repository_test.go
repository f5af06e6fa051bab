package repository_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// ── helpers ──

func newTestRepo(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return repository.NewRepository(db), db
}

func seedUser(t *testing.T, repo *repository.Repository, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Role: model.RoleUser, SubscriptionStatus: model.SubscriptionNone}
	require.NoError(t, repo.User.Create(context.Background(), u))
	return u
}

// ── users ──

func TestUserRepo_EnsureIsIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	id := "6f1c9a52-1111-4a4e-9d7e-0a0000000001"

	first, err := repo.User.Ensure(ctx, id, "  Ana@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", first.Email)
	assert.Equal(t, model.RoleUser, first.Role)

	require.NoError(t, repo.User.UpdateRole(ctx, id, model.RoleBetaTester))

	again, err := repo.User.Ensure(ctx, id, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleBetaTester, again.Role, "Ensure must not overwrite an existing row")
}

func TestUserRepo_EnsureEmailOwnedByAnotherID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "taken@example.com")

	_, err := repo.User.Ensure(ctx, "6f1c9a52-1111-4a4e-9d7e-0a0000000002", "taken@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepo_UpdateMissingUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.User.UpdateRole(context.Background(), "missing", model.RoleAdmin)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepo_ListFilters(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "one@example.com")
	b := seedUser(t, repo, "two@example.com")
	require.NoError(t, repo.User.UpdateRole(ctx, b.UserID, model.RoleAdmin))

	users, total, err := repo.User.List(ctx, &repository.UserListFilters{Role: model.RoleAdmin}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "two@example.com", users[0].Email)

	_, total, err = repo.User.List(ctx, &repository.UserListFilters{Keyword: "ONE"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

// ── progress ──

func TestProgressRepo_ApplyCompletion(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "learner@example.com")

	p, err := repo.Progress.GetOrCreate(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.XP)
	assert.Equal(t, 1, p.Version)

	today := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	err = repo.Progress.ApplyCompletion(ctx, repository.CompletionUpdate{
		UserID:          u.UserID,
		ExpectedVersion: p.Version,
		XPGained:        350,
		LevelThreshold:  300,
		Streak:          1,
		ActiveDate:      today,
		Perfect:         true,
	})
	require.NoError(t, err)

	got, err := repo.Progress.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, 350, got.XP)
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 1, got.Streak)
	assert.Equal(t, 1, got.ExercisesCompleted)
	assert.Equal(t, 1, got.PerfectScores)
	assert.Equal(t, 2, got.Version)

	// the version has moved on, so a writer holding the old one must retry
	err = repo.Progress.ApplyCompletion(ctx, repository.CompletionUpdate{
		UserID:          u.UserID,
		ExpectedVersion: p.Version,
		XPGained:        10,
		LevelThreshold:  300,
		ActiveDate:      today,
	})
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)
}

func TestProgressRepo_AddXPAndRank(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	a := seedUser(t, repo, "a@example.com")
	b := seedUser(t, repo, "b@example.com")
	for _, u := range []*model.User{a, b} {
		_, err := repo.Progress.GetOrCreate(ctx, u.UserID)
		require.NoError(t, err)
	}

	require.NoError(t, repo.Progress.AddXP(ctx, a.UserID, 620, 300))
	require.NoError(t, repo.Progress.AddXP(ctx, b.UserID, 40, 300))

	pa, err := repo.Progress.Get(ctx, a.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, pa.Level)

	top, err := repo.Progress.TopByXP(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, a.UserID, top[0].UserID)

	rank, err := repo.Progress.RankOf(ctx, b.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, rank)

	all, err := repo.Progress.AllXP(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 620, all[0].XP)
	assert.Equal(t, b.UserID, all[1].UserID)

	assert.ErrorIs(t, repo.Progress.AddXP(ctx, "nobody", 5, 300), gorm.ErrRecordNotFound)
}

func TestPointsAndAchievements(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "p@example.com")
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, pts := range []int{150, 60, 10} {
		require.NoError(t, repo.PointsHistory.Append(ctx, &model.PointsHistory{
			UserID:       u.UserID,
			PointsChange: pts,
			Reason:       model.PointsReasonExercise,
			CreatedAt:    base.AddDate(0, 0, i),
		}))
	}

	sum, err := repo.PointsHistory.SumByUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, 220, sum)

	window, err := repo.PointsHistory.SumInWindow(ctx, u.UserID, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 70, window)

	entries, total, err := repo.PointsHistory.ListByUser(ctx, u.UserID, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, entries, 2)
	assert.Equal(t, 10, entries[0].PointsChange)

	awarded, err := repo.Achievement.Award(ctx, u.UserID, "Perfect Score!", base)
	require.NoError(t, err)
	assert.True(t, awarded)
	awarded, err = repo.Achievement.Award(ctx, u.UserID, "Perfect Score!", base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, awarded)

	list, err := repo.Achievement.ListByUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// ── access codes ──

func TestBetaCodeRepo_MarkUsedOnce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u1 := seedUser(t, repo, "first@example.com")
	u2 := seedUser(t, repo, "second@example.com")
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)

	require.NoError(t, repo.BetaCode.CreateBatch(ctx, []*model.BetaInvitationCode{
		{Code: "BETA2024", Organization: "Neptune School", BatchID: "0b7f7c6e-0000-4000-8000-000000000001"},
		{Code: "OLDCODE1", Organization: "Neptune School", BatchID: "0b7f7c6e-0000-4000-8000-000000000001", ExpiresAt: &expired},
	}))

	ok, err := repo.BetaCode.MarkUsed(ctx, "BETA2024", u1.UserID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.BetaCode.MarkUsed(ctx, "BETA2024", u2.UserID, now)
	require.NoError(t, err)
	assert.False(t, ok, "a used code cannot be claimed again")

	stored, err := repo.BetaCode.GetByCode(ctx, "BETA2024")
	require.NoError(t, err)
	assert.True(t, stored.IsUsed)
	require.NotNil(t, stored.UsedBy)
	assert.Equal(t, u1.UserID, *stored.UsedBy)

	ok, err = repo.BetaCode.MarkUsed(ctx, "OLDCODE1", u2.UserID, now)
	require.NoError(t, err)
	assert.False(t, ok, "an expired code cannot be claimed")

	used := true
	codes, total, err := repo.BetaCode.List(ctx, &repository.BetaCodeListFilters{Used: &used}, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, codes, 1)
	assert.Equal(t, "BETA2024", codes[0].Code)

	_, err = repo.BetaCode.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGuestRepos(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "guest@example.com")
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.GuestCode.Create(ctx, &model.GuestCode{Code: "OPENDAY", DurationMinutes: 60, MaxActivations: 1}))

	ok, err := repo.GuestCode.Consume(ctx, "OPENDAY")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.GuestCode.Consume(ctx, "OPENDAY")
	require.NoError(t, err)
	assert.False(t, ok)

	s := &model.GuestSession{UserID: u.UserID, GuestCode: "OPENDAY", StartedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.GuestSession.Create(ctx, s))

	latest, err := repo.GuestSession.LatestByUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, latest.ID)

	ok, err = repo.GuestSession.MarkConverted(ctx, s.ID, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.GuestSession.MarkConverted(ctx, s.ID, now.Add(20*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

// ── content ──

func TestObservationLikes(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "o@example.com")
	obs := &model.Observation{UserID: u.UserID, Title: "Heron at dawn", Species: "Ardea cinerea"}
	require.NoError(t, repo.Observation.Create(ctx, obs))
	now := time.Now().UTC()

	added, err := repo.Observation.AddLike(ctx, obs.ID, u.UserID, now)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.Observation.AddLike(ctx, obs.ID, u.UserID, now)
	require.NoError(t, err)
	assert.False(t, added)

	n, err := repo.Observation.RecountLikes(ctx, obs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	removed, err := repo.Observation.RemoveLike(ctx, obs.ID, u.UserID)
	require.NoError(t, err)
	assert.True(t, removed)
	n, err = repo.Observation.RecountLikes(ctx, obs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPaymentRepo_CreateIfAbsent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "donor@example.com")

	mk := func() *model.Payment {
		return &model.Payment{
			UserID: u.UserID, ProviderSessionID: "cs_test_1", Kind: model.PaymentKindDonation,
			AmountTotal: 500, Currency: "gbp", Status: "paid",
		}
	}
	inserted, err := repo.Payment.CreateIfAbsent(ctx, mk())
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = repo.Payment.CreateIfAbsent(ctx, mk())
	require.NoError(t, err)
	assert.False(t, inserted)

	rows, err := repo.Payment.ListByUser(ctx, u.UserID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExerciseAndChallengeRepos(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	ex := &model.Exercise{Title: "Rivers", Unit: "unit-1", Text: "The ___ flows to the ___.", Answers: []string{"river", "sea"}}
	require.NoError(t, repo.Exercise.Create(ctx, ex))
	got, err := repo.Exercise.GetByID(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"river", "sea"}, []string(got.Answers))

	list, err := repo.Exercise.List(ctx, "unit-2")
	require.NoError(t, err)
	assert.Empty(t, list)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Challenge.Create(ctx, &model.Challenge{Title: "June sprint", TargetXP: 500, StartsAt: now, EndsAt: now.AddDate(0, 1, 0)}))
	require.NoError(t, repo.Challenge.Create(ctx, &model.Challenge{Title: "May sprint", TargetXP: 500, StartsAt: now.AddDate(0, -1, 0), EndsAt: now}))

	active, err := repo.Challenge.ListActive(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "June sprint", active[0].Title)
}

func TestRepository_TransactionRollsBack(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, &model.User{Email: "tx@example.com"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.User.GetByEmail(ctx, "tx@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
