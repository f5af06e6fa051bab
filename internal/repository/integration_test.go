//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/database"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var pgDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=habitat password=habitat_password dbname=habitat_test sslmode=disable TimeZone=UTC"
	}

	var err error
	pgDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot connect to test database: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := pgDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot get sql.DB: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "migrations failed: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func pgUser(t *testing.T, repo *repository.Repository) *model.User {
	t.Helper()
	u := &model.User{Email: fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())}
	if err := repo.User.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		pgDB.Exec("DELETE FROM user_progress WHERE user_id = ?", u.UserID)
		pgDB.Exec("DELETE FROM users WHERE user_id = ?", u.UserID)
	})
	return u
}

// ═══════════════════════════════════════════════════════════
// Concurrency
// ═══════════════════════════════════════════════════════════

func TestIntegration_BetaCodeClaimedOnce(t *testing.T) {
	repo := repository.NewRepository(pgDB)
	ctx := context.Background()

	code := fmt.Sprintf("IT%d", time.Now().UnixNano()%1_000_000_000)
	if err := repo.BetaCode.CreateBatch(ctx, []*model.BetaInvitationCode{{
		Code: code, Organization: "integration", BatchID: "9a3d6c58-0000-4000-8000-000000000001",
	}}); err != nil {
		t.Fatalf("create code: %v", err)
	}
	t.Cleanup(func() { pgDB.Exec("DELETE FROM beta_invitation_codes WHERE code = ?", code) })

	const n = 8
	users := make([]*model.User, n)
	for i := range users {
		users[i] = pgUser(t, repo)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			ok, err := repo.BetaCode.MarkUsed(ctx, code, u.UserID, time.Now().UTC())
			if err != nil {
				t.Errorf("mark used: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(users[i])
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", wins)
	}
}

func TestIntegration_ProgressVersionGuard(t *testing.T) {
	repo := repository.NewRepository(pgDB)
	ctx := context.Background()
	u := pgUser(t, repo)

	p, err := repo.Progress.GetOrCreate(ctx, u.UserID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	upd := repository.CompletionUpdate{
		UserID:          u.UserID,
		ExpectedVersion: p.Version,
		XPGained:        150,
		LevelThreshold:  300,
		Streak:          1,
		ActiveDate:      time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Progress.ApplyCompletion(ctx, upd); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := repo.Progress.ApplyCompletion(ctx, upd); err != pkgerrors.ErrOptimisticLock {
		t.Fatalf("expected ErrOptimisticLock, got %v", err)
	}
}
