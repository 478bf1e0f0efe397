//go:build integration

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"picturegame-bot/models"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPostgresLedger(t *testing.T) *LedgerService {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("picturegame"),
		tcpostgres.WithUsername("picturegame"),
		tcpostgres.WithPassword("picturegame"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.AutoMigrate(&models.Win{}, &models.PointAward{}, &models.LegacyImport{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLedgerService(db)
}

func TestPostgresLedgerLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ledger := newPostgresLedger(t)

	rec := sampleWin("abc123", "alice", "bob", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli(), Points{1, 2})
	for i := 0; i < 2; i++ {
		if err := ledger.RecordWin(ctx, rec); err != nil {
			t.Fatalf("RecordWin #%d: %v", i+1, err)
		}
	}
	if err := ledger.AdjustPoints(ctx, "abc123", Points{5, 1}); err != nil {
		t.Fatalf("AdjustPoints: %v", err)
	}
	if got, _ := ledger.GetUserScore(ctx, "ALICE", nil); got != 6 {
		t.Fatalf("alice = %d, want 6", got)
	}

	march := TimeRange{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		To:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
	hs, err := ledger.GetHighScores(ctx, &march, 5)
	if err != nil {
		t.Fatalf("GetHighScores: %v", err)
	}
	if len(hs.Scores) != 2 || hs.Scores[0].Username != "alice" || len(hs.Fastest) != 1 {
		t.Fatalf("high scores = %+v", hs)
	}

	if err := ledger.DeleteWin(ctx, "abc123"); err != nil {
		t.Fatalf("DeleteWin: %v", err)
	}
	if _, err := ledger.GetWin(ctx, "abc123"); !errors.Is(err, ErrWinNotFound) {
		t.Fatalf("GetWin after delete: %v", err)
	}
	if got, _ := ledger.GetUserScore(ctx, "bob", nil); got != 0 {
		t.Fatalf("bob = %d, want 0", got)
	}
}
