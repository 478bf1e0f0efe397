package services

import (
	"context"
	"errors"
	"testing"

	"picturegame-bot/models"
)

func sampleWin(postID, guesser, submitter string, solvedAt int64, p Points) WinRecord {
	return WinRecord{
		PostID:    postID,
		PostedAt:  solvedAt - 60_000,
		SolvedAt:  solvedAt,
		Guesser:   guesser,
		Submitter: submitter,
		Points:    p,
	}
}

func TestLedgerRecordWinIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	ledger := NewLedgerService(db)

	if err := ledger.RecordWin(ctx, sampleWin("p1", "alice", "bob", 1_000_000, Points{6, 3})); err != nil {
		t.Fatalf("first RecordWin: %v", err)
	}
	if err := ledger.RecordWin(ctx, sampleWin("p1", "alice", "bob", 1_000_000, Points{1, 2})); err != nil {
		t.Fatalf("second RecordWin: %v", err)
	}

	var wins, awards int64
	db.Model(&models.Win{}).Count(&wins)
	db.Model(&models.PointAward{}).Count(&awards)
	if wins != 1 || awards != 2 {
		t.Fatalf("rows = %d wins, %d awards, want 1 and 2", wins, awards)
	}

	alice, _ := ledger.GetUserScore(ctx, "alice", nil)
	bob, _ := ledger.GetUserScore(ctx, "bob", nil)
	if alice != 1 || bob != 2 {
		t.Fatalf("scores = %d/%d, want last call's 1/2", alice, bob)
	}
}

func TestLedgerUserScoreIsCaseInsensitiveAndIncludesLegacy(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	ledger := NewLedgerService(db)

	_ = ledger.RecordWin(ctx, sampleWin("p1", "Alice", "bob", 1_000_000, Points{6, 3}))
	_ = ledger.RecordWin(ctx, sampleWin("p2", "alice", "carol", 5_000_000, Points{6, 3}))
	if err := db.Create(&models.LegacyImport{Username: "ALICE", Points: 100}).Error; err != nil {
		t.Fatal(err)
	}

	all, err := ledger.GetUserScore(ctx, "alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if all != 112 {
		t.Fatalf("all-time = %d, want 112", all)
	}

	ranged, err := ledger.GetUserScore(ctx, "alice", &TimeRange{From: 2_000_000})
	if err != nil {
		t.Fatal(err)
	}
	if ranged != 6 {
		t.Fatalf("ranged = %d, want 6 (legacy excluded)", ranged)
	}

	none, _ := ledger.GetUserScore(ctx, "nobody", nil)
	if none != 0 {
		t.Fatalf("unknown user = %d, want 0", none)
	}
}

func TestLedgerAdjustAndEditPoints(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerService(newTestDB(t))
	_ = ledger.RecordWin(ctx, sampleWin("p1", "alice", "bob", 1_000_000, Points{1, 2}))

	if err := ledger.AdjustPoints(ctx, "p1", Points{5, 1}); err != nil {
		t.Fatalf("AdjustPoints: %v", err)
	}
	win, err := ledger.GetWin(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	got := map[models.Role]int{}
	for _, a := range win.Awards {
		got[a.Role] = a.Points
	}
	if got[models.RoleGuesser] != 6 || got[models.RoleSubmitter] != 3 {
		t.Fatalf("awards after adjust = %v", got)
	}

	if err := ledger.EditPoints(ctx, "p1", Points{2, 2}); err != nil {
		t.Fatalf("EditPoints: %v", err)
	}
	alice, _ := ledger.GetUserScore(ctx, "alice", nil)
	if alice != 2 {
		t.Fatalf("alice after edit = %d, want 2", alice)
	}

	if err := ledger.AdjustPoints(ctx, "missing", Points{1, 1}); !errors.Is(err, ErrWinNotFound) {
		t.Fatalf("adjust missing post err = %v, want ErrWinNotFound", err)
	}
}

func TestLedgerDeleteWin(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	_ = ledger.RecordWin(ctx, sampleWin("p1", "alice", "bob", 1_000_000, Points{6, 3}))

	if err := ledger.DeleteWin(ctx, "p1"); err != nil {
		t.Fatalf("DeleteWin: %v", err)
	}
	if _, err := ledger.GetWin(ctx, "p1"); !errors.Is(err, ErrWinNotFound) {
		t.Fatalf("GetWin after delete err = %v", err)
	}
	var awards int64
	db.Model(&models.PointAward{}).Count(&awards)
	if awards != 0 {
		t.Fatalf("awards left = %d", awards)
	}
	if err := ledger.DeleteWin(ctx, "p1"); err != nil {
		t.Fatalf("second DeleteWin: %v", err)
	}
}

func TestLedgerHighScores(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	ledger := NewLedgerService(db)

	// alice guesses twice, bob once; carol submits twice.
	_ = ledger.RecordWin(ctx, WinRecord{PostID: "p1", PostedAt: 1_000, SolvedAt: 61_000, Guesser: "alice", Submitter: "carol", Points: Points{6, 3}})
	_ = ledger.RecordWin(ctx, WinRecord{PostID: "p2", PostedAt: 1_000, SolvedAt: 3_601_000, Guesser: "alice", Submitter: "carol", Points: Points{1, 2}})
	_ = ledger.RecordWin(ctx, WinRecord{PostID: "p3", PostedAt: 1_000, SolvedAt: 11_000, Guesser: "bob", Submitter: "dave", Points: Points{6, 3}})
	db.Create(&models.LegacyImport{Username: "zed", Points: 50})

	hs, err := ledger.GetHighScores(ctx, nil, 10)
	if err != nil {
		t.Fatalf("GetHighScores: %v", err)
	}
	if len(hs.Scores) == 0 || hs.Scores[0].Username != "zed" || hs.Scores[0].Points != 50 {
		t.Fatalf("top score = %+v, want zed with legacy 50", hs.Scores)
	}
	if hs.Guessers[0].Username != "alice" || hs.Guessers[0].Wins != 2 {
		t.Fatalf("top guesser = %+v", hs.Guessers[0])
	}
	if hs.Submitters[0].Username != "carol" || hs.Submitters[0].Wins != 2 {
		t.Fatalf("top submitter = %+v", hs.Submitters[0])
	}
	if hs.Fastest[0].PostID != "p3" || hs.Fastest[0].DurationMs != 10_000 {
		t.Fatalf("fastest = %+v", hs.Fastest[0])
	}
	if hs.Slowest[0].PostID != "p2" {
		t.Fatalf("slowest = %+v", hs.Slowest[0])
	}

	ranged, err := ledger.GetHighScores(ctx, &TimeRange{From: 50_000, To: 100_000}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged.Scores) != 2 || len(ranged.Guessers) != 1 || ranged.Guessers[0].Username != "alice" {
		t.Fatalf("ranged = %+v", ranged)
	}
	for _, s := range ranged.Scores {
		if s.Username == "zed" {
			t.Fatal("legacy totals must not appear in a ranged leaderboard")
		}
	}
}
