// services/leaderboard.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"picturegame-bot/utils"

	"github.com/gosimple/slug"
)

const leaderboardLimit = 10

// Archive stores a blob and returns where it can be read back.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// LeaderboardService renders the monthly leaderboard post.
type LeaderboardService struct {
	ledger  Ledger
	forum   ForumClient
	archive Archive
	logger  *log.Logger
}

// NewLeaderboardService accepts a nil archive, which disables snapshots.
func NewLeaderboardService(ledger Ledger, forum ForumClient, archive Archive, logger *log.Logger) *LeaderboardService {
	return &LeaderboardService{ledger: ledger, forum: forum, archive: archive, logger: logger}
}

// PreviousMonth returns the calendar month before now, in UTC, and its title.
func PreviousMonth(now time.Time) (TimeRange, string) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -1, 0)
	return TimeRange{From: start.UnixMilli(), To: end.UnixMilli()}, "Leaderboard for " + start.Format("January 2006")
}

// CurrentMonth runs from the first of now's month up to now.
func CurrentMonth(now time.Time) (TimeRange, string) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return TimeRange{From: start.UnixMilli(), To: now.UnixMilli() + 1}, "Leaderboard for " + start.Format("January 2006")
}

func (l *LeaderboardService) HighScores(ctx context.Context, tr *TimeRange, limit int) (*HighScores, error) {
	if limit <= 0 {
		limit = leaderboardLimit
	}
	return l.ledger.GetHighScores(ctx, tr, limit)
}

// Render lays the high scores out as markdown tables.
func (l *LeaderboardService) Render(title string, hs *HighScores) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Top scores\n\n| Rank | User | Points |\n|---:|---|---:|\n")
	for i, s := range hs.Scores {
		fmt.Fprintf(&b, "| %d | /u/%s | %s |\n", i+1, s.Username, utils.FormatNumber(s.Points))
	}

	writeWins := func(heading string, rows []UserWins) {
		fmt.Fprintf(&b, "\n## %s\n\n| Rank | User | Wins |\n|---:|---|---:|\n", heading)
		for i, r := range rows {
			fmt.Fprintf(&b, "| %d | /u/%s | %s |\n", i+1, r.Username, utils.FormatNumber(r.Wins))
		}
	}
	writeWins("Most correct guesses", hs.Guessers)
	writeWins("Most solved submissions", hs.Submitters)

	writeTimes := func(heading string, rows []SolveTime) {
		fmt.Fprintf(&b, "\n## %s\n\n| Post | Guesser | Submitter | Time |\n|---|---|---|---:|\n", heading)
		for _, r := range rows {
			fmt.Fprintf(&b, "| [%s](/comments/%s) | /u/%s | /u/%s | %s |\n",
				r.PostID, r.PostID, r.Guesser, r.Submitter, formatSolveTime(r.DurationMs))
		}
	}
	writeTimes("Fastest solves", hs.Fastest)
	writeTimes("Slowest solves", hs.Slowest)

	return b.String()
}

// RenderHTML is Render as sanitised HTML for the stats page.
func (l *LeaderboardService) RenderHTML(title string, hs *HighScores) string {
	return utils.RenderMarkdownHTML(l.Render(title, hs))
}

type leaderboardSnapshot struct {
	Title      string      `json:"title"`
	Range      TimeRange   `json:"range"`
	PostID     string      `json:"post_id,omitempty"`
	HighScores *HighScores `json:"high_scores"`
	CreatedAt  time.Time   `json:"created_at"`
}

// PostMonthly posts last month's leaderboard as a sticky and archives a JSON
// snapshot of it.
func (l *LeaderboardService) PostMonthly(ctx context.Context, now time.Time) error {
	tr, title := PreviousMonth(now)
	hs, err := l.HighScores(ctx, &tr, leaderboardLimit)
	if err != nil {
		return fmt.Errorf("monthly leaderboard: %w", err)
	}
	body := l.Render(title, hs)

	if l.forum.ReadOnly() {
		l.logger.Printf("[Leaderboard] read-only, not posting %q", title)
		return nil
	}

	post, err := l.forum.CreatePost(ctx, title, body, true)
	if err != nil {
		return fmt.Errorf("post %q: %w", title, err)
	}
	l.logger.Printf("[Leaderboard] ✅ posted %q as %s", title, post.ID)

	if l.archive == nil {
		return nil
	}
	data, err := json.Marshal(leaderboardSnapshot{
		Title:      title,
		Range:      tr,
		PostID:     post.ID,
		HighScores: hs,
		CreatedAt:  now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := "leaderboards/" + slug.Make(title) + ".json"
	url, err := l.archive.Put(ctx, key, data, "application/json")
	if err != nil {
		return fmt.Errorf("archive %q: %w", title, err)
	}
	l.logger.Printf("[Leaderboard] 📦 archived snapshot at %s", url)
	return nil
}

func formatSolveTime(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
