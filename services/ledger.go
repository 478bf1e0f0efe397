// services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"picturegame-bot/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrWinNotFound is returned when a correction targets a post with no recorded win.
var ErrWinNotFound = errors.New("win not found")

// TimeRange bounds a query on solve time, in epoch milliseconds. From is
// inclusive, To exclusive; zero leaves that side open.
type TimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// WinRecord is everything the ledger needs to persist one win.
type WinRecord struct {
	PostID    string
	PostedAt  int64
	SolvedAt  int64
	Guesser   string
	Submitter string
	Points    Points
}

type UserScore struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
}

type UserWins struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

type SolveTime struct {
	PostID     string `json:"post_id"`
	Guesser    string `json:"guesser"`
	Submitter  string `json:"submitter"`
	DurationMs int64  `json:"duration_ms"`
}

type HighScores struct {
	Scores     []UserScore `json:"scores"`
	Guessers   []UserWins  `json:"guessers"`
	Submitters []UserWins  `json:"submitters"`
	Fastest    []SolveTime `json:"fastest"`
	Slowest    []SolveTime `json:"slowest"`
}

// Ledger persists wins and their point awards. A user's score is always the
// sum of their awards (plus legacy totals for all-time queries).
type Ledger interface {
	GetUserScore(ctx context.Context, username string, tr *TimeRange) (int, error)
	GetWin(ctx context.Context, postID string) (*models.Win, error)
	RecordWin(ctx context.Context, rec WinRecord) error
	DeleteWin(ctx context.Context, postID string) error
	EditPoints(ctx context.Context, postID string, p Points) error
	AdjustPoints(ctx context.Context, postID string, delta Points) error
	GetHighScores(ctx context.Context, tr *TimeRange, limit int) (*HighScores, error)
}

type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

func applyRange(q *gorm.DB, column string, tr *TimeRange) *gorm.DB {
	if tr == nil {
		return q
	}
	if tr.From > 0 {
		q = q.Where(column+" >= ?", tr.From)
	}
	if tr.To > 0 {
		q = q.Where(column+" < ?", tr.To)
	}
	return q
}

func (s *LedgerService) GetUserScore(ctx context.Context, username string, tr *TimeRange) (int, error) {
	var total int
	q := s.DB.WithContext(ctx).
		Table("point_awards").
		Select("COALESCE(SUM(point_awards.points), 0)").
		Where("LOWER(point_awards.username) = LOWER(?)", username)
	if tr != nil {
		q = applyRange(q.Joins("JOIN wins ON wins.post_id = point_awards.post_id"), "wins.solved_at", tr)
	}
	if err := q.Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum awards for %s: %w", username, err)
	}

	if tr == nil {
		var legacy int
		if err := s.DB.WithContext(ctx).
			Model(&models.LegacyImport{}).
			Select("COALESCE(SUM(points), 0)").
			Where("LOWER(username) = LOWER(?)", username).
			Scan(&legacy).Error; err != nil {
			return 0, fmt.Errorf("sum legacy points for %s: %w", username, err)
		}
		total += legacy
	}
	return total, nil
}

func (s *LedgerService) GetWin(ctx context.Context, postID string) (*models.Win, error) {
	var win models.Win
	err := s.DB.WithContext(ctx).Preload("Awards").Where("post_id = ?", postID).First(&win).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWinNotFound
	}
	if err != nil {
		return nil, err
	}
	return &win, nil
}

// RecordWin inserts or replaces the win and its two awards. Replaying the
// same post id overwrites the rows instead of adding new ones.
func (s *LedgerService) RecordWin(ctx context.Context, rec WinRecord) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		win := models.Win{
			PostID:    rec.PostID,
			Guesser:   rec.Guesser,
			Submitter: rec.Submitter,
			PostedAt:  rec.PostedAt,
			SolvedAt:  rec.SolvedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"guesser", "submitter", "posted_at", "solved_at"}),
		}).Omit(clause.Associations).Create(&win).Error; err != nil {
			return fmt.Errorf("upsert win %s: %w", rec.PostID, err)
		}

		awards := []models.PointAward{
			{ID: uuid.NewString(), PostID: rec.PostID, Role: models.RoleGuesser, Username: rec.Guesser, Points: rec.Points.Guesser},
			{ID: uuid.NewString(), PostID: rec.PostID, Role: models.RoleSubmitter, Username: rec.Submitter, Points: rec.Points.Submitter},
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "role"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "points"}),
		}).Create(&awards).Error; err != nil {
			return fmt.Errorf("upsert awards %s: %w", rec.PostID, err)
		}
		return nil
	})
}

// DeleteWin removes the win together with its awards. Deleting an unknown
// post is not an error.
func (s *LedgerService) DeleteWin(ctx context.Context, postID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.PointAward{}).Error; err != nil {
			return fmt.Errorf("delete awards %s: %w", postID, err)
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Win{}).Error; err != nil {
			return fmt.Errorf("delete win %s: %w", postID, err)
		}
		return nil
	})
}

// EditPoints overwrites both awards of a win with absolute values.
func (s *LedgerService) EditPoints(ctx context.Context, postID string, p Points) error {
	return s.updateAwards(ctx, postID, func(tx *gorm.DB, role models.Role) *gorm.DB {
		value := p.Guesser
		if role == models.RoleSubmitter {
			value = p.Submitter
		}
		return tx.UpdateColumn("points", value)
	})
}

// AdjustPoints adds delta to both awards of a win.
func (s *LedgerService) AdjustPoints(ctx context.Context, postID string, delta Points) error {
	return s.updateAwards(ctx, postID, func(tx *gorm.DB, role models.Role) *gorm.DB {
		value := delta.Guesser
		if role == models.RoleSubmitter {
			value = delta.Submitter
		}
		return tx.UpdateColumn("points", gorm.Expr("points + ?", value))
	})
}

func (s *LedgerService) updateAwards(ctx context.Context, postID string, update func(tx *gorm.DB, role models.Role) *gorm.DB) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, role := range []models.Role{models.RoleGuesser, models.RoleSubmitter} {
			res := update(tx.Model(&models.PointAward{}).Where("post_id = ? AND role = ?", postID, role), role)
			if res.Error != nil {
				return fmt.Errorf("update %s award %s: %w", role, postID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("post %s: %w", postID, ErrWinNotFound)
			}
		}
		return nil
	})
}

func (s *LedgerService) GetHighScores(ctx context.Context, tr *TimeRange, limit int) (*HighScores, error) {
	if limit <= 0 {
		limit = 10
	}
	db := s.DB.WithContext(ctx)
	out := &HighScores{}

	scores, err := s.scoreTotals(ctx, tr)
	if err != nil {
		return nil, err
	}
	if len(scores) > limit {
		scores = scores[:limit]
	}
	out.Scores = scores

	if err := applyRange(db.Model(&models.Win{}), "solved_at", tr).
		Select("guesser AS username, COUNT(*) AS wins").
		Group("guesser").
		Order("wins DESC, username ASC").
		Limit(limit).
		Scan(&out.Guessers).Error; err != nil {
		return nil, fmt.Errorf("top guessers: %w", err)
	}

	if err := applyRange(db.Model(&models.Win{}), "solved_at", tr).
		Select("submitter AS username, COUNT(*) AS wins").
		Group("submitter").
		Order("wins DESC, username ASC").
		Limit(limit).
		Scan(&out.Submitters).Error; err != nil {
		return nil, fmt.Errorf("top submitters: %w", err)
	}

	solveTimes := func(order string) ([]SolveTime, error) {
		var rows []SolveTime
		err := applyRange(db.Model(&models.Win{}), "solved_at", tr).
			Select("post_id, guesser, submitter, solved_at - posted_at AS duration_ms").
			Where("posted_at > 0 AND solved_at >= posted_at").
			Order("duration_ms " + order + ", post_id ASC").
			Limit(limit).
			Scan(&rows).Error
		return rows, err
	}
	if out.Fastest, err = solveTimes("ASC"); err != nil {
		return nil, fmt.Errorf("fastest solves: %w", err)
	}
	if out.Slowest, err = solveTimes("DESC"); err != nil {
		return nil, fmt.Errorf("slowest solves: %w", err)
	}
	return out, nil
}

// scoreTotals sums awards per user, folding in legacy totals for all-time
// queries, sorted by points descending.
func (s *LedgerService) scoreTotals(ctx context.Context, tr *TimeRange) ([]UserScore, error) {
	var rows []UserScore
	q := s.DB.WithContext(ctx).
		Table("point_awards").
		Select("point_awards.username AS username, SUM(point_awards.points) AS points").
		Group("point_awards.username")
	if tr != nil {
		q = applyRange(q.Joins("JOIN wins ON wins.post_id = point_awards.post_id"), "wins.solved_at", tr)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("score totals: %w", err)
	}

	totals := make(map[string]*UserScore, len(rows))
	for i := range rows {
		key := strings.ToLower(rows[i].Username)
		if existing, ok := totals[key]; ok {
			existing.Points += rows[i].Points
			continue
		}
		totals[key] = &rows[i]
	}

	if tr == nil {
		var legacy []UserScore
		if err := s.DB.WithContext(ctx).
			Model(&models.LegacyImport{}).
			Select("username, SUM(points) AS points").
			Group("username").
			Scan(&legacy).Error; err != nil {
			return nil, fmt.Errorf("legacy totals: %w", err)
		}
		for i := range legacy {
			key := strings.ToLower(legacy[i].Username)
			if existing, ok := totals[key]; ok {
				existing.Points += legacy[i].Points
				continue
			}
			totals[key] = &legacy[i]
		}
	}

	scores := make([]UserScore, 0, len(totals))
	for _, score := range totals {
		scores = append(scores, *score)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Points != scores[j].Points {
			return scores[i].Points > scores[j].Points
		}
		return scores[i].Username < scores[j].Username
	})
	return scores, nil
}
