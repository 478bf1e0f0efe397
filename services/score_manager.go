// services/score_manager.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"picturegame-bot/models"
	"picturegame-bot/utils"
)

// DeletedParticipantError means a win cannot be recorded because one of the
// participants no longer has an account name.
type DeletedParticipantError struct {
	PostID string
	Role   models.Role
}

func (e *DeletedParticipantError) Error() string {
	return fmt.Sprintf("post %s: %s has been deleted", e.PostID, e.Role)
}

// ScoreManager turns wins into ledger rows and keeps user flair in step with
// the ledger totals.
type ScoreManager struct {
	rules  *ScoreRules
	ledger Ledger
	forum  ForumClient
	logger *log.Logger
}

func NewScoreManager(rules *ScoreRules, ledger Ledger, forum ForumClient, logger *log.Logger) *ScoreManager {
	return &ScoreManager{rules: rules, ledger: ledger, forum: forum, logger: logger}
}

// GetUserPoints returns the all-time total, legacy import included.
func (m *ScoreManager) GetUserPoints(ctx context.Context, username string) (int, error) {
	return m.ledger.GetUserScore(ctx, username, nil)
}

// RecordWin persists the win for sub and returns the points awarded. In
// read-only mode the points are computed and nothing is written.
func (m *ScoreManager) RecordWin(ctx context.Context, sub *models.Submission, guess *models.Comment, foundOnSearch bool) (Points, error) {
	points := m.rules.PointsFor(foundOnSearch)

	if models.IsDeletedAuthor(guess.Author) {
		return points, &DeletedParticipantError{PostID: sub.ID, Role: models.RoleGuesser}
	}
	if models.IsDeletedAuthor(sub.Author) {
		return points, &DeletedParticipantError{PostID: sub.ID, Role: models.RoleSubmitter}
	}
	if m.forum.ReadOnly() {
		return points, nil
	}

	rec := WinRecord{
		PostID:    sub.ID,
		PostedAt:  utils.ToMillis(sub.Created),
		SolvedAt:  utils.ToMillis(guess.Created),
		Guesser:   guess.Author,
		Submitter: sub.Author,
		Points:    points,
	}
	if err := m.ledger.RecordWin(ctx, rec); err != nil {
		return points, fmt.Errorf("record win: %w", err)
	}
	m.logger.Printf("[ScoreManager] ✅ %s: %s +%d, %s +%d", sub.ID, rec.Guesser, points.Guesser, rec.Submitter, points.Submitter)

	m.syncFlair(ctx, rec.Guesser, rec.Submitter)
	return points, nil
}

// RemoveWin deletes the win and its awards. Removing a post with no win is
// a no-op.
func (m *ScoreManager) RemoveWin(ctx context.Context, postID string) error {
	if m.forum.ReadOnly() {
		return nil
	}
	win, err := m.ledger.GetWin(ctx, postID)
	if errors.Is(err, ErrWinNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove win: %w", err)
	}
	if err := m.ledger.DeleteWin(ctx, postID); err != nil {
		return fmt.Errorf("remove win: %w", err)
	}
	m.logger.Printf("[ScoreManager] 🗑️ removed win on %s", postID)

	m.syncFlair(ctx, win.Guesser, win.Submitter)
	return nil
}

// UpdatePoints overwrites the awards of an existing win with the values the
// score rules give for foundOnSearch.
func (m *ScoreManager) UpdatePoints(ctx context.Context, postID string, foundOnSearch bool) (Points, error) {
	points := m.rules.PointsFor(foundOnSearch)
	if m.forum.ReadOnly() {
		return points, nil
	}
	if err := m.ledger.EditPoints(ctx, postID, points); err != nil {
		return points, fmt.Errorf("update points: %w", err)
	}
	if win, err := m.ledger.GetWin(ctx, postID); err == nil {
		m.syncFlair(ctx, win.Guesser, win.Submitter)
	}
	return points, nil
}

// AddPoints applies delta to the awards of an existing win.
func (m *ScoreManager) AddPoints(ctx context.Context, postID string, delta Points) error {
	if m.forum.ReadOnly() {
		return nil
	}
	if err := m.ledger.AdjustPoints(ctx, postID, delta); err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	m.logger.Printf("[ScoreManager] ✏️ %s adjusted by guesser %+d, submitter %+d", postID, delta.Guesser, delta.Submitter)

	if win, err := m.ledger.GetWin(ctx, postID); err == nil {
		m.syncFlair(ctx, win.Guesser, win.Submitter)
	}
	return nil
}

// syncFlair is best effort; the ledger stays authoritative.
func (m *ScoreManager) syncFlair(ctx context.Context, usernames ...string) {
	for _, name := range usernames {
		total, err := m.GetUserPoints(ctx, name)
		if err != nil {
			m.logger.Printf("[ScoreManager] ⚠️ could not total points for %s: %v", name, err)
			continue
		}
		if err := m.forum.SetUserFlair(ctx, name, utils.FormatPoints(total)); err != nil {
			m.logger.Printf("[ScoreManager] ⚠️ could not set flair for %s: %v", name, err)
		}
	}
}
