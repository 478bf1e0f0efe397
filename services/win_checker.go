// services/win_checker.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"picturegame-bot/config"
	"picturegame-bot/models"
	"picturegame-bot/utils"
)

// EasyPointsThreshold is the score at which a player may no longer win posts
// flaired as easy.
const EasyPointsThreshold = 10

// Rejection reasons, in the order WinChecker evaluates them.
const (
	RejectNotReply        = "not a reply"
	RejectAlreadyReplied  = "already replied"
	RejectNotConfirmation = "not a confirmation"
	RejectSelfGuess       = "submitter confirmed their own comment"
	RejectBotGuess        = "guess was made by the bot"
	RejectDeleted         = "participant deleted"
	RejectSelfPostNoURL   = "self-post is not a single image url"
	RejectAlreadySolved   = "post is identified or meta"
	RejectEasyThreshold   = "guesser has too many points for an easy post"
)

// PointsLookup is the part of ScoreManager the checker reads from.
type PointsLookup interface {
	GetUserPoints(ctx context.Context, username string) (int, error)
}

// WinDecision is the outcome of Check. Guess and Submission are set once
// they have been resolved, even on rejection.
type WinDecision struct {
	Valid      bool
	Reason     string
	Guess      *models.Comment
	Submission *models.Submission
}

type WinChecker struct {
	forum     ForumClient
	points    PointsLookup
	templates config.LinkFlairTemplates
	verbose   bool
	logger    *log.Logger
}

func NewWinChecker(forum ForumClient, points PointsLookup, cfg config.Config, logger *log.Logger) *WinChecker {
	return &WinChecker{
		forum:     forum,
		points:    points,
		templates: cfg.LinkFlairTemplates,
		verbose:   cfg.Verbose,
		logger:    logger,
	}
}

// IsValidWin reports whether c confirms a correct guess.
func (w *WinChecker) IsValidWin(ctx context.Context, c *models.Comment) (bool, error) {
	d, err := w.Check(ctx, c)
	if err != nil {
		return false, err
	}
	return d.Valid, nil
}

// Check runs the rejection chain; the first failing rule decides. Errors are
// returned only for failed reads.
func (w *WinChecker) Check(ctx context.Context, c *models.Comment) (*WinDecision, error) {
	d := &WinDecision{}

	if !w.forum.IsCommentAReply(c) {
		return w.reject(c, d, RejectNotReply), nil
	}

	replied, err := w.forum.HasReplied(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("check replied %s: %w", c.ID, err)
	}
	if replied {
		return w.reject(c, d, RejectAlreadyReplied), nil
	}

	if !IsConfirmation(c.Body) {
		return w.reject(c, d, RejectNotConfirmation), nil
	}

	guess, err := w.forum.FetchComment(ctx, c.ParentID)
	if errors.Is(err, ErrNotFound) {
		return w.reject(c, d, RejectDeleted), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch guess for %s: %w", c.ID, err)
	}
	sub, err := w.forum.FetchPostFromComment(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("fetch post for %s: %w", c.ID, err)
	}
	d.Guess, d.Submission = guess, sub

	if strings.EqualFold(guess.Author, sub.Author) {
		return w.reject(c, d, RejectSelfGuess), nil
	}

	if strings.EqualFold(guess.Author, w.forum.Username()) {
		return w.reject(c, d, RejectBotGuess), nil
	}

	deleted, err := w.anyDeleted(ctx, c, guess, sub)
	if err != nil {
		return nil, err
	}
	if deleted {
		return w.reject(c, d, RejectDeleted), nil
	}

	if sub.IsSelf {
		if _, ok := utils.ExtractSingleURL(sub.SelfText); !ok {
			return w.reject(c, d, RejectSelfPostNoURL), nil
		}
	}

	state := ClassifyFlair(sub.Flair, w.templates)
	if state == FlairMeta || state.IsIdentified() {
		return w.reject(c, d, RejectAlreadySolved), nil
	}

	if state == FlairEasy {
		total, err := w.points.GetUserPoints(ctx, guess.Author)
		if err != nil {
			return nil, fmt.Errorf("points for %s: %w", guess.Author, err)
		}
		if total >= EasyPointsThreshold {
			return w.reject(c, d, RejectEasyThreshold), nil
		}
	}

	d.Valid = true
	return d, nil
}

// anyDeleted checks the author fields of all three participants, and asks
// the forum about the confirming comment since feed data can be stale.
func (w *WinChecker) anyDeleted(ctx context.Context, c, guess *models.Comment, sub *models.Submission) (bool, error) {
	if models.IsDeletedAuthor(c.Author) || models.IsDeletedAuthor(guess.Author) || models.IsDeletedAuthor(sub.Author) {
		return true, nil
	}
	deleted, err := w.forum.IsDeleted(ctx, c.Fullname())
	if err != nil {
		return false, fmt.Errorf("check deleted %s: %w", c.ID, err)
	}
	return deleted, nil
}

func (w *WinChecker) reject(c *models.Comment, d *WinDecision, reason string) *WinDecision {
	if w.verbose {
		w.logger.Printf("[WinChecker] %s rejected: %s", c.ID, reason)
	}
	d.Reason = reason
	return d
}
