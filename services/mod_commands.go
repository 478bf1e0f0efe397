// services/mod_commands.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"picturegame-bot/config"
	"picturegame-bot/models"
)

// Command is a moderator correction, triggered by reporting a comment with
// "!<alias>" as the reason.
type Command int

const (
	CommandNone Command = iota
	CommandForceCorrect
	CommandCorrectGIS
	CommandUndo
)

const commandPrefix = "!"

var commandAliases = map[string]Command{
	"correct": CommandForceCorrect,
	"gis":     CommandCorrectGIS,
	"google":  CommandCorrectGIS,
	"undo":    CommandUndo,
	"remove":  CommandUndo,
}

func (c Command) String() string {
	switch c {
	case CommandForceCorrect:
		return "correct"
	case CommandCorrectGIS:
		return "gis"
	case CommandUndo:
		return "undo"
	default:
		return "none"
	}
}

// ParseCommand reads the first word of text. Anything that is not a known
// alias behind the prefix is CommandNone.
func ParseCommand(text string) Command {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], commandPrefix) {
		return CommandNone
	}
	return commandAliases[strings.TrimPrefix(fields[0], commandPrefix)]
}

type ModCommands struct {
	forum     ForumClient
	rules     *ScoreRules
	scores    *ScoreManager
	processor *WinProcessor
	templates config.LinkFlairTemplates
	verbose   bool
	logger    *log.Logger
}

func NewModCommands(forum ForumClient, rules *ScoreRules, scores *ScoreManager, processor *WinProcessor, cfg config.Config, logger *log.Logger) *ModCommands {
	return &ModCommands{
		forum:     forum,
		rules:     rules,
		scores:    scores,
		processor: processor,
		templates: cfg.LinkFlairTemplates,
		verbose:   cfg.Verbose,
		logger:    logger,
	}
}

// Dispatch runs the command named by text against c. Unknown text does
// nothing. A handled command approves the report so it leaves the queue.
func (m *ModCommands) Dispatch(ctx context.Context, text string, c *models.Comment) (bool, error) {
	cmd := ParseCommand(text)

	var (
		ok  bool
		err error
	)
	switch cmd {
	case CommandForceCorrect:
		ok, err = m.ForceCorrect(ctx, c)
	case CommandCorrectGIS:
		ok, err = m.CorrectGIS(ctx, c)
	case CommandUndo:
		ok, err = m.Undo(ctx, c)
	default:
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("!%s on %s: %w", cmd, c.ID, err)
	}

	m.logger.Printf("[ModCommands] !%s on %s -> %t", cmd, c.ID, ok)
	if ok && !m.forum.ReadOnly() {
		if err := m.forum.Approve(ctx, c.Fullname()); err != nil {
			return ok, fmt.Errorf("approve %s: %w", c.ID, err)
		}
	}
	return ok, nil
}

// ForceCorrect records a win for a submitter's reply that the checker would
// not accept on its own.
func (m *ModCommands) ForceCorrect(ctx context.Context, c *models.Comment) (bool, error) {
	if !m.forum.IsCommentAReply(c) {
		return m.decline(c, "force correct: not a reply"), nil
	}

	sub, err := m.forum.FetchPostFromComment(ctx, c)
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(c.Author, sub.Author) {
		return m.decline(c, "force correct: not written by the submitter"), nil
	}

	guess, err := m.forum.FetchComment(ctx, c.ParentID)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(guess.Author, sub.Author) {
		return m.decline(c, "force correct: replies to the submitter"), nil
	}

	replied, err := m.forum.HasReplied(ctx, c)
	if err != nil {
		return false, err
	}
	if replied {
		return m.decline(c, "force correct: already replied"), nil
	}

	forced := !IsConfirmation(c.Body)
	if err := m.processor.Process(ctx, c, &ReplyOverrides{Forced: forced}); err != nil {
		return false, err
	}
	return true, nil
}

// CorrectGIS flips the found-on-search state of the win announced by the
// bot's reply c and moves both scores by the difference.
func (m *ModCommands) CorrectGIS(ctx context.Context, c *models.Comment) (bool, error) {
	if !m.isOwnReply(c) {
		return m.decline(c, "gis: not a bot reply"), nil
	}

	guess, ok, err := m.resolveGuess(ctx, c)
	if err != nil || !ok {
		return false, err
	}
	sub, err := m.forum.FetchPostFromComment(ctx, c)
	if err != nil {
		return false, err
	}

	previouslyFound := replyMentions(c.Body, foundMarker)
	before := m.rules.PointsFor(previouslyFound)
	after := m.rules.PointsFor(!previouslyFound)

	if m.forum.ReadOnly() {
		return true, nil
	}

	if err := m.scores.AddPoints(ctx, sub.ID, after.Sub(before)); err != nil {
		if errors.Is(err, ErrWinNotFound) {
			return m.decline(c, "gis: no win recorded for "+sub.ID), nil
		}
		return false, err
	}

	body, err := RenderWinReply(WinReply{
		Guesser:         guess.Author,
		Submitter:       sub.Author,
		GuesserPoints:   after.Guesser,
		SubmitterPoints: after.Submitter,
		FoundOnSearch:   !previouslyFound,
		Forced:          replyMentions(c.Body, forcedMarker),
	})
	if err != nil {
		return false, err
	}
	if err := m.forum.EditComment(ctx, c.Fullname(), body); err != nil {
		return false, err
	}
	return true, nil
}

// Undo reverses the win announced by the bot's reply c: points, ledger row,
// reply and post flair.
func (m *ModCommands) Undo(ctx context.Context, c *models.Comment) (bool, error) {
	if !m.isOwnReply(c) {
		return m.decline(c, "undo: not a bot reply"), nil
	}

	sub, err := m.forum.FetchPostFromComment(ctx, c)
	if err != nil {
		return false, err
	}
	state := ClassifyFlair(sub.Flair, m.templates)
	if !state.IsIdentified() {
		return m.decline(c, "undo: post is not identified"), nil
	}

	awarded := m.rules.PointsFor(replyMentions(c.Body, undoFoundMarker))

	if m.forum.ReadOnly() {
		return true, nil
	}

	if err := m.scores.AddPoints(ctx, sub.ID, awarded.Neg()); err != nil {
		if !errors.Is(err, ErrWinNotFound) {
			return false, err
		}
		m.logger.Printf("[ModCommands] ⚠️ undo: no win recorded for %s, cleaning up anyway", sub.ID)
	}
	if err := m.scores.RemoveWin(ctx, sub.ID); err != nil {
		return false, err
	}
	if err := m.forum.DeleteComment(ctx, c.Fullname()); err != nil {
		return false, err
	}
	if err := m.forum.SetPostFlair(ctx, sub, restoredTemplate(state, m.templates)); err != nil {
		return false, err
	}
	return true, nil
}

func (m *ModCommands) isOwnReply(c *models.Comment) bool {
	return strings.EqualFold(c.Author, m.forum.Username()) && m.forum.IsCommentAReply(c)
}

// resolveGuess walks from the bot's reply to the confirmation and on to the
// guess it confirmed.
func (m *ModCommands) resolveGuess(ctx context.Context, c *models.Comment) (*models.Comment, bool, error) {
	confirmation, err := m.forum.FetchComment(ctx, c.ParentID)
	if errors.Is(err, ErrNotFound) {
		return nil, m.decline(c, "gis: confirmation is gone"), nil
	}
	if err != nil {
		return nil, false, err
	}
	if !m.forum.IsCommentAReply(confirmation) {
		return nil, m.decline(c, "gis: confirmation is not a reply"), nil
	}
	guess, err := m.forum.FetchComment(ctx, confirmation.ParentID)
	if errors.Is(err, ErrNotFound) {
		return nil, m.decline(c, "gis: guess is gone"), nil
	}
	if err != nil {
		return nil, false, err
	}
	return guess, true, nil
}

func (m *ModCommands) decline(c *models.Comment, reason string) bool {
	if m.verbose {
		m.logger.Printf("[ModCommands] %s declined: %s", c.ID, reason)
	}
	return false
}
