// services/win_processor.go
package services

import (
	"context"
	"fmt"
	"log"

	"picturegame-bot/config"
	"picturegame-bot/models"
	"picturegame-bot/utils"
)

// WinProcessor commits a validated win: flair, image search, ledger, reply.
type WinProcessor struct {
	forum     ForumClient
	search    ImageSearch
	scores    *ScoreManager
	templates config.LinkFlairTemplates
	logger    *log.Logger
}

func NewWinProcessor(forum ForumClient, search ImageSearch, scores *ScoreManager, cfg config.Config, logger *log.Logger) *WinProcessor {
	return &WinProcessor{
		forum:     forum,
		search:    search,
		scores:    scores,
		templates: cfg.LinkFlairTemplates,
		logger:    logger,
	}
}

// Process records the win confirmed by c. A *DeletedParticipantError from
// the score manager is returned as is and nothing is replied.
func (p *WinProcessor) Process(ctx context.Context, c *models.Comment, overrides *ReplyOverrides) error {
	guess, err := p.forum.FetchComment(ctx, c.ParentID)
	if err != nil {
		return fmt.Errorf("fetch guess for %s: %w", c.ID, err)
	}
	sub, err := p.forum.FetchPostFromComment(ctx, c)
	if err != nil {
		return fmt.Errorf("fetch post for %s: %w", c.ID, err)
	}

	state := ClassifyFlair(sub.Flair, p.templates)
	if tmpl := identifiedTemplate(state, p.templates); tmpl == "" {
		p.logger.Printf("[WinProcessor] ⚠️ no identified flair template configured for %s, leaving flair as is", sub.ID)
	} else if err := p.forum.SetPostFlair(ctx, sub, tmpl); err != nil {
		return fmt.Errorf("flair %s: %w", sub.ID, err)
	}

	result := p.search.Search(ctx, searchableImage(sub))

	points, err := p.scores.RecordWin(ctx, sub, guess, result.Found)
	if err != nil {
		return err
	}

	reply := WinReply{
		Guesser:         guess.Author,
		Submitter:       sub.Author,
		GuesserPoints:   points.Guesser,
		SubmitterPoints: points.Submitter,
		FoundOnSearch:   result.Found,
		SearchLink:      result.Link,
	}
	overrides.apply(&reply)

	body, err := RenderWinReply(reply)
	if err != nil {
		return err
	}
	if _, err := p.forum.Reply(ctx, c.Fullname(), body); err != nil {
		return fmt.Errorf("reply to %s: %w", c.ID, err)
	}

	p.logger.Printf("[WinProcessor] ✅ %s solved by %s (found on search: %t)", sub.ID, guess.Author, result.Found)
	return nil
}

// searchableImage is the link for link posts and the url in the body for
// self-posts.
func searchableImage(sub *models.Submission) string {
	if !sub.IsSelf {
		return sub.URL
	}
	if u, ok := utils.ExtractSingleURL(sub.SelfText); ok {
		return u
	}
	return sub.SelfText
}
