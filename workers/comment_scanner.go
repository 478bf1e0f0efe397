// workers/comment_scanner.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"picturegame-bot/models"
	"picturegame-bot/services"
)

const defaultScanLimit = 100

type winChecker interface {
	IsValidWin(ctx context.Context, c *models.Comment) (bool, error)
}

type winProcessor interface {
	Process(ctx context.Context, c *models.Comment, overrides *services.ReplyOverrides) error
}

// CommentScanner polls new comments for submitter confirmations.
type CommentScanner struct {
	feed      services.CommentFeed
	checker   winChecker
	processor winProcessor
	botName   string
	limit     int
	logger    *log.Logger
}

func NewCommentScanner(feed services.CommentFeed, checker winChecker, processor winProcessor, botName string, logger *log.Logger) *CommentScanner {
	return &CommentScanner{
		feed:      feed,
		checker:   checker,
		processor: processor,
		botName:   botName,
		limit:     defaultScanLimit,
		logger:    logger,
	}
}

// Scan runs one polling tick. Failures on a single comment are logged and
// the rest of the batch still runs.
func (s *CommentScanner) Scan(ctx context.Context) error {
	comments, err := s.feed.NewComments(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("fetch new comments: %w", err)
	}

	candidates := make([]*models.Comment, 0, len(comments))
	for _, c := range comments {
		if c.IsSubmitter && !strings.EqualFold(c.Author, s.botName) {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Created < candidates[j].Created
	})

	for _, c := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.handle(ctx, c)
	}
	return nil
}

func (s *CommentScanner) handle(ctx context.Context, c *models.Comment) {
	ok, err := s.checker.IsValidWin(ctx, c)
	if err != nil {
		s.logger.Printf("[Scanner] ⚠️ could not check %s: %v", c.ID, err)
		return
	}
	if !ok {
		return
	}

	if err := s.processor.Process(ctx, c, nil); err != nil {
		var deleted *services.DeletedParticipantError
		if errors.As(err, &deleted) {
			s.logger.Printf("[Scanner] ⚠️ skipping %s: %v", c.ID, deleted)
			return
		}
		s.logger.Printf("[Scanner] ❌ failed to process %s: %v", c.ID, err)
	}
}
