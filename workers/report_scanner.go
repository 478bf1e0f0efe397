// workers/report_scanner.go
package workers

import (
	"context"
	"fmt"
	"log"

	"picturegame-bot/models"
	"picturegame-bot/services"
)

type commandDispatcher interface {
	Dispatch(ctx context.Context, text string, c *models.Comment) (bool, error)
}

// ReportScanner feeds moderator report reasons on comments to the command
// dispatcher.
type ReportScanner struct {
	feed       services.CommentFeed
	dispatcher commandDispatcher
	logger     *log.Logger
}

func NewReportScanner(feed services.CommentFeed, dispatcher commandDispatcher, logger *log.Logger) *ReportScanner {
	return &ReportScanner{feed: feed, dispatcher: dispatcher, logger: logger}
}

// Scan dispatches each distinct command at most once per reported comment.
func (s *ReportScanner) Scan(ctx context.Context) error {
	reports, err := s.feed.Reports(ctx)
	if err != nil {
		return fmt.Errorf("fetch reports: %w", err)
	}

	for _, r := range reports {
		if r.Comment == nil {
			continue
		}
		seen := make(map[services.Command]bool)
		for _, reason := range r.ModReasons {
			cmd := services.ParseCommand(reason)
			if cmd == services.CommandNone || seen[cmd] {
				continue
			}
			seen[cmd] = true

			if _, err := s.dispatcher.Dispatch(ctx, reason, r.Comment); err != nil {
				s.logger.Printf("[Scanner] ❌ %s on %s: %v", cmd, r.Comment.ID, err)
			}
		}
	}
	return nil
}
