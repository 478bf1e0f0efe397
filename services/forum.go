// services/forum.go
package services

import (
	"context"
	"errors"

	"picturegame-bot/models"
)

// ErrNotFound is returned by the forum client when a thing does not exist.
var ErrNotFound = errors.New("not found")

// ForumClient is everything the bot needs from the forum. Mutating calls are
// no-ops when ReadOnly reports true.
type ForumClient interface {
	Username() string
	ReadOnly() bool

	IsCommentAReply(c *models.Comment) bool
	HasReplied(ctx context.Context, c *models.Comment) (bool, error)
	// IsDeleted accepts a comment (t1_) or submission (t3_) fullname.
	IsDeleted(ctx context.Context, fullname string) (bool, error)

	FetchComment(ctx context.Context, fullname string) (*models.Comment, error)
	FetchSubmission(ctx context.Context, id string) (*models.Submission, error)
	FetchPostFromComment(ctx context.Context, c *models.Comment) (*models.Submission, error)

	SetPostFlair(ctx context.Context, s *models.Submission, templateID string) error
	SetUserFlair(ctx context.Context, username, text string) error
	Reply(ctx context.Context, parentFullname, body string) (*models.Comment, error)
	EditComment(ctx context.Context, fullname, body string) error
	DeleteComment(ctx context.Context, fullname string) error
	Approve(ctx context.Context, fullname string) error
	CreatePost(ctx context.Context, title, body string, sticky bool) (*models.Submission, error)
}

// CommentFeed is the polling side of the forum: new comments and the
// moderation queue.
type CommentFeed interface {
	NewComments(ctx context.Context, limit int) ([]*models.Comment, error)
	Reports(ctx context.Context) ([]*models.Report, error)
}
