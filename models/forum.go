// models/forum.go
package models

import "strings"

// DeletedAuthor is the author name the forum reports once an account or a
// post/comment has been deleted by its author.
const DeletedAuthor = "[deleted]"

// Fullname prefixes used by the forum API to tag thing kinds.
const (
	KindComment = "t1_"
	KindLink    = "t3_"
)

// IsDeletedAuthor treats a missing author the same as the deleted sentinel.
func IsDeletedAuthor(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || name == DeletedAuthor
}

// Flair is the visible tag on a post. An empty TemplateID means no template is set.
type Flair struct {
	Text       string `json:"text"`
	TemplateID string `json:"template_id"`
}

// Submission is a forum post. The core only reads it and mutates its flair.
type Submission struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	Title    string `json:"title"`
	IsSelf   bool   `json:"is_self"`
	SelfText string `json:"selftext"`
	URL      string `json:"url"`
	Flair    Flair  `json:"flair"`
	// Created is the creation time as reported by the forum, in seconds or milliseconds.
	Created int64 `json:"created"`
}

// Fullname returns the kind-prefixed id.
func (s *Submission) Fullname() string {
	return KindLink + s.ID
}

// Comment is a reply node; both confirmations and guesses are comments.
type Comment struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	ParentID    string `json:"parent_id"` // fullname: t1_ for a comment parent, t3_ for top-level
	LinkID      string `json:"link_id"`   // fullname of the submission
	Body        string `json:"body"`
	IsSubmitter bool   `json:"is_submitter"`
	Created     int64  `json:"created"`
}

func (c *Comment) Fullname() string {
	return KindComment + c.ID
}

// IsReply reports whether the comment replies to another comment.
func (c *Comment) IsReply() bool {
	return strings.HasPrefix(c.ParentID, KindComment)
}

// SubmissionID strips the kind prefix from LinkID.
func (c *Comment) SubmissionID() string {
	return strings.TrimPrefix(c.LinkID, KindLink)
}

// Report is a reported comment from the moderation queue. ModReasons holds
// the free text moderators attached to their reports.
type Report struct {
	Comment    *Comment `json:"comment"`
	ModReasons []string `json:"mod_reasons"`
}
