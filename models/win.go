// models/win.go
package models

import "time"

// Role distinguishes the two participants awarded points for a win.
type Role string

const (
	RoleGuesser   Role = "guesser"
	RoleSubmitter Role = "submitter"
)

// Win is a confirmed correct guess. PostID is the unique key: at most one
// win per post. PostedAt and SolvedAt are milliseconds since epoch.
type Win struct {
	PostID     string       `gorm:"primaryKey;size:16" json:"post_id"`
	Guesser    string       `gorm:"size:64;not null;index" json:"guesser"`
	Submitter  string       `gorm:"size:64;not null;index" json:"submitter"`
	PostedAt   int64        `gorm:"not null" json:"posted_at"`
	SolvedAt   int64        `gorm:"not null;index" json:"solved_at"`
	Awards     []PointAward `gorm:"foreignKey:PostID;references:PostID;constraint:OnDelete:CASCADE" json:"awards,omitempty"`
	RecordedAt time.Time    `gorm:"autoCreateTime" json:"recorded_at"`
}

// PointAward is one participant's share of a win. Exactly two rows exist per
// win, one per role; corrections update them in place.
type PointAward struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID   string `gorm:"size:16;not null;uniqueIndex:ux_award_post_role,priority:1" json:"post_id"`
	Role     Role   `gorm:"size:16;not null;uniqueIndex:ux_award_post_role,priority:2" json:"role"`
	Username string `gorm:"size:64;not null;index" json:"username"`
	Points   int    `gorm:"not null" json:"points"`
}

// LegacyImport carries pre-migration totals. Rows are append-only.
type LegacyImport struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"size:64;not null;index" json:"username"`
	Points     int       `gorm:"not null" json:"points"`
	ImportedAt time.Time `gorm:"autoCreateTime" json:"imported_at"`
}
