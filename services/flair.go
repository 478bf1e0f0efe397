// services/flair.go
package services

import (
	"strings"

	"picturegame-bot/config"
	"picturegame-bot/models"
)

// FlairState is the game state a post's link flair signals.
type FlairState int

const (
	FlairNone FlairState = iota
	FlairEasy
	FlairHard
	FlairMeta
	FlairIdentified
	FlairIdentifiedEasy
	FlairIdentifiedHard
)

func (s FlairState) IsIdentified() bool {
	return s == FlairIdentified || s == FlairIdentifiedEasy || s == FlairIdentifiedHard
}

// ClassifyFlair matches the template id against the configured templates
// first and falls back to the flair text.
func ClassifyFlair(f models.Flair, t config.LinkFlairTemplates) FlairState {
	if id := f.TemplateID; id != "" {
		switch id {
		case t.Identified.Easy:
			return FlairIdentifiedEasy
		case t.Identified.Hard:
			return FlairIdentifiedHard
		case t.Identified.Normal:
			return FlairIdentified
		case t.Meta:
			return FlairMeta
		case t.Easy:
			return FlairEasy
		case t.Hard:
			return FlairHard
		}
	}

	text := strings.ToLower(f.Text)
	switch {
	case strings.Contains(text, "identified"):
		if strings.Contains(text, "easy") {
			return FlairIdentifiedEasy
		}
		if strings.Contains(text, "hard") {
			return FlairIdentifiedHard
		}
		return FlairIdentified
	case strings.Contains(text, "meta"):
		return FlairMeta
	case strings.Contains(text, "easy"):
		return FlairEasy
	case strings.Contains(text, "hard"):
		return FlairHard
	}
	return FlairNone
}

// identifiedTemplate returns the solved variant for a post in state s, or ""
// when none is configured.
func identifiedTemplate(s FlairState, t config.LinkFlairTemplates) string {
	switch s {
	case FlairEasy, FlairIdentifiedEasy:
		return t.Identified.Easy
	case FlairHard, FlairIdentifiedHard:
		return t.Identified.Hard
	default:
		return t.Identified.Normal
	}
}

// restoredTemplate maps an identified variant back to the flair the post had
// before it was solved. Plain identified posts go back to no flair.
func restoredTemplate(s FlairState, t config.LinkFlairTemplates) string {
	switch s {
	case FlairIdentifiedEasy:
		return t.Easy
	case FlairIdentifiedHard:
		return t.Hard
	default:
		return ""
	}
}
