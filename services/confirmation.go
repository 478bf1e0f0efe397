// services/confirmation.go
package services

import (
	"regexp"
	"strings"

	"picturegame-bot/utils"
)

// Leading markup tolerated before the confirmation word: whitespace, quote
// markers (raw or html-escaped), emphasis, strikethrough, headers, superscript.
const leadingMarkup = `(?:\s|>|&gt;|[*_~#^\\])*`

var (
	confirmationPattern = regexp.MustCompile(`(?i)^` + leadingMarkup + `correct(?:[^a-z]|$)`)

	// "correct year" and friends are hints, not confirmations.
	falsePositivePattern = regexp.MustCompile(`(?i)^` + leadingMarkup + `correct[\s*_~]+(?:year|decade|genre)(?:[^a-z]|$)`)
)

// IsConfirmation reports whether a comment body opens with the word
// "correct", ignoring leading markup.
func IsConfirmation(body string) bool {
	body = strings.TrimSpace(body)
	if !confirmationPattern.MatchString(body) {
		return false
	}
	return !falsePositivePattern.MatchString(body)
}

// Phrases the win reply carries when the image was found on search.
const (
	foundMarker     = "found on google"
	undoFoundMarker = "on google image"
	forcedMarker    = "confirmed by a moderator"
)

func replyMentions(body, marker string) bool {
	return strings.Contains(strings.ToLower(utils.MarkdownText(body)), marker)
}
