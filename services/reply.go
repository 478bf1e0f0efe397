// services/reply.go
package services

import (
	"bytes"
	"fmt"
	"text/template"

	"picturegame-bot/utils"
)

// WinReply is the data rendered into the bot's confirmation comment.
type WinReply struct {
	Guesser         string
	Submitter       string
	GuesserPoints   int
	SubmitterPoints int
	FoundOnSearch   bool
	SearchLink      string
	Forced          bool
}

// ReplyOverrides replaces individual fields of a rendered win reply. Nil
// fields keep the computed value.
type ReplyOverrides struct {
	Guesser         *string
	Submitter       *string
	GuesserPoints   *int
	SubmitterPoints *int
	SearchLink      *string
	Forced          bool
}

func (o *ReplyOverrides) apply(r *WinReply) {
	if o == nil {
		return
	}
	if o.Guesser != nil {
		r.Guesser = *o.Guesser
	}
	if o.Submitter != nil {
		r.Submitter = *o.Submitter
	}
	if o.GuesserPoints != nil {
		r.GuesserPoints = *o.GuesserPoints
	}
	if o.SubmitterPoints != nil {
		r.SubmitterPoints = *o.SubmitterPoints
	}
	if o.SearchLink != nil {
		r.SearchLink = *o.SearchLink
	}
	r.Forced = r.Forced || o.Forced
}

var winReplyTemplate = template.Must(template.New("win").Funcs(template.FuncMap{
	"points": utils.FormatPoints,
}).Parse(`Congratulations, that was the correct answer! Please continue the game as soon as possible.
{{if .Forced}}
*This win was confirmed by a moderator.*
{{end}}
/u/{{.Guesser}} has been awarded **{{points .GuesserPoints}}** and /u/{{.Submitter}} has been awarded **{{points .SubmitterPoints}}**.
{{if .FoundOnSearch}}
The image was found on Google Images{{if .SearchLink}} ([match]({{.SearchLink}})){{end}}, so reduced points were awarded.
{{end}}
---
^(I am a bot. Moderators can correct this win by reporting this comment.)
`))

func RenderWinReply(r WinReply) (string, error) {
	var buf bytes.Buffer
	if err := winReplyTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render win reply: %w", err)
	}
	return buf.String(), nil
}
