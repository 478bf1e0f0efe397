// services/score_rules.go
package services

import (
	"picturegame-bot/config"
	"picturegame-bot/models"
)

// Points is the pair of values awarded for one win.
type Points struct {
	Guesser   int `json:"guesser"`
	Submitter int `json:"submitter"`
}

// Sub returns p minus o, role by role.
func (p Points) Sub(o Points) Points {
	return Points{Guesser: p.Guesser - o.Guesser, Submitter: p.Submitter - o.Submitter}
}

func (p Points) Neg() Points {
	return Points{Guesser: -p.Guesser, Submitter: -p.Submitter}
}

type defaultRolePoints struct {
	normal int
	google int
}

// Built-in score table used for every cell the configuration leaves unset.
var defaultPoints = map[models.Role]defaultRolePoints{
	models.RoleGuesser:   {normal: 6, google: 1},
	models.RoleSubmitter: {normal: 3, google: 2},
}

type ScoreRules struct {
	cfg config.PointsConfig
}

func NewScoreRules(cfg config.PointsConfig) *ScoreRules {
	return &ScoreRules{cfg: cfg}
}

// ScoreFor is total: unknown roles score zero.
func (r *ScoreRules) ScoreFor(role models.Role, foundOnSearch bool) int {
	var override config.RolePoints
	switch role {
	case models.RoleGuesser:
		override = r.cfg.Guesser
	case models.RoleSubmitter:
		override = r.cfg.Submitter
	default:
		return 0
	}

	def := defaultPoints[role]
	if foundOnSearch {
		if override.Google != nil {
			return *override.Google
		}
		return def.google
	}
	if override.Normal != nil {
		return *override.Normal
	}
	return def.normal
}

func (r *ScoreRules) PointsFor(foundOnSearch bool) Points {
	return Points{
		Guesser:   r.ScoreFor(models.RoleGuesser, foundOnSearch),
		Submitter: r.ScoreFor(models.RoleSubmitter, foundOnSearch),
	}
}
