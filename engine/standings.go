package engine

import (
	"sort"

	"github.com/courtsidehq/tournament-service/models"
)

var defaultTiebreakers = []models.TiebreakerRule{
	models.TiebreakHeadToHead,
	models.TiebreakPointDiff,
	models.TiebreakPointsScored,
}

// Standings is a read-only projection over completed matches. It never
// mutates the tournament. Ordering: win percentage first, then the
// tournament's configured tiebreakers, then seed as a stable fallback.
func Standings(t *models.Tournament) []models.Standing {
	byTeam := make(map[int]*models.Standing, len(t.Teams))
	order := make([]*models.Standing, 0, len(t.Teams))
	for _, team := range t.Teams {
		s := &models.Standing{TeamID: team.ID, TeamName: team.Name}
		byTeam[team.ID] = s
		order = append(order, s)
	}

	for _, m := range t.Matches {
		if m.Status != models.MatchStatusCompleted || m.Score1 == nil || m.Score2 == nil {
			continue
		}
		record(byTeam, *m.Team1ID, *m.Score1, *m.Score2)
		record(byTeam, *m.Team2ID, *m.Score2, *m.Score1)
	}
	for _, s := range order {
		if s.GamesPlayed > 0 {
			s.WinPct = float64(s.Wins) / float64(s.GamesPlayed)
		}
	}

	rules := t.Settings.Tiebreakers
	if len(rules) == 0 {
		rules = defaultTiebreakers
	}
	sort.SliceStable(order, func(i, j int) bool {
		return standingLess(t, rules, order[i], order[j])
	})

	out := make([]models.Standing, len(order))
	for i, s := range order {
		s.Rank = i + 1
		out[i] = *s
	}
	return out
}

func record(byTeam map[int]*models.Standing, teamID, scored, allowed int) {
	s, ok := byTeam[teamID]
	if !ok {
		return
	}
	s.GamesPlayed++
	s.PointsFor += scored
	s.PointsAgainst += allowed
	s.PointDifferential = s.PointsFor - s.PointsAgainst
	if scored > allowed {
		s.Wins++
	} else {
		s.Losses++
	}
}

func standingLess(t *models.Tournament, rules []models.TiebreakerRule, a, b *models.Standing) bool {
	if a.WinPct != b.WinPct {
		return a.WinPct > b.WinPct
	}
	for _, rule := range rules {
		switch rule {
		case models.TiebreakHeadToHead:
			if d := headToHead(t, a.TeamID, b.TeamID); d != 0 {
				return d > 0
			}
		case models.TiebreakPointDiff:
			if a.PointDifferential != b.PointDifferential {
				return a.PointDifferential > b.PointDifferential
			}
		case models.TiebreakPointsScored:
			if a.PointsFor != b.PointsFor {
				return a.PointsFor > b.PointsFor
			}
		}
	}
	return seedOf(t, a.TeamID) < seedOf(t, b.TeamID)
}

// headToHead returns the win margin of teamA over teamB across their
// completed mutual matches: positive when A leads the season series.
func headToHead(t *models.Tournament, teamA, teamB int) int {
	margin := 0
	for _, m := range t.Matches {
		if m.Status != models.MatchStatusCompleted || m.WinnerID == nil {
			continue
		}
		if !m.HasTeam(teamA) || !m.HasTeam(teamB) {
			continue
		}
		if *m.WinnerID == teamA {
			margin++
		} else if *m.WinnerID == teamB {
			margin--
		}
	}
	return margin
}

func seedOf(t *models.Tournament, teamID int) int {
	if team := t.TeamByID(teamID); team != nil {
		return team.Seed
	}
	return int(^uint(0) >> 1)
}
