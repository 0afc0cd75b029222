package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsidehq/tournament-service/models"
)

func completedMatch(uid string, team1, team2, s1, s2 int) *models.Match {
	winner, loser := team1, team2
	if s2 > s1 {
		winner, loser = team2, team1
	}
	return &models.Match{
		UID:      uid,
		Side:     models.SideWinners,
		Status:   models.MatchStatusCompleted,
		Team1ID:  &team1,
		Team2ID:  &team2,
		Score1:   &s1,
		Score2:   &s2,
		WinnerID: &winner,
		LoserID:  &loser,
	}
}

func standingsTournament(matches ...*models.Match) *models.Tournament {
	t := &models.Tournament{
		ID:     1,
		Format: models.FormatRoundRobin,
		Teams: []*models.Team{
			{ID: 1, Name: "Hawks", Seed: 1},
			{ID: 2, Name: "Lakers", Seed: 2},
			{ID: 3, Name: "Comets", Seed: 3},
			{ID: 4, Name: "Storm", Seed: 4},
		},
	}
	t.Matches = matches
	return t
}

func TestStandingsBasicRecord(t *testing.T) {
	tournament := standingsTournament(
		completedMatch("R1M1", 1, 2, 30, 20),
		completedMatch("R1M2", 3, 4, 25, 15),
		completedMatch("R2M1", 1, 3, 22, 18),
		completedMatch("R2M2", 2, 4, 28, 10),
	)

	standings := Standings(tournament)
	require.Len(t, standings, 4)

	// team 1 is 2-0, teams 2 and 3 are 1-1, team 4 is 0-2
	assert.Equal(t, 1, standings[0].TeamID)
	assert.Equal(t, 2, standings[0].Wins)
	assert.Equal(t, 0, standings[0].Losses)
	assert.Equal(t, 1.0, standings[0].WinPct)
	assert.Equal(t, 1, standings[0].Rank)

	assert.Equal(t, 4, standings[3].TeamID)
	assert.Equal(t, 2, standings[3].Losses)
	assert.Equal(t, 4, standings[3].Rank)
}

func TestStandingsHeadToHeadTiebreaker(t *testing.T) {
	// teams 2 and 3 are both 1-1; team 3 beat team 2, so team 3 ranks higher
	// despite team 2's larger point differential elsewhere
	tournament := standingsTournament(
		completedMatch("R1M1", 3, 2, 20, 18),
		completedMatch("R1M2", 1, 3, 30, 10),
		completedMatch("R2M1", 2, 4, 40, 10),
	)

	standings := Standings(tournament)
	pos := make(map[int]int)
	for _, s := range standings {
		pos[s.TeamID] = s.Rank
	}
	assert.Less(t, pos[3], pos[2], "head to head winner ranks above")
}

func TestStandingsPointDifferentialTiebreaker(t *testing.T) {
	// teams 1 and 2 are 1-0 against different opponents: no head-to-head
	// result, so point differential decides
	tournament := standingsTournament(
		completedMatch("R1M1", 1, 3, 21, 20),
		completedMatch("R1M2", 2, 4, 35, 10),
	)

	standings := Standings(tournament)
	assert.Equal(t, 2, standings[0].TeamID, "bigger point differential ranks first")
	assert.Equal(t, 25, standings[0].PointDifferential)
	assert.Equal(t, 1, standings[1].TeamID)
}

func TestStandingsIgnoresUnfinishedMatches(t *testing.T) {
	inProgress := completedMatch("R2M1", 1, 2, 10, 5)
	inProgress.Status = models.MatchStatusInProgress
	inProgress.WinnerID = nil

	tournament := standingsTournament(
		completedMatch("R1M1", 1, 2, 30, 20),
		inProgress,
	)

	standings := Standings(tournament)
	byTeam := make(map[int]models.Standing)
	for _, s := range standings {
		byTeam[s.TeamID] = s
	}
	assert.Equal(t, 1, byTeam[1].GamesPlayed)
	assert.Equal(t, 30, byTeam[1].PointsFor)
}

func TestStandingsSeedBreaksRemainingTies(t *testing.T) {
	// nobody has played: everyone is 0-0 and order falls back to seed
	tournament := standingsTournament()
	standings := Standings(tournament)
	require.Len(t, standings, 4)
	for i, s := range standings {
		assert.Equal(t, i+1, s.TeamID)
		assert.Equal(t, i+1, s.Rank)
	}
}

func TestStandingsCustomTiebreakerOrder(t *testing.T) {
	// points scored configured ahead of point differential
	tournament := standingsTournament(
		completedMatch("R1M1", 1, 3, 40, 39),
		completedMatch("R1M2", 2, 4, 20, 5),
	)
	tournament.Settings.Tiebreakers = []models.TiebreakerRule{models.TiebreakPointsScored}

	standings := Standings(tournament)
	assert.Equal(t, 1, standings[0].TeamID, "team 1 scored 40 to team 2's 20")
}
