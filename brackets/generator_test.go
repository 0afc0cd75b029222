package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsidehq/tournament-service/models"
)

func TestValidateTeamCount(t *testing.T) {
	tests := []struct {
		format  models.TournamentFormat
		count   int
		wantErr bool
	}{
		{models.FormatSingleElimination, 2, false},
		{models.FormatSingleElimination, 128, false},
		{models.FormatSingleElimination, 1, true},
		{models.FormatSingleElimination, 129, true},
		{models.FormatDoubleElimination, 4, false},
		{models.FormatDoubleElimination, 3, true},
		{models.FormatDoubleElimination, 65, true},
		{models.FormatRoundRobin, 2, false},
		{models.FormatRoundRobin, 20, false},
		{models.FormatRoundRobin, 21, true},
		{models.FormatPoolPlay, 4, false},
		{models.FormatPoolPlay, 3, true},
		{models.FormatPoolPlay, 65, true},
	}
	for _, tt := range tests {
		err := ValidateTeamCount(tt.format, tt.count)
		if tt.wantErr {
			assert.Error(t, err, "%s with %d teams", tt.format, tt.count)
		} else {
			assert.NoError(t, err, "%s with %d teams", tt.format, tt.count)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidateTeamCount(models.FormatSingleElimination, 1)
	require.Error(t, err)
	assert.Equal(t, "format single_elimination supports between 2 and 128 teams, got 1", err.Error())
}

func TestValidateTeamCountUnknownFormat(t *testing.T) {
	err := ValidateTeamCount("swiss", 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tournament format")
}

func TestForFormat(t *testing.T) {
	for _, format := range []models.TournamentFormat{
		models.FormatSingleElimination,
		models.FormatDoubleElimination,
		models.FormatRoundRobin,
		models.FormatPoolPlay,
	} {
		gen, err := ForFormat(format)
		require.NoError(t, err)
		assert.NotNil(t, gen)
	}

	_, err := ForFormat("swiss")
	assert.Error(t, err)
}

func TestRoundName(t *testing.T) {
	assert.Equal(t, "Final", RoundName(3, 3))
	assert.Equal(t, "Semifinals", RoundName(2, 3))
	assert.Equal(t, "Quarterfinals", RoundName(1, 3))
	assert.Equal(t, "Round of 16", RoundName(1, 4))
	assert.Equal(t, "Round of 32", RoundName(1, 5))
}

func TestRebuildRoundsMatchesGeneratedTopology(t *testing.T) {
	result := generateSingleElim(t, 8)

	rebuilt := RebuildRounds(models.FormatSingleElimination, result.Matches)
	require.Len(t, rebuilt.Rounds, len(result.Bracket.Rounds))
	for i, r := range rebuilt.Rounds {
		assert.Equal(t, result.Bracket.Rounds[i].Name, r.Name)
		assert.Equal(t, result.Bracket.Rounds[i].MatchUIDs, r.MatchUIDs)
	}
}

func TestRebuildRoundsIgnoresLoadOrder(t *testing.T) {
	result := generateDoubleElim(t, 8)

	// a database reload can hand matches back losers side first; the rebuilt
	// topology must still match the generator's round order
	reloaded := make([]*models.Match, 0, len(result.Matches))
	for _, m := range result.Matches {
		if m.Side == models.SideLosers {
			reloaded = append(reloaded, m)
		}
	}
	for _, m := range result.Matches {
		if m.Side != models.SideLosers {
			reloaded = append(reloaded, m)
		}
	}

	rebuilt := RebuildRounds(models.FormatDoubleElimination, reloaded)
	require.Len(t, rebuilt.Rounds, len(result.Bracket.Rounds))
	for i, r := range rebuilt.Rounds {
		assert.Equal(t, result.Bracket.Rounds[i].Name, r.Name)
		assert.Equal(t, result.Bracket.Rounds[i].MatchUIDs, r.MatchUIDs)
	}
	assert.Equal(t, "Winners Round 1", rebuilt.Rounds[0].Name)
	assert.Equal(t, "Grand Final", rebuilt.Rounds[len(rebuilt.Rounds)-1].Name)
}

func TestRebuildRoundsDoubleElimination(t *testing.T) {
	result := generateDoubleElim(t, 8)

	rebuilt := RebuildRounds(models.FormatDoubleElimination, result.Matches)

	uids := make(map[string]bool)
	names := make(map[string]bool)
	for _, r := range rebuilt.Rounds {
		names[r.Name] = true
		for _, uid := range r.MatchUIDs {
			assert.False(t, uids[uid], "match %s grouped twice", uid)
			uids[uid] = true
		}
	}
	assert.Len(t, uids, len(result.Matches))
	assert.True(t, names["Grand Final"])
	assert.True(t, names["Losers Round 1"])
	assert.True(t, names["Winners Round 1"])
}
