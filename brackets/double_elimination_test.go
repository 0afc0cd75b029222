package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsidehq/tournament-service/models"
)

func generateDoubleElim(t *testing.T, n int) *Result {
	t.Helper()
	gen := NewDoubleEliminationGenerator()
	result, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: testTournament(models.FormatDoubleElimination, models.TournamentSettings{}),
		Teams:      testTeams(n),
	})
	require.NoError(t, err)
	return result
}

func TestDoubleEliminationMatchCount(t *testing.T) {
	// full double elimination with a single grand final plays 2N-2 games
	for _, n := range []int{4, 8, 16, 32} {
		t.Run(fmt.Sprintf("%d_teams", n), func(t *testing.T) {
			result := generateDoubleElim(t, n)
			assert.Len(t, result.Matches, 2*n-2)
		})
	}
}

func TestDoubleEliminationGrandFinalWiring(t *testing.T) {
	result := generateDoubleElim(t, 8)

	gf := matchByUID(result.Matches, "GF")
	require.NotNil(t, gf)
	assert.Nil(t, gf.WinnerTo, "the grand final is terminal")
	assert.Nil(t, gf.LoserTo)

	wbFinal := matchByUID(result.Matches, "R3M1")
	require.NotNil(t, wbFinal)
	require.NotNil(t, wbFinal.WinnerTo)
	assert.Equal(t, "GF", *wbFinal.WinnerTo)
	assert.Equal(t, 1, *wbFinal.WinnerToSlot)

	// exactly one losers match feeds the grand final with its winner
	feeders := 0
	for _, m := range result.Matches {
		if m.Side == models.SideLosers && m.WinnerTo != nil && *m.WinnerTo == "GF" {
			feeders++
			assert.Equal(t, 2, *m.WinnerToSlot)
		}
	}
	assert.Equal(t, 1, feeders)
}

func TestDoubleEliminationLoserDrops(t *testing.T) {
	result := generateDoubleElim(t, 8)

	// every winners bracket match except the grand final drops its loser
	// into the losers bracket
	for _, m := range result.Matches {
		if m.Side != models.SideWinners || m.UID == "GF" {
			continue
		}
		require.NotNil(t, m.LoserTo, "winners match %s must send its loser somewhere", m.UID)
		dest := matchByUID(result.Matches, *m.LoserTo)
		require.NotNil(t, dest)
		assert.Equal(t, models.SideLosers, dest.Side, "loser of %s must land in the losers bracket", m.UID)
	}

	// a losers bracket loss is elimination
	for _, m := range result.Matches {
		if m.Side == models.SideLosers {
			assert.Nil(t, m.LoserTo, "losers match %s must eliminate its loser", m.UID)
		}
	}
}

func TestDoubleEliminationSlotTargetsUnique(t *testing.T) {
	// no two sources may feed the same slot of the same match
	result := generateDoubleElim(t, 16)

	type target struct {
		uid  string
		slot int
	}
	seen := make(map[target]string)
	claim := func(src string, uid *string, slot *int) {
		if uid == nil {
			return
		}
		tg := target{uid: *uid, slot: *slot}
		prev, dup := seen[tg]
		require.False(t, dup, "slot %d of %s fed by both %s and %s", tg.slot, tg.uid, prev, src)
		seen[tg] = src
	}
	for _, m := range result.Matches {
		claim(m.UID, m.WinnerTo, m.WinnerToSlot)
		claim(m.UID, m.LoserTo, m.LoserToSlot)
	}

	// pre-filled slots must not also be advancement targets
	for _, m := range result.Matches {
		if m.Team1ID != nil {
			_, dup := seen[target{uid: m.UID, slot: 1}]
			assert.False(t, dup, "slot 1 of %s is both seeded and linked", m.UID)
		}
		if m.Team2ID != nil {
			_, dup := seen[target{uid: m.UID, slot: 2}]
			assert.False(t, dup, "slot 2 of %s is both seeded and linked", m.UID)
		}
	}
}

func TestDoubleEliminationRoundNaming(t *testing.T) {
	result := generateDoubleElim(t, 8)

	var names []string
	for _, r := range result.Bracket.Rounds {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "Winners Round 1")
	assert.Contains(t, names, "Winners Final")
	assert.Contains(t, names, "Losers Round 1")
	assert.Contains(t, names, "Losers Final")
	assert.Contains(t, names, "Grand Final")
}

func TestDoubleEliminationMinimumTeams(t *testing.T) {
	gen := NewDoubleEliminationGenerator()
	_, err := gen.Generate(context.Background(), GenerateParams{
		Tournament: testTournament(models.FormatDoubleElimination, models.TournamentSettings{}),
		Teams:      testTeams(3),
	})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 4, validationErr.Min)
	assert.Equal(t, 64, validationErr.Max)
}
