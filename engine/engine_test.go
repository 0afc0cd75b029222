package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsidehq/tournament-service/brackets"
	"github.com/courtsidehq/tournament-service/models"
)

// fourTeamKnockout builds a ready-to-play single elimination tournament with
// seeds 1-4 (pairs 1v4 and 3v2, final R2M1).
func fourTeamKnockout(t *testing.T) *models.Tournament {
	t.Helper()

	tournament := &models.Tournament{
		ID:      1,
		Name:    "City Finals",
		Format:  models.FormatSingleElimination,
		Seeding: models.SeedingByRanking,
		Status:  models.StatusActive,
	}
	for i := 1; i <= 4; i++ {
		tournament.Teams = append(tournament.Teams, &models.Team{ID: i, Seed: i})
	}

	gen := brackets.NewSingleEliminationGenerator()
	result, err := gen.Generate(context.Background(), brackets.GenerateParams{
		Tournament: tournament,
		Teams:      tournament.Teams,
	})
	require.NoError(t, err)
	tournament.Matches = result.Matches
	tournament.Bracket = result.Bracket
	return tournament
}

// playMatch drives a match through start, score and end.
func playMatch(t *testing.T, tournament *models.Tournament, uid string, s1, s2 int) {
	t.Helper()
	m := tournament.MatchByUID(uid)
	require.NotNil(t, m)

	_, err := Apply(tournament, StartMatch{MatchRef: MatchRef{UID: uid, Version: m.Version}})
	require.NoError(t, err)
	_, err = Apply(tournament, UpdateScore{MatchRef: MatchRef{UID: uid, Version: m.Version}, Team1Score: s1, Team2Score: s2})
	require.NoError(t, err)
	_, err = Apply(tournament, EndMatch{MatchRef: MatchRef{UID: uid, Version: m.Version}, Team1Score: s1, Team2Score: s2})
	require.NoError(t, err)
}

func TestStartMatchTransitions(t *testing.T) {
	tournament := fourTeamKnockout(t)

	events, err := Apply(tournament, StartMatch{MatchRef: MatchRef{UID: "R1M1", Version: 0}})
	require.NoError(t, err)
	require.Len(t, events, 1)

	m := tournament.MatchByUID("R1M1")
	assert.Equal(t, models.MatchStatusInProgress, m.Status)
	assert.Equal(t, 1, m.Version)

	payload, err := events[0].MatchStarted()
	require.NoError(t, err)
	assert.Equal(t, 1, payload.Team1ID)
	assert.Equal(t, 4, payload.Team2ID)

	// starting again is rejected
	_, err = Apply(tournament, StartMatch{MatchRef: MatchRef{UID: "R1M1", Version: 1}})
	assert.ErrorIs(t, err, ErrMatchNotPending)
}

func TestStartMatchRequiresBothSlots(t *testing.T) {
	tournament := fourTeamKnockout(t)

	// the final has no teams until the semifinals advance their winners
	_, err := Apply(tournament, StartMatch{MatchRef: MatchRef{UID: "R2M1", Version: 0}})
	assert.ErrorIs(t, err, ErrSlotsNotPopulated)
}

func TestUpdateScoreRules(t *testing.T) {
	tournament := fourTeamKnockout(t)

	// not started yet
	_, err := Apply(tournament, UpdateScore{MatchRef: MatchRef{UID: "R1M1", Version: 0}, Team1Score: 10, Team2Score: 8})
	assert.ErrorIs(t, err, ErrMatchNotInProgress)

	_, err = Apply(tournament, StartMatch{MatchRef: MatchRef{UID: "R1M1", Version: 0}})
	require.NoError(t, err)

	_, err = Apply(tournament, UpdateScore{MatchRef: MatchRef{UID: "R1M1", Version: 1}, Team1Score: -1, Team2Score: 0})
	assert.ErrorIs(t, err, ErrNegativeScore)

	events, err := Apply(tournament, UpdateScore{MatchRef: MatchRef{UID: "R1M1", Version: 1}, Team1Score: 24, Team2Score: 18})
	require.NoError(t, err)
	require.Len(t, events, 1)

	m := tournament.MatchByUID("R1M1")
	assert.Equal(t, 24, *m.Score1)
	assert.Equal(t, 18, *m.Score2)
	assert.Equal(t, 2, m.Version)
	assert.Equal(t, models.MatchStatusInProgress, m.Status, "a score update never completes the match")
}

func TestEndMatchDeterminesWinner(t *testing.T) {
	tournament := fourTeamKnockout(t)

	_, err := Apply(tournament, StartMatch{MatchRef: MatchRef{UID: "R1M1", Version: 0}})
	require.NoError(t, err)

	// no score recorded yet
	_, err = Apply(tournament, EndMatch{MatchRef: MatchRef{UID: "R1M1", Version: 1}, Team1Score: 30, Team2Score: 20})
	assert.ErrorIs(t, err, ErrScoreMissing)

	_, err = Apply(tournament, UpdateScore{MatchRef: MatchRef{UID: "R1M1", Version: 1}, Team1Score: 30, Team2Score: 20})
	require.NoError(t, err)

	// carried score must agree with the recorded one
	_, err = Apply(tournament, EndMatch{MatchRef: MatchRef{UID: "R1M1", Version: 2}, Team1Score: 30, Team2Score: 22})
	assert.ErrorIs(t, err, ErrScoreMismatch)

	events, err := Apply(tournament, EndMatch{MatchRef: MatchRef{UID: "R1M1", Version: 2}, Team1Score: 30, Team2Score: 20})
	require.NoError(t, err)
	require.Len(t, events, 1)

	m := tournament.MatchByUID("R1M1")
	assert.Equal(t, models.MatchStatusCompleted, m.Status)
	assert.Equal(t, 1, *m.WinnerID)
	assert.Equal(t, 4, *m.LoserID)

	payload, err := events[0].MatchCompleted()
	require.NoError(t, err)
	assert.Equal(t, 1, payload.WinnerID)
	assert.Equal(t, 4, payload.LoserID)
}

func TestEndMatchRejectsTie(t *testing.T) {
	tournament := fourTeamKnockout(t)

	_, err := Apply(tournament, StartMatch{MatchRef: MatchRef{UID: "R1M1", Version: 0}})
	require.NoError(t, err)
	_, err = Apply(tournament, UpdateScore{MatchRef: MatchRef{UID: "R1M1", Version: 1}, Team1Score: 21, Team2Score: 21})
	require.NoError(t, err)

	_, err = Apply(tournament, EndMatch{MatchRef: MatchRef{UID: "R1M1", Version: 2}, Team1Score: 21, Team2Score: 21})
	assert.ErrorIs(t, err, ErrTieNotAllowed)

	m := tournament.MatchByUID("R1M1")
	assert.Equal(t, models.MatchStatusInProgress, m.Status, "a rejected end leaves the match untouched")
}

func TestVersionConflictRejected(t *testing.T) {
	tournament := fourTeamKnockout(t)

	_, err := Apply(tournament, StartMatch{MatchRef: MatchRef{UID: "R1M1", Version: 0}})
	require.NoError(t, err)

	// two scorekeepers both saw version 1; the first write wins, the second
	// is rejected instead of silently overwriting
	_, err = Apply(tournament, UpdateScore{MatchRef: MatchRef{UID: "R1M1", Version: 1}, Team1Score: 10, Team2Score: 8})
	require.NoError(t, err)

	_, err = Apply(tournament, UpdateScore{MatchRef: MatchRef{UID: "R1M1", Version: 1}, Team1Score: 8, Team2Score: 10})
	assert.ErrorIs(t, err, ErrVersionConflict)

	m := tournament.MatchByUID("R1M1")
	assert.Equal(t, 10, *m.Score1)
	assert.Equal(t, 8, *m.Score2)
}

func TestAdvanceTeamFillsNextRound(t *testing.T) {
	tournament := fourTeamKnockout(t)
	playMatch(t, tournament, "R1M1", 30, 20)

	m := tournament.MatchByUID("R1M1")
	events, err := Apply(tournament, AdvanceTeam{MatchRef: MatchRef{UID: "R1M1", Version: m.Version}, WinnerID: 1, LoserID: 4})
	require.NoError(t, err)
	require.Len(t, events, 1)

	final := tournament.MatchByUID("R2M1")
	require.NotNil(t, final.Team1ID)
	assert.Equal(t, 1, *final.Team1ID)
	assert.Nil(t, final.Team2ID)
	assert.Equal(t, 1, final.Version, "filling a slot bumps the destination version")

	payload, err := events[0].TeamAdvanced()
	require.NoError(t, err)
	require.NotNil(t, payload.WinnerToUID)
	assert.Equal(t, "R2M1", *payload.WinnerToUID)
}

func TestAdvanceTeamIsIdempotent(t *testing.T) {
	tournament := fourTeamKnockout(t)
	playMatch(t, tournament, "R1M1", 30, 20)

	m := tournament.MatchByUID("R1M1")
	_, err := Apply(tournament, AdvanceTeam{MatchRef: MatchRef{UID: "R1M1", Version: m.Version}, WinnerID: 1, LoserID: 4})
	require.NoError(t, err)
	versionAfter := m.Version

	// repeating with the same winner is a no-op, even with a stale version:
	// the outcome is already in place
	events, err := Apply(tournament, AdvanceTeam{MatchRef: MatchRef{UID: "R1M1", Version: versionAfter - 1}, WinnerID: 1, LoserID: 4})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, versionAfter, m.Version)

	final := tournament.MatchByUID("R2M1")
	assert.Equal(t, 1, *final.Team1ID)
}

func TestAdvanceTeamIntegrityViolations(t *testing.T) {
	tournament := fourTeamKnockout(t)

	// not completed yet
	_, err := Apply(tournament, AdvanceTeam{MatchRef: MatchRef{UID: "R1M1", Version: 0}, WinnerID: 1, LoserID: 4})
	assert.ErrorIs(t, err, ErrMatchNotCompleted)

	playMatch(t, tournament, "R1M1", 30, 20)
	m := tournament.MatchByUID("R1M1")

	// a team that never played the match
	_, err = Apply(tournament, AdvanceTeam{MatchRef: MatchRef{UID: "R1M1", Version: m.Version}, WinnerID: 3, LoserID: 4})
	assert.ErrorIs(t, err, ErrWinnerNotInMatch)

	// the losing team cannot be advanced as the winner
	_, err = Apply(tournament, AdvanceTeam{MatchRef: MatchRef{UID: "R1M1", Version: m.Version}, WinnerID: 4, LoserID: 1})
	assert.ErrorIs(t, err, ErrBracketIntegrity)
}

// persistAll mimics a version-guarded store: every write must carry the
// version the row held when the writer loaded it, and a batch either lands
// whole or not at all.
func persistAll(store *models.Tournament, from *models.Tournament, expected map[string]int, uids ...string) bool {
	for _, uid := range uids {
		if store.MatchByUID(uid).Version != expected[uid] {
			return false
		}
	}
	for _, uid := range uids {
		*store.MatchByUID(uid) = *from.MatchByUID(uid)
	}
	return true
}

func TestConcurrentAdvancesIntoSharedDestination(t *testing.T) {
	base := fourTeamKnockout(t)
	playMatch(t, base, "R1M1", 30, 20)
	playMatch(t, base, "R1M2", 15, 25)

	store := base.Clone()

	// two writers load the same aggregate and each advance one semifinal;
	// both feed opposite slots of the final
	a := base.Clone()
	b := base.Clone()

	loadedA := map[string]int{"R1M1": a.MatchByUID("R1M1").Version, "R2M1": 0}
	_, err := Apply(a, AdvanceTeam{MatchRef: MatchRef{UID: "R1M1", Version: loadedA["R1M1"]}, WinnerID: 1, LoserID: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, a.MatchByUID("R2M1").Version)

	loadedB := map[string]int{"R1M2": b.MatchByUID("R1M2").Version, "R2M1": 0}
	_, err = Apply(b, AdvanceTeam{MatchRef: MatchRef{UID: "R1M2", Version: loadedB["R1M2"]}, WinnerID: 2, LoserID: 3})
	require.NoError(t, err)

	require.True(t, persistAll(store, a, loadedA, "R1M1", "R2M1"))

	// writer b's copy of the final is stale: its write must be rejected, not
	// allowed to overwrite slot 1 with nil
	assert.False(t, persistAll(store, b, loadedB, "R1M2", "R2M1"),
		"stale destination version must fail the guard")
	require.NotNil(t, store.MatchByUID("R2M1").Team1ID)
	assert.Equal(t, 1, *store.MatchByUID("R2M1").Team1ID)

	// writer b reloads and retries against fresh versions
	retry := store.Clone()
	loadedRetry := map[string]int{
		"R1M2": retry.MatchByUID("R1M2").Version,
		"R2M1": retry.MatchByUID("R2M1").Version,
	}
	_, err = Apply(retry, AdvanceTeam{MatchRef: MatchRef{UID: "R1M2", Version: loadedRetry["R1M2"]}, WinnerID: 2, LoserID: 3})
	require.NoError(t, err)
	require.True(t, persistAll(store, retry, loadedRetry, "R1M2", "R2M1"))

	final := store.MatchByUID("R2M1")
	assert.Equal(t, 1, *final.Team1ID)
	assert.Equal(t, 2, *final.Team2ID)
	assert.Equal(t, 2, final.Version)
}

func TestFullPlaythroughCompletesTournament(t *testing.T) {
	tournament := fourTeamKnockout(t)

	playMatch(t, tournament, "R1M1", 30, 20)
	playMatch(t, tournament, "R1M2", 15, 25)

	m1 := tournament.MatchByUID("R1M1")
	_, err := Apply(tournament, AdvanceTeam{MatchRef: MatchRef{UID: "R1M1", Version: m1.Version}, WinnerID: 1, LoserID: 4})
	require.NoError(t, err)
	m2 := tournament.MatchByUID("R1M2")
	_, err = Apply(tournament, AdvanceTeam{MatchRef: MatchRef{UID: "R1M2", Version: m2.Version}, WinnerID: 2, LoserID: 3})
	require.NoError(t, err)

	final := tournament.MatchByUID("R2M1")
	assert.Equal(t, 1, *final.Team1ID)
	assert.Equal(t, 2, *final.Team2ID)

	playMatch(t, tournament, "R2M1", 40, 38)
	assert.Equal(t, 1, *final.WinnerID)
	assert.Equal(t, models.StatusCompleted, tournament.Status,
		"finishing the last match completes the tournament")
}

func TestMatchNotFound(t *testing.T) {
	tournament := fourTeamKnockout(t)
	_, err := Apply(tournament, StartMatch{MatchRef: MatchRef{UID: "R9M9", Version: 0}})
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
