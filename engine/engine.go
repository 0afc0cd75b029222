package engine

import (
	"fmt"

	"github.com/courtsidehq/tournament-service/models"
	"github.com/courtsidehq/tournament-service/realtime"
)

// Apply runs a command against the tournament and returns the events that
// describe the resulting delta. Apply is synchronous and never blocks; on any
// error the tournament is left untouched.
func Apply(t *models.Tournament, cmd Command) ([]realtime.Event, error) {
	m := t.MatchByUID(cmd.MatchUID())
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrMatchNotFound, cmd.MatchUID())
	}

	switch c := cmd.(type) {
	case StartMatch:
		return applyStartMatch(t, m, c)
	case UpdateScore:
		return applyUpdateScore(t, m, c)
	case EndMatch:
		return applyEndMatch(t, m, c)
	case AdvanceTeam:
		return applyAdvanceTeam(t, m, c)
	default:
		return nil, fmt.Errorf("unknown command type %T", cmd)
	}
}

func checkVersion(m *models.Match, cmd Command) error {
	if cmd.ExpectedVersion() != m.Version {
		return fmt.Errorf("%w: match %s is at version %d, command was built against %d",
			ErrVersionConflict, m.UID, m.Version, cmd.ExpectedVersion())
	}
	return nil
}

func applyStartMatch(t *models.Tournament, m *models.Match, c StartMatch) ([]realtime.Event, error) {
	if err := checkVersion(m, c); err != nil {
		return nil, err
	}
	if m.Status != models.MatchStatusPending {
		return nil, fmt.Errorf("%w: match %s is %s", ErrMatchNotPending, m.UID, m.Status)
	}
	if !m.SlotsPopulated() {
		return nil, fmt.Errorf("%w: match %s", ErrSlotsNotPopulated, m.UID)
	}

	m.Status = models.MatchStatusInProgress
	m.Version++

	ev, err := realtime.NewEvent(realtime.EventMatchStarted, t.ID, m.UID, m.Version,
		realtime.MatchStartedPayload{Team1ID: *m.Team1ID, Team2ID: *m.Team2ID})
	if err != nil {
		return nil, err
	}
	return []realtime.Event{ev}, nil
}

func applyUpdateScore(t *models.Tournament, m *models.Match, c UpdateScore) ([]realtime.Event, error) {
	if err := checkVersion(m, c); err != nil {
		return nil, err
	}
	if m.Status != models.MatchStatusInProgress {
		return nil, fmt.Errorf("%w: match %s is %s", ErrMatchNotInProgress, m.UID, m.Status)
	}
	if c.Team1Score < 0 || c.Team2Score < 0 {
		return nil, ErrNegativeScore
	}

	s1, s2 := c.Team1Score, c.Team2Score
	m.Score1 = &s1
	m.Score2 = &s2
	m.Version++

	ev, err := realtime.NewEvent(realtime.EventScoreUpdate, t.ID, m.UID, m.Version,
		realtime.ScoreUpdatePayload{Team1Score: s1, Team2Score: s2})
	if err != nil {
		return nil, err
	}
	return []realtime.Event{ev}, nil
}

func applyEndMatch(t *models.Tournament, m *models.Match, c EndMatch) ([]realtime.Event, error) {
	if err := checkVersion(m, c); err != nil {
		return nil, err
	}
	if m.Status != models.MatchStatusInProgress {
		return nil, fmt.Errorf("%w: match %s is %s", ErrMatchNotInProgress, m.UID, m.Status)
	}
	if m.Score1 == nil || m.Score2 == nil {
		return nil, fmt.Errorf("%w: match %s", ErrScoreMissing, m.UID)
	}
	if *m.Score1 != c.Team1Score || *m.Score2 != c.Team2Score {
		return nil, fmt.Errorf("%w: match %s recorded %d-%d, command carries %d-%d",
			ErrScoreMismatch, m.UID, *m.Score1, *m.Score2, c.Team1Score, c.Team2Score)
	}
	if *m.Score1 == *m.Score2 {
		return nil, fmt.Errorf("%w: match %s at %d-%d", ErrTieNotAllowed, m.UID, *m.Score1, *m.Score2)
	}

	winner, loser := *m.Team1ID, *m.Team2ID
	if *m.Score2 > *m.Score1 {
		winner, loser = loser, winner
	}
	m.WinnerID = &winner
	m.LoserID = &loser
	m.Status = models.MatchStatusCompleted
	m.Version++

	if t.AllMatchesCompleted() {
		t.Status = models.StatusCompleted
	}

	ev, err := realtime.NewEvent(realtime.EventMatchCompleted, t.ID, m.UID, m.Version,
		realtime.MatchCompletedPayload{
			Team1Score: *m.Score1,
			Team2Score: *m.Score2,
			WinnerID:   winner,
			LoserID:    loser,
		})
	if err != nil {
		return nil, err
	}
	return []realtime.Event{ev}, nil
}

func applyAdvanceTeam(t *models.Tournament, m *models.Match, c AdvanceTeam) ([]realtime.Event, error) {
	if m.Status != models.MatchStatusCompleted || m.WinnerID == nil {
		return nil, fmt.Errorf("%w: match %s", ErrMatchNotCompleted, m.UID)
	}
	if !m.HasTeam(c.WinnerID) {
		return nil, fmt.Errorf("%w: team %d in match %s", ErrWinnerNotInMatch, c.WinnerID, m.UID)
	}
	if *m.WinnerID != c.WinnerID {
		return nil, fmt.Errorf("%w: match %s was won by team %d, cannot advance team %d",
			ErrBracketIntegrity, m.UID, *m.WinnerID, c.WinnerID)
	}
	if m.LoserID != nil && *m.LoserID != c.LoserID {
		return nil, fmt.Errorf("%w: match %s loser is team %d, not team %d",
			ErrBracketIntegrity, m.UID, *m.LoserID, c.LoserID)
	}

	// Resolve destinations before writing anything, so an integrity failure
	// cannot leave one slot written and the other not.
	winnerDest, winnerSlot, winnerPending, err := resolveSlot(t, m, m.WinnerTo, m.WinnerToSlot, c.WinnerID)
	if err != nil {
		return nil, err
	}
	loserDest, loserSlot, loserPending, err := resolveSlot(t, m, m.LoserTo, m.LoserToSlot, c.LoserID)
	if err != nil {
		return nil, err
	}

	if !winnerPending && !loserPending {
		// both destinations already hold the right teams: idempotent repeat
		return nil, nil
	}
	if err := checkVersion(m, c); err != nil {
		return nil, err
	}

	if winnerPending {
		writeSlot(winnerDest, winnerSlot, c.WinnerID)
	}
	if loserPending {
		writeSlot(loserDest, loserSlot, c.LoserID)
	}
	m.Version++

	ev, err := realtime.NewEvent(realtime.EventTeamAdvanced, t.ID, m.UID, m.Version,
		realtime.TeamAdvancedPayload{
			WinnerID:     c.WinnerID,
			LoserID:      c.LoserID,
			WinnerToUID:  m.WinnerTo,
			WinnerToSlot: m.WinnerToSlot,
			LoserToUID:   m.LoserTo,
			LoserToSlot:  m.LoserToSlot,
		})
	if err != nil {
		return nil, err
	}
	return []realtime.Event{ev}, nil
}

// resolveSlot locates the destination slot for an advancing team. pending is
// false when there is nothing to do: no link (terminal match or elimination)
// or the team already occupies the slot. A slot occupied by a different team
// is a bracket integrity violation.
func resolveSlot(t *models.Tournament, src *models.Match, destUID *string, destSlot *int, teamID int) (*models.Match, int, bool, error) {
	if destUID == nil {
		return nil, 0, false, nil
	}
	dest := t.MatchByUID(*destUID)
	if dest == nil || destSlot == nil {
		return nil, 0, false, fmt.Errorf("%w: match %s links to missing match %q",
			ErrBracketIntegrity, src.UID, derefOr(destUID, ""))
	}
	occupant := slotValue(dest, *destSlot)
	if occupant != nil {
		if *occupant == teamID {
			return dest, *destSlot, false, nil
		}
		return nil, 0, false, fmt.Errorf("%w: slot %d of match %s already holds team %d",
			ErrBracketIntegrity, *destSlot, dest.UID, *occupant)
	}
	return dest, *destSlot, true, nil
}

func slotValue(m *models.Match, slot int) *int {
	if slot == 1 {
		return m.Team1ID
	}
	return m.Team2ID
}

// writeSlot fills a destination slot and bumps the destination's version, so
// its persistence is version-guarded like any other mutation. Two sibling
// advances feeding the same next-round match then conflict at the store
// instead of the later full-row write clobbering the earlier slot.
func writeSlot(m *models.Match, slot int, teamID int) {
	id := teamID
	if slot == 1 {
		m.Team1ID = &id
	} else {
		m.Team2ID = &id
	}
	m.Version++
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
