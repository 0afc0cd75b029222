package models

import "time"

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

// BracketSide distinguishes the two parallel paths of a double elimination
// bracket. Every other format uses SideWinners only.
type BracketSide string

const (
	SideWinners BracketSide = "winners"
	SideLosers  BracketSide = "losers"
)

// Match is one game inside a tournament bracket. Team slots are nil until
// resolved ("TBD"), scores are nil until entered, and winner/loser are nil
// until the match is completed.
//
// Version is a per-match monotonic counter incremented by every applied
// mutation. Commands carry the version they were built against; a stale
// version is rejected instead of overwriting concurrent edits.
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	UID          string      `json:"uid" db:"uid"`
	Side         BracketSide `json:"side" db:"side"`
	Round        int         `json:"round" db:"round"`
	OrderInRound int         `json:"order_in_round" db:"order_in_round"`

	Team1ID *int `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID *int `json:"team2_id,omitempty" db:"team2_id"`

	Score1   *int        `json:"score1,omitempty" db:"score1"`
	Score2   *int        `json:"score2,omitempty" db:"score2"`
	WinnerID *int        `json:"winner_id,omitempty" db:"winner_id"`
	LoserID  *int        `json:"loser_id,omitempty" db:"loser_id"`
	Status   MatchStatus `json:"status" db:"status"`

	Court       *string    `json:"court,omitempty" db:"court"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`

	Version int `json:"version" db:"version"`

	// Advancement links. WinnerTo/LoserTo hold the UID of the match the
	// winner/loser feeds into; the slot is 1 or 2. A nil WinnerTo marks a
	// terminal match (the final, or any round robin game). A nil LoserTo in
	// double elimination means the loser is eliminated.
	WinnerTo     *string `json:"winner_to,omitempty" db:"winner_to"`
	WinnerToSlot *int    `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
	LoserTo      *string `json:"loser_to,omitempty" db:"loser_to"`
	LoserToSlot  *int    `json:"loser_to_slot,omitempty" db:"loser_to_slot"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SlotsPopulated reports whether both team slots are resolved, which is a
// precondition for starting the match.
func (m *Match) SlotsPopulated() bool {
	return m.Team1ID != nil && m.Team2ID != nil
}

// HasTeam reports whether the given team occupies one of the match slots.
func (m *Match) HasTeam(teamID int) bool {
	return (m.Team1ID != nil && *m.Team1ID == teamID) ||
		(m.Team2ID != nil && *m.Team2ID == teamID)
}
