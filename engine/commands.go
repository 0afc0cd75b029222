package engine

// MatchRef addresses one match at the version the caller last observed. The
// reducer rejects commands whose version is stale, so two clients editing the
// same match concurrently cannot silently overwrite each other.
type MatchRef struct {
	UID     string `json:"uid"`
	Version int    `json:"version"`
}

func (r MatchRef) MatchUID() string     { return r.UID }
func (r MatchRef) ExpectedVersion() int { return r.Version }

// Command is a mutation of a tournament. Local edits and remote events both
// go through Apply, so there is exactly one mutation code path.
type Command interface {
	MatchUID() string
	ExpectedVersion() int
}

// StartMatch transitions pending -> in_progress. Both team slots must be
// populated, which enforces round order: a match cannot begin before its
// feeder matches have advanced their winners.
type StartMatch struct {
	MatchRef
}

// UpdateScore records a running score. Legal only while the match is in
// progress; it never completes the match by itself.
type UpdateScore struct {
	MatchRef
	Team1Score int `json:"team1_score"`
	Team2Score int `json:"team2_score"`
}

// EndMatch transitions in_progress -> completed and determines the winner.
// The final score is carried explicitly and must equal the recorded score;
// a tie is an error, never silently resolved.
type EndMatch struct {
	MatchRef
	Team1Score int `json:"team1_score"`
	Team2Score int `json:"team2_score"`
}

// AdvanceTeam writes the winner of a completed match into the next round's
// slot, and the loser into the losers bracket slot when one exists.
// Re-applying with the same winner is a no-op; a different winner is a
// bracket integrity error.
type AdvanceTeam struct {
	MatchRef
	WinnerID int `json:"winner_id"`
	LoserID  int `json:"loser_id"`
}
