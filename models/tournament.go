package models

import "time"

// TournamentStatus mirrors the lifecycle ENUM in the database.
type TournamentStatus string

const (
	StatusDraft        TournamentStatus = "draft"
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCanceled     TournamentStatus = "canceled"
)

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatPoolPlay          TournamentFormat = "pool_play"
)

type SeedingMethod string

const (
	SeedingByRanking SeedingMethod = "ranking"
	SeedingManual    SeedingMethod = "manual"
	SeedingRandom    SeedingMethod = "random"
)

type TiebreakerRule string

const (
	TiebreakHeadToHead   TiebreakerRule = "head_to_head"
	TiebreakPointDiff    TiebreakerRule = "point_differential"
	TiebreakPointsScored TiebreakerRule = "points_scored"
)

// TournamentSettings carries the per-tournament knobs. Stored as a JSON
// column, so everything must have sane zero-value behavior.
type TournamentSettings struct {
	Courts            int              `json:"courts,omitempty"`
	GameLengthMinutes int              `json:"game_length_minutes,omitempty"`
	RoundRobinCycles  int              `json:"round_robin_cycles,omitempty"`
	PoolCount         int              `json:"pool_count,omitempty"`
	Tiebreakers       []TiebreakerRule `json:"tiebreakers,omitempty"`
}

// Round is an ordered group of matches inside the bracket. Matches are
// referenced by UID; the flattened Tournament.Matches slice is the single
// owner of match state.
type Round struct {
	Number    int         `json:"number"`
	Name      string      `json:"name"`
	Side      BracketSide `json:"side"`
	MatchUIDs []string    `json:"match_uids"`
}

// Bracket is the ordered collection of rounds produced by a generator.
type Bracket struct {
	Rounds []Round `json:"rounds"`
}

// Tournament is the aggregate root: teams, the flattened match list, and the
// bracket topology over it.
type Tournament struct {
	ID        int                `json:"id" db:"id"`
	Name      string             `json:"name" db:"name"`
	Format    TournamentFormat   `json:"format" db:"format"`
	Seeding   SeedingMethod      `json:"seeding" db:"seeding"`
	Status    TournamentStatus   `json:"status" db:"status"`
	Settings  TournamentSettings `json:"settings" db:"-"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`

	Teams   []*Team  `json:"teams,omitempty" db:"-"`
	Matches []*Match `json:"matches,omitempty" db:"-"`
	Bracket Bracket  `json:"bracket" db:"-"`
}

func (t *Tournament) MatchByUID(uid string) *Match {
	for _, m := range t.Matches {
		if m.UID == uid {
			return m
		}
	}
	return nil
}

func (t *Tournament) TeamByID(id int) *Team {
	for _, tm := range t.Teams {
		if tm.ID == id {
			return tm
		}
	}
	return nil
}

// RoundComplete reports whether every match of the round has been completed.
func (t *Tournament) RoundComplete(r Round) bool {
	for _, uid := range r.MatchUIDs {
		m := t.MatchByUID(uid)
		if m == nil || m.Status != MatchStatusCompleted {
			return false
		}
	}
	return true
}

// AllMatchesCompleted reports whether the whole schedule has been played out,
// which is the terminal condition of the tournament lifecycle.
func (t *Tournament) AllMatchesCompleted() bool {
	for _, m := range t.Matches {
		if m.Status != MatchStatusCompleted {
			return false
		}
	}
	return len(t.Matches) > 0
}

// Clone returns a deep copy of the tournament. The state manager hands copies
// to callers so that nothing outside the reducer can mutate the aggregate.
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	out := *t
	out.Teams = make([]*Team, len(t.Teams))
	for i, tm := range t.Teams {
		c := *tm
		out.Teams[i] = &c
	}
	out.Matches = make([]*Match, len(t.Matches))
	for i, m := range t.Matches {
		c := *m
		c.Team1ID = cloneIntPtr(m.Team1ID)
		c.Team2ID = cloneIntPtr(m.Team2ID)
		c.Score1 = cloneIntPtr(m.Score1)
		c.Score2 = cloneIntPtr(m.Score2)
		c.WinnerID = cloneIntPtr(m.WinnerID)
		c.LoserID = cloneIntPtr(m.LoserID)
		c.WinnerToSlot = cloneIntPtr(m.WinnerToSlot)
		c.LoserToSlot = cloneIntPtr(m.LoserToSlot)
		c.WinnerTo = cloneStringPtr(m.WinnerTo)
		c.LoserTo = cloneStringPtr(m.LoserTo)
		c.Court = cloneStringPtr(m.Court)
		if m.ScheduledAt != nil {
			at := *m.ScheduledAt
			c.ScheduledAt = &at
		}
		out.Matches[i] = &c
	}
	out.Bracket.Rounds = make([]Round, len(t.Bracket.Rounds))
	for i, r := range t.Bracket.Rounds {
		cr := r
		cr.MatchUIDs = append([]string(nil), r.MatchUIDs...)
		out.Bracket.Rounds[i] = cr
	}
	out.Settings.Tiebreakers = append([]TiebreakerRule(nil), t.Settings.Tiebreakers...)
	return &out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
