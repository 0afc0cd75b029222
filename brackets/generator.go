package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/courtsidehq/tournament-service/models"
)

type GenerateParams struct {
	Tournament *models.Tournament
	Teams      []*models.Team
}

// Result is the full output of a generator: the round topology plus the
// flattened match list that owns all mutable state.
type Result struct {
	Bracket models.Bracket
	Matches []*models.Match
}

type Generator interface {
	Generate(ctx context.Context, params GenerateParams) (*Result, error)

	Name() string
}

// ForFormat returns the generator for a tournament format.
func ForFormat(format models.TournamentFormat) (Generator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.FormatPoolPlay:
		return NewPoolPlayGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported tournament format %q", format)
	}
}

type teamLimits struct {
	Min int
	Max int
}

var formatLimits = map[models.TournamentFormat]teamLimits{
	models.FormatSingleElimination: {Min: 2, Max: 128},
	models.FormatDoubleElimination: {Min: 4, Max: 64},
	models.FormatRoundRobin:        {Min: 2, Max: 20},
	models.FormatPoolPlay:          {Min: 4, Max: 64},
}

// ValidationError reports a team count outside the supported range of a
// format. It is raised before any bracket is built.
type ValidationError struct {
	Format    models.TournamentFormat
	TeamCount int
	Min       int
	Max       int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("format %s supports between %d and %d teams, got %d",
		e.Format, e.Min, e.Max, e.TeamCount)
}

// ValidateTeamCount checks the count against the format limits. Generators
// call this first, so no partial bracket is ever produced for bad input.
func ValidateTeamCount(format models.TournamentFormat, count int) error {
	limits, ok := formatLimits[format]
	if !ok {
		return fmt.Errorf("unsupported tournament format %q", format)
	}
	if count < limits.Min || count > limits.Max {
		return &ValidationError{Format: format, TeamCount: count, Min: limits.Min, Max: limits.Max}
	}
	return nil
}

// RoundName names an elimination round by its distance from the final.
func RoundName(round, totalRounds int) string {
	switch totalRounds - round {
	case 0:
		return "Final"
	case 1:
		return "Semifinals"
	case 2:
		return "Quarterfinals"
	default:
		return fmt.Sprintf("Round of %d", 1<<(totalRounds-round+1))
	}
}

// RebuildRounds reconstructs the round topology from a flat match list, used
// when a tournament is loaded back from the database. Input order does not
// matter: rounds are grouped winners side first, then by round and order, so
// a reloaded tournament lists rounds exactly like a freshly generated one.
func RebuildRounds(format models.TournamentFormat, matches []*models.Match) models.Bracket {
	ordered := make([]*models.Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if ra, rb := sideRank(a), sideRank(b); ra != rb {
			return ra < rb
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.OrderInRound < b.OrderInRound
	})

	var bracket models.Bracket
	type key struct {
		side  models.BracketSide
		round int
	}
	index := make(map[key]int)
	winnersTotal := 0
	for _, m := range ordered {
		if m.Side == models.SideWinners && m.Round > winnersTotal {
			winnersTotal = m.Round
		}
	}
	for _, m := range ordered {
		k := key{side: m.Side, round: m.Round}
		i, ok := index[k]
		if !ok {
			round := models.Round{
				Number: m.Round,
				Side:   m.Side,
				Name:   rebuiltRoundName(format, m, winnersTotal),
			}
			bracket.Rounds = append(bracket.Rounds, round)
			i = len(bracket.Rounds) - 1
			index[k] = i
		}
		bracket.Rounds[i].MatchUIDs = append(bracket.Rounds[i].MatchUIDs, m.UID)
	}
	return bracket
}

// sideRank mirrors generator output order: winners rounds, losers rounds,
// grand final last.
func sideRank(m *models.Match) int {
	switch {
	case m.UID == grandFinalUID:
		return 2
	case m.Side == models.SideLosers:
		return 1
	default:
		return 0
	}
}

func rebuiltRoundName(format models.TournamentFormat, m *models.Match, winnersTotal int) string {
	switch format {
	case models.FormatSingleElimination:
		return RoundName(m.Round, winnersTotal)
	case models.FormatDoubleElimination:
		if m.UID == grandFinalUID {
			return "Grand Final"
		}
		if m.Side == models.SideLosers {
			return fmt.Sprintf("Losers Round %d", m.Round)
		}
		return fmt.Sprintf("Winners Round %d", m.Round)
	case models.FormatPoolPlay:
		return fmt.Sprintf("Pool Round %d", m.Round)
	default:
		return fmt.Sprintf("Round %d", m.Round)
	}
}
