package brackets

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/courtsidehq/tournament-service/models"
)

type RoundRobinGenerator struct {
	Rand *rand.Rand
}

func NewRoundRobinGenerator() *RoundRobinGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

// Generate schedules a round robin with the circle method: one team is fixed
// and the rest rotate, so every pair meets exactly once per cycle and no team
// plays twice in the same round. With an odd team count a phantom slot gives
// one team per round a bye. Settings.RoundRobinCycles > 1 repeats the whole
// schedule with home/away swapped on even cycles.
func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateParams) (*Result, error) {
	if err := ValidateTeamCount(models.FormatRoundRobin, len(params.Teams)); err != nil {
		return nil, err
	}
	teams, err := SeedOrder(params.Teams, params.Tournament.Seeding, g.Rand)
	if err != nil {
		return nil, err
	}

	cycles := params.Tournament.Settings.RoundRobinCycles
	if cycles < 1 {
		cycles = 1
	}

	base := make([]int, 0, len(teams)+1)
	for _, t := range teams {
		base = append(base, t.ID)
	}
	if len(base)%2 != 0 {
		base = append(base, 0) // phantom opponent marks a bye
	}

	var (
		matches  []*models.Match
		rounds   []models.Round
		absRound int
	)

	for c := 1; c <= cycles; c++ {
		players := append([]int(nil), base...)
		for r := 0; r < len(players)-1; r++ {
			absRound++
			order := 0
			round := models.Round{
				Number: absRound,
				Name:   fmt.Sprintf("Round %d", absRound),
				Side:   models.SideWinners,
			}
			half := len(players) / 2
			for i := 0; i < half; i++ {
				t1, t2 := players[i], players[len(players)-1-i]
				if t1 == 0 || t2 == 0 {
					continue
				}
				if c%2 == 0 {
					t1, t2 = t2, t1
				}
				order++
				id1, id2 := t1, t2
				m := &models.Match{
					UID:          fmt.Sprintf("R%dM%d", absRound, order),
					Side:         models.SideWinners,
					Round:        absRound,
					OrderInRound: order,
					Status:       models.MatchStatusPending,
					Team1ID:      &id1,
					Team2ID:      &id2,
					TournamentID: params.Tournament.ID,
				}
				matches = append(matches, m)
				round.MatchUIDs = append(round.MatchUIDs, m.UID)
			}
			rounds = append(rounds, round)
			rotateCircle(players)
		}
	}

	return &Result{
		Bracket: models.Bracket{Rounds: rounds},
		Matches: matches,
	}, nil
}

// rotateCircle keeps players[0] fixed and rotates the rest one step.
func rotateCircle(players []int) {
	if len(players) < 3 {
		return
	}
	last := players[len(players)-1]
	copy(players[2:], players[1:len(players)-1])
	players[1] = last
}
