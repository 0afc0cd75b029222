package brackets

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/courtsidehq/tournament-service/models"
)

type PoolPlayGenerator struct {
	Rand *rand.Rand
}

func NewPoolPlayGenerator() *PoolPlayGenerator {
	return &PoolPlayGenerator{}
}

func (g *PoolPlayGenerator) Name() string {
	return "PoolPlay"
}

// Generate distributes teams across pools snake-style by seed (1 -> pool A,
// 2 -> pool B, ..., then back), then schedules a circle-method round robin
// inside each pool. Round r of every pool lands in the shared "Pool Round r"
// so games across pools can share time slots.
func (g *PoolPlayGenerator) Generate(ctx context.Context, params GenerateParams) (*Result, error) {
	if err := ValidateTeamCount(models.FormatPoolPlay, len(params.Teams)); err != nil {
		return nil, err
	}
	teams, err := SeedOrder(params.Teams, params.Tournament.Seeding, g.Rand)
	if err != nil {
		return nil, err
	}

	poolCount := params.Tournament.Settings.PoolCount
	if poolCount < 2 {
		poolCount = 2
	}
	if len(teams)/poolCount < 2 {
		return nil, fmt.Errorf("pool play with %d teams cannot fill %d pools of at least 2 teams",
			len(teams), poolCount)
	}

	pools := make([][]int, poolCount)
	for i, t := range teams {
		p := i % (2 * poolCount)
		if p >= poolCount {
			p = 2*poolCount - 1 - p
		}
		pools[p] = append(pools[p], t.ID)
	}

	// per-pool rotation slices, padded for odd sizes
	rotations := make([][]int, poolCount)
	maxRounds := 0
	for p, ids := range pools {
		rot := append([]int(nil), ids...)
		if len(rot)%2 != 0 {
			rot = append(rot, 0)
		}
		rotations[p] = rot
		if len(rot)-1 > maxRounds {
			maxRounds = len(rot) - 1
		}
	}

	var (
		matches []*models.Match
		rounds  []models.Round
	)
	for r := 1; r <= maxRounds; r++ {
		round := models.Round{
			Number: r,
			Name:   fmt.Sprintf("Pool Round %d", r),
			Side:   models.SideWinners,
		}
		order := 0
		for p, rot := range rotations {
			if r > len(rot)-1 {
				continue
			}
			half := len(rot) / 2
			for i := 0; i < half; i++ {
				t1, t2 := rot[i], rot[len(rot)-1-i]
				if t1 == 0 || t2 == 0 {
					continue
				}
				order++
				id1, id2 := t1, t2
				m := &models.Match{
					UID:          fmt.Sprintf("P%dR%dM%d", p+1, r, order),
					Side:         models.SideWinners,
					Round:        r,
					OrderInRound: order,
					Status:       models.MatchStatusPending,
					Team1ID:      &id1,
					Team2ID:      &id2,
					TournamentID: params.Tournament.ID,
				}
				matches = append(matches, m)
				round.MatchUIDs = append(round.MatchUIDs, m.UID)
			}
			rotateCircle(rot)
		}
		rounds = append(rounds, round)
	}

	return &Result{
		Bracket: models.Bracket{Rounds: rounds},
		Matches: matches,
	}, nil
}
