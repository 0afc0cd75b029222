package brackets

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/courtsidehq/tournament-service/models"
)

const grandFinalUID = "GF"

type DoubleEliminationGenerator struct {
	Rand *rand.Rand
}

func NewDoubleEliminationGenerator() *DoubleEliminationGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Name() string {
	return "DoubleElimination"
}

// Generate builds a winners bracket plus the parallel losers bracket. The
// loser of winners round 1 enters losers round 1; the loser of winners round
// k (k >= 2) enters the corresponding losers "major" round, where it meets a
// losers bracket survivor. Losing in the losers bracket eliminates the team.
// The winners champion meets the losers champion in a single grand final (no
// bracket reset).
func (g *DoubleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) (*Result, error) {
	if err := ValidateTeamCount(models.FormatDoubleElimination, len(params.Teams)); err != nil {
		return nil, err
	}
	teams, err := SeedOrder(params.Teams, params.Tournament.Seeding, g.Rand)
	if err != nil {
		return nil, err
	}

	tree, err := buildWinnersTree(teams)
	if err != nil {
		return nil, err
	}
	rounds := make([]models.Round, len(tree.rounds))
	copy(rounds, tree.rounds)
	for i := range rounds {
		if i == len(rounds)-1 {
			rounds[i].Name = "Winners Final"
		} else {
			rounds[i].Name = fmt.Sprintf("Winners Round %d", rounds[i].Number)
		}
	}
	matches := tree.matches

	// feeder slots for losers round 1: one per winners round-1 pair, empty
	// where the pair was a bye (a bye produces no loser)
	cur := make([]loserSlot, len(tree.r1PairMatch))
	for p, m := range tree.r1PairMatch {
		if m != nil {
			cur[p] = loserSlot{fromUID: &m.UID, takeLoser: true}
		}
	}

	lb := &loserBuilder{byUID: tree.byUID}
	cur = lb.pairRound(cur)

	for k := 2; k <= tree.numRounds; k++ {
		wbLosers := tree.byRound[k-1]
		merged := make([]loserSlot, 0, len(cur)+len(wbLosers))
		for i := 0; i < len(wbLosers) || i < len(cur); i++ {
			if i < len(wbLosers) {
				merged = append(merged, loserSlot{fromUID: &wbLosers[i].UID, takeLoser: true})
			}
			if i < len(cur) {
				merged = append(merged, cur[i])
			}
		}
		cur = lb.pairRound(merged)

		if k < tree.numRounds && len(cur) > 1 {
			cur = lb.pairRound(cur)
		}
	}
	if len(cur) != 1 {
		return nil, fmt.Errorf("losers bracket collapsed to %d slots, want 1", len(cur))
	}

	matches = append(matches, lb.matches...)
	if len(lb.rounds) > 0 {
		lb.rounds[len(lb.rounds)-1].Name = "Losers Final"
	}
	rounds = append(rounds, lb.rounds...)

	// grand final: winners champion vs losers champion
	gf := &models.Match{
		UID:          grandFinalUID,
		Side:         models.SideWinners,
		Round:        tree.numRounds + 1,
		OrderInRound: 1,
		Status:       models.MatchStatusPending,
	}
	linkWinner(tree.byUID[tree.finalUID], grandFinalUID, 1)
	lbChampion := cur[0]
	switch {
	case lbChampion.fromUID != nil && lbChampion.takeLoser:
		linkLoser(lb.byUID[*lbChampion.fromUID], grandFinalUID, 2)
	case lbChampion.fromUID != nil:
		linkWinner(lb.byUID[*lbChampion.fromUID], grandFinalUID, 2)
	case lbChampion.teamID != nil:
		gf.Team2ID = lbChampion.teamID
	}
	matches = append(matches, gf)
	rounds = append(rounds, models.Round{
		Number:    tree.numRounds + 1,
		Name:      "Grand Final",
		Side:      models.SideWinners,
		MatchUIDs: []string{grandFinalUID},
	})

	for _, m := range matches {
		m.TournamentID = params.Tournament.ID
	}
	return &Result{
		Bracket: models.Bracket{Rounds: rounds},
		Matches: matches,
	}, nil
}

// loserSlot feeds a losers bracket position: a team (after a bye), the winner
// of an earlier losers match, or the loser of a winners match.
type loserSlot struct {
	teamID    *int
	fromUID   *string
	takeLoser bool
}

func (s loserSlot) empty() bool { return s.teamID == nil && s.fromUID == nil }

type loserBuilder struct {
	byUID    map[string]*models.Match
	matches  []*models.Match
	rounds   []models.Round
	roundNum int
}

// pairRound pairs adjacent slots into losers matches. A slot with no living
// counterpart passes through as a bye; a fully empty pair vanishes (the bye
// chain from an uneven winners round 1).
func (b *loserBuilder) pairRound(slots []loserSlot) []loserSlot {
	b.roundNum++
	order := 0
	var created []*models.Match
	next := make([]loserSlot, 0, (len(slots)+1)/2)

	for i := 0; i < len(slots); i += 2 {
		a := slots[i]
		var second loserSlot
		if i+1 < len(slots) {
			second = slots[i+1]
		}
		if a.empty() && second.empty() {
			continue
		}
		if second.empty() {
			next = append(next, a)
			continue
		}
		if a.empty() {
			next = append(next, second)
			continue
		}

		order++
		uid := fmt.Sprintf("LR%dM%d", b.roundNum, order)
		m := &models.Match{
			UID:          uid,
			Side:         models.SideLosers,
			Round:        b.roundNum,
			OrderInRound: order,
			Status:       models.MatchStatusPending,
		}
		b.wireSlot(m, a, uid, 1)
		b.wireSlot(m, second, uid, 2)

		b.byUID[uid] = m
		b.matches = append(b.matches, m)
		created = append(created, m)
		u := uid
		next = append(next, loserSlot{fromUID: &u})
	}

	if len(created) > 0 {
		round := models.Round{
			Number: b.roundNum,
			Name:   fmt.Sprintf("Losers Round %d", b.roundNum),
			Side:   models.SideLosers,
		}
		for _, m := range created {
			round.MatchUIDs = append(round.MatchUIDs, m.UID)
		}
		b.rounds = append(b.rounds, round)
	}
	return next
}

func (b *loserBuilder) wireSlot(m *models.Match, s loserSlot, destUID string, slot int) {
	switch {
	case s.teamID != nil:
		if slot == 1 {
			m.Team1ID = s.teamID
		} else {
			m.Team2ID = s.teamID
		}
	case s.takeLoser:
		linkLoser(b.byUID[*s.fromUID], destUID, slot)
	default:
		linkWinner(b.byUID[*s.fromUID], destUID, slot)
	}
}

func linkLoser(src *models.Match, destUID string, slot int) {
	src.LoserTo = &destUID
	src.LoserToSlot = &slot
}
