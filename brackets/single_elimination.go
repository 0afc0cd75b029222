package brackets

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/courtsidehq/tournament-service/models"
)

type SingleEliminationGenerator struct {
	// Rand seeds random shuffles; nil falls back to the global source.
	Rand *rand.Rand
}

func NewSingleEliminationGenerator() *SingleEliminationGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) (*Result, error) {
	if err := ValidateTeamCount(models.FormatSingleElimination, len(params.Teams)); err != nil {
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
	for _, m := range tree.matches {
		m.TournamentID = params.Tournament.ID
	}
	return &Result{
		Bracket: models.Bracket{Rounds: tree.rounds},
		Matches: tree.matches,
	}, nil
}

// entrant is one slot in the elimination grid: either a known team or the
// winner of an earlier match.
type entrant struct {
	teamID  *int
	fromUID *string
}

func (e entrant) empty() bool { return e.teamID == nil && e.fromUID == nil }

type elimTree struct {
	matches   []*models.Match
	rounds    []models.Round
	byRound   [][]*models.Match
	byUID     map[string]*models.Match
	numRounds int

	// round-1 slot pairs in bracket order; nil entries are byes.
	r1PairMatch []*models.Match
	finalUID    string
}

// buildWinnersTree generates a seeded single elimination tree. Teams must
// already be in seed order. Byes (nextPowerOfTwo(N) - N of them) produce no
// match: the seeded team is written directly into its round-2 slot, so the
// total match count is always N-1.
func buildWinnersTree(teams []*models.Team) (*elimTree, error) {
	n := len(teams)
	size := NextPowerOfTwo(n)
	numRounds := 0
	for s := size; s > 1; s >>= 1 {
		numRounds++
	}

	cur := make([]entrant, size)
	for i, seedPos := range seedPositions(size) {
		if seedPos <= n {
			id := teams[seedPos-1].ID
			cur[i] = entrant{teamID: &id}
		}
	}

	tree := &elimTree{
		byUID:       make(map[string]*models.Match),
		numRounds:   numRounds,
		r1PairMatch: make([]*models.Match, size/2),
	}

	for r := 1; r <= numRounds; r++ {
		next := make([]entrant, len(cur)/2)
		var roundMatches []*models.Match

		for i := 0; i < len(cur); i += 2 {
			p := i / 2
			a, b := cur[i], cur[i+1]

			if r == 1 {
				// a bye sends the present team straight to the next round
				if a.teamID != nil && b.empty() {
					next[p] = entrant{teamID: a.teamID}
					continue
				}
				if b.teamID != nil && a.empty() {
					next[p] = entrant{teamID: b.teamID}
					continue
				}
			}
			if a.empty() && b.empty() {
				return nil, fmt.Errorf("round %d pair %d has no entrants", r, p+1)
			}

			uid := fmt.Sprintf("R%dM%d", r, p+1)
			m := &models.Match{
				UID:          uid,
				Side:         models.SideWinners,
				Round:        r,
				OrderInRound: p + 1,
				Status:       models.MatchStatusPending,
				Team1ID:      a.teamID,
				Team2ID:      b.teamID,
			}
			if a.fromUID != nil {
				linkWinner(tree.byUID[*a.fromUID], uid, 1)
			}
			if b.fromUID != nil {
				linkWinner(tree.byUID[*b.fromUID], uid, 2)
			}

			tree.byUID[uid] = m
			tree.matches = append(tree.matches, m)
			roundMatches = append(roundMatches, m)
			if r == 1 {
				tree.r1PairMatch[p] = m
			}
			u := uid
			next[p] = entrant{fromUID: &u}
		}

		round := models.Round{Number: r, Name: RoundName(r, numRounds), Side: models.SideWinners}
		for _, m := range roundMatches {
			round.MatchUIDs = append(round.MatchUIDs, m.UID)
		}
		tree.rounds = append(tree.rounds, round)
		tree.byRound = append(tree.byRound, roundMatches)
		cur = next
	}

	tree.finalUID = fmt.Sprintf("R%dM1", numRounds)
	return tree, nil
}

func linkWinner(src *models.Match, destUID string, slot int) {
	src.WinnerTo = &destUID
	src.WinnerToSlot = &slot
}
