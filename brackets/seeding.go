package brackets

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/courtsidehq/tournament-service/models"
)

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// seedPositions returns the top-to-bottom seed layout of a full bracket of
// the given size (a power of two). Adjacent entries form the round-1 pairs.
// Seed 1 anchors the top half and seed 2 the bottom half, so for 8 slots the
// pairs come out as 1v8, 4v5, 3v6, 2v7.
func seedPositions(size int) []int {
	switch size {
	case 1:
		return []int{1}
	case 2:
		return []int{1, 2}
	case 4:
		return []int{1, 4, 3, 2}
	}
	half := seedPositions(size / 2)
	out := make([]int, 0, size)
	for _, s := range half {
		out = append(out, s, size+1-s)
	}
	return out
}

// SeedOrder returns the teams ordered by the chosen seeding method. The
// returned slice is a copy; the input is never reordered in place.
func SeedOrder(teams []*models.Team, method models.SeedingMethod, rng *rand.Rand) ([]*models.Team, error) {
	out := make([]*models.Team, len(teams))
	copy(out, teams)

	switch method {
	case models.SeedingByRanking, "":
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Seed < out[j].Seed
		})
	case models.SeedingManual:
		// caller-provided order is the seeding
	case models.SeedingRandom:
		if rng != nil {
			rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		} else {
			rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		}
	default:
		return nil, fmt.Errorf("unknown seeding method %q", method)
	}
	return out, nil
}
