package brackets

import (
	"fmt"

	"github.com/courtsidehq/tournament-service/models"
)

// testTeams builds n teams whose IDs equal their seeds, which keeps bracket
// position assertions readable.
func testTeams(n int) []*models.Team {
	teams := make([]*models.Team, n)
	for i := range teams {
		teams[i] = &models.Team{
			ID:   i + 1,
			Name: fmt.Sprintf("Team %d", i+1),
			Seed: i + 1,
		}
	}
	return teams
}

func testTournament(format models.TournamentFormat, settings models.TournamentSettings) *models.Tournament {
	return &models.Tournament{
		ID:       1,
		Name:     "Spring Classic",
		Format:   format,
		Seeding:  models.SeedingByRanking,
		Status:   models.StatusActive,
		Settings: settings,
	}
}

func matchByUID(matches []*models.Match, uid string) *models.Match {
	for _, m := range matches {
		if m.UID == uid {
			return m
		}
	}
	return nil
}
