package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/courtsidehq/tournament-service/engine"
	"github.com/courtsidehq/tournament-service/models"
)

// CSVHeader is the fixed column layout of the CSV export.
var CSVHeader = []string{"Round", "Match", "Team1", "Team2", "Score", "Winner", "Status", "Court", "Time"}

const scheduledTimeLayout = time.RFC3339

// Snapshot is the JSON export shape: the full aggregate plus the computed
// standings, so a consumer does not need the reducer to rank teams.
type Snapshot struct {
	Tournament *models.Tournament `json:"tournament"`
	Standings  []models.Standing  `json:"standings"`
	ExportedAt time.Time          `json:"exported_at"`
}

// WriteJSON streams the tournament and its standings as indented JSON.
func WriteJSON(w io.Writer, t *models.Tournament) error {
	snap := Snapshot{
		Tournament: t,
		Standings:  engine.Standings(t),
		ExportedAt: time.Now().UTC(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode tournament %d: %w", t.ID, err)
	}
	return nil
}

// WriteCSV streams the match schedule as CSV, one row per match in bracket
// order. Unresolved team slots render as TBD; unplayed scores, winners,
// courts and times render as empty cells.
func WriteCSV(w io.Writer, t *models.Tournament) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range Rows(t) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Rows renders the CSV body without the header. Matches follow the bracket's
// round order; matches missing from the bracket (round robin schedules built
// before rounds were persisted, say) are appended in slice order.
func Rows(t *models.Tournament) [][]string {
	rows := make([][]string, 0, len(t.Matches))
	seen := make(map[string]bool, len(t.Matches))

	for _, round := range t.Bracket.Rounds {
		for _, uid := range round.MatchUIDs {
			m := t.MatchByUID(uid)
			if m == nil {
				continue
			}
			rows = append(rows, matchRow(t, round.Name, m))
			seen[uid] = true
		}
	}
	for _, m := range t.Matches {
		if !seen[m.UID] {
			rows = append(rows, matchRow(t, fmt.Sprintf("Round %d", m.Round), m))
		}
	}
	return rows
}

func matchRow(t *models.Tournament, roundName string, m *models.Match) []string {
	score := ""
	if m.Score1 != nil && m.Score2 != nil {
		score = fmt.Sprintf("%d-%d", *m.Score1, *m.Score2)
	}
	court := ""
	if m.Court != nil {
		court = *m.Court
	}
	scheduled := ""
	if m.ScheduledAt != nil {
		scheduled = m.ScheduledAt.UTC().Format(scheduledTimeLayout)
	}
	return []string{
		roundName,
		m.UID,
		teamName(t, m.Team1ID),
		teamName(t, m.Team2ID),
		score,
		winnerName(t, m),
		string(m.Status),
		court,
		scheduled,
	}
}

func teamName(t *models.Tournament, id *int) string {
	if id == nil {
		return "TBD"
	}
	if team := t.TeamByID(*id); team != nil {
		return team.Name
	}
	return fmt.Sprintf("Team %d", *id)
}

func winnerName(t *models.Tournament, m *models.Match) string {
	if m.WinnerID == nil {
		return ""
	}
	return teamName(t, m.WinnerID)
}
