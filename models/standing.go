package models

// Standing is a read-only projection over completed matches. It is computed
// on demand and never stored.
type Standing struct {
	TeamID            int     `json:"team_id"`
	TeamName          string  `json:"team_name"`
	GamesPlayed       int     `json:"games_played"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	WinPct            float64 `json:"win_pct"`
	PointsFor         int     `json:"points_for"`
	PointsAgainst     int     `json:"points_against"`
	PointDifferential int     `json:"point_differential"`
	Rank              int     `json:"rank"`
}
