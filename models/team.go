package models

import "time"

// Team is a competing team inside a single tournament. Seed and name are
// frozen once the tournament leaves the draft status; only logo/color
// bookkeeping may change afterwards.
type Team struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	Seed         int       `json:"seed" db:"seed"`
	Color        *string   `json:"color,omitempty" db:"color"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`
}
