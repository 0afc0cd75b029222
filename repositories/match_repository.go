package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/courtsidehq/tournament-service/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchStaleVersion      = errors.New("match was modified concurrently")
	ErrMatchUIDConflict       = errors.New("match uid already exists in this tournament")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchTeamInvalid       = errors.New("match team conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByUID(ctx context.Context, tournamentID int, uid string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// UpdateState persists the full mutable state of a match guarded by the
	// version the caller read. Returns ErrMatchStaleVersion when another
	// writer got there first.
	UpdateState(ctx context.Context, exec SQLExecutor, match *models.Match, expectedVersion int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, uid, side, round, order_in_round,
	team1_id, team2_id, score1, score2, winner_id, loser_id, status,
	court, scheduled_at, version,
	winner_to, winner_to_slot, loser_to, loser_to_slot, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, uid, side, round, order_in_round,
			 team1_id, team2_id, score1, score2, winner_id, loser_id, status,
			 court, scheduled_at, version,
			 winner_to, winner_to_slot, loser_to, loser_to_slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.TournamentID,
		match.UID,
		match.Side,
		match.Round,
		match.OrderInRound,
		match.Team1ID,
		match.Team2ID,
		match.Score1,
		match.Score2,
		match.WinnerID,
		match.LoserID,
		match.Status,
		match.Court,
		match.ScheduledAt,
		match.Version,
		match.WinnerTo,
		match.WinnerToSlot,
		match.LoserTo,
		match.LoserToSlot,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByUID(ctx context.Context, tournamentID int, uid string) (*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND uid = $2`

	match := &models.Match{}
	err := scanMatch(r.db.QueryRowContext(ctx, query, tournamentID, uid), match)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s of tournament %d: %w", uid, tournamentID, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY (side = 'losers') ASC, round ASC, order_in_round ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var match models.Match
		if scanErr := scanMatch(rows, &match); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateState(ctx context.Context, exec SQLExecutor, match *models.Match, expectedVersion int) error {
	query := `
		UPDATE matches
		SET team1_id = $1, team2_id = $2, score1 = $3, score2 = $4,
		    winner_id = $5, loser_id = $6, status = $7,
		    court = $8, scheduled_at = $9, version = $10
		WHERE id = $11 AND version = $12`

	result, err := exec.ExecContext(ctx, query,
		match.Team1ID,
		match.Team2ID,
		match.Score1,
		match.Score2,
		match.WinnerID,
		match.LoserID,
		match.Status,
		match.Court,
		match.ScheduledAt,
		match.Version,
		match.ID,
		expectedVersion,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchStaleVersion)
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches of tournament %d: %w", tournamentID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner, match *models.Match) error {
	return row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.UID,
		&match.Side,
		&match.Round,
		&match.OrderInRound,
		&match.Team1ID,
		&match.Team2ID,
		&match.Score1,
		&match.Score2,
		&match.WinnerID,
		&match.LoserID,
		&match.Status,
		&match.Court,
		&match.ScheduledAt,
		&match.Version,
		&match.WinnerTo,
		&match.WinnerToSlot,
		&match.LoserTo,
		&match.LoserToSlot,
		&match.CreatedAt,
	)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_tournament_id_uid_key":
			return ErrMatchUIDConflict
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_team1_id_fkey", "matches_team2_id_fkey",
			"matches_winner_id_fkey", "matches_loser_id_fkey":
			return ErrMatchTeamInvalid
		}
	}
	return err
}
