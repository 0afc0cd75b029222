package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courtsidehq/tournament-service/engine"
	"github.com/courtsidehq/tournament-service/models"
	"github.com/courtsidehq/tournament-service/realtime"
	"github.com/courtsidehq/tournament-service/repositories"
)

type MatchService interface {
	StartMatch(ctx context.Context, tournamentID int, matchUID string, expectedVersion int) (*models.Match, error)
	UpdateScore(ctx context.Context, tournamentID int, matchUID string, expectedVersion, team1Score, team2Score int) (*models.Match, error)
	EndMatch(ctx context.Context, tournamentID int, matchUID string, expectedVersion, team1Score, team2Score int) (*models.Match, error)
	AdvanceTeam(ctx context.Context, tournamentID int, matchUID string, expectedVersion, winnerID, loserID int) (*models.Match, error)
}

type matchService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	hub            *realtime.Hub
	logger         *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	hub *realtime.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) StartMatch(ctx context.Context, tournamentID int, matchUID string, expectedVersion int) (*models.Match, error) {
	ref := engine.MatchRef{UID: matchUID, Version: expectedVersion}
	return s.apply(ctx, tournamentID, engine.StartMatch{MatchRef: ref})
}

func (s *matchService) UpdateScore(ctx context.Context, tournamentID int, matchUID string, expectedVersion, team1Score, team2Score int) (*models.Match, error) {
	ref := engine.MatchRef{UID: matchUID, Version: expectedVersion}
	return s.apply(ctx, tournamentID, engine.UpdateScore{MatchRef: ref, Team1Score: team1Score, Team2Score: team2Score})
}

func (s *matchService) EndMatch(ctx context.Context, tournamentID int, matchUID string, expectedVersion, team1Score, team2Score int) (*models.Match, error) {
	ref := engine.MatchRef{UID: matchUID, Version: expectedVersion}
	return s.apply(ctx, tournamentID, engine.EndMatch{MatchRef: ref, Team1Score: team1Score, Team2Score: team2Score})
}

func (s *matchService) AdvanceTeam(ctx context.Context, tournamentID int, matchUID string, expectedVersion, winnerID, loserID int) (*models.Match, error) {
	ref := engine.MatchRef{UID: matchUID, Version: expectedVersion}
	return s.apply(ctx, tournamentID, engine.AdvanceTeam{MatchRef: ref, WinnerID: winnerID, LoserID: loserID})
}

// apply loads the aggregate, runs the reducer, persists every match the
// command touched inside one transaction, and broadcasts the resulting events
// after the commit succeeds.
func (s *matchService) apply(ctx context.Context, tournamentID int, cmd engine.Command) (*models.Match, error) {
	t, err := s.loadAggregate(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	target := t.MatchByUID(cmd.MatchUID())
	if target == nil {
		return nil, fmt.Errorf("%w: %q", ErrMatchNotFound, cmd.MatchUID())
	}
	// Snapshot every match's version before the reducer runs: advancement
	// also bumps destination matches, and each write below must be guarded
	// by the version the row had when this aggregate was loaded.
	versionsBefore := make(map[string]int, len(t.Matches))
	for _, m := range t.Matches {
		versionsBefore[m.UID] = m.Version
	}
	statusBefore := t.Status

	events, err := engine.Apply(t, cmd)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		// idempotent repeat, nothing changed
		return target, nil
	}

	touched := touchedMatches(t, target, events)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	txErr := func() error {
		for _, tm := range touched {
			if err := s.matchRepo.UpdateState(ctx, tx, tm, versionsBefore[tm.UID]); err != nil {
				return fmt.Errorf("match %s: %w", tm.UID, err)
			}
		}
		if t.Status != statusBefore {
			return s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, t.Status)
		}
		return nil
	}()
	if txErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", slog.Any("error", rbErr))
		}
		if errors.Is(txErr, repositories.ErrMatchStaleVersion) {
			return nil, fmt.Errorf("%w: %v", engine.ErrVersionConflict, txErr)
		}
		return nil, txErr
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, ev := range events {
		s.hub.BroadcastEvent(ev)
	}
	s.logger.Info("match updated",
		slog.Int("tournament_id", tournamentID),
		slog.String("match_uid", target.UID),
		slog.String("status", string(target.Status)),
		slog.Int("version", target.Version))
	return target, nil
}

func (s *matchService) loadAggregate(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	t.Teams = teams
	t.Matches = matches
	return t, nil
}

// touchedMatches collects the target match plus any advancement destinations
// named by the emitted events, deduplicated.
func touchedMatches(t *models.Tournament, target *models.Match, events []realtime.Event) []*models.Match {
	out := []*models.Match{target}
	seen := map[string]bool{target.UID: true}
	for _, ev := range events {
		if ev.Type != realtime.EventTeamAdvanced {
			continue
		}
		p, err := ev.TeamAdvanced()
		if err != nil {
			continue
		}
		for _, uid := range []*string{p.WinnerToUID, p.LoserToUID} {
			if uid == nil || seen[*uid] {
				continue
			}
			if dest := t.MatchByUID(*uid); dest != nil {
				out = append(out, dest)
				seen[*uid] = true
			}
		}
	}
	return out
}
