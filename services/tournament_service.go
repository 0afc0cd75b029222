package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/courtsidehq/tournament-service/brackets"
	"github.com/courtsidehq/tournament-service/models"
	"github.com/courtsidehq/tournament-service/repositories"
	"github.com/courtsidehq/tournament-service/storage"
)

type TeamInput struct {
	Name  string  `json:"name"`
	Seed  int     `json:"seed"`
	Color *string `json:"color,omitempty"`
}

type CreateTournamentInput struct {
	Name     string                    `json:"name"`
	Format   models.TournamentFormat   `json:"format"`
	Seeding  models.SeedingMethod      `json:"seeding"`
	Settings models.TournamentSettings `json:"settings"`
	Teams    []TeamInput               `json:"teams"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	// Start seeds the field, generates the bracket and activates the
	// tournament in a single transaction.
	Start(ctx context.Context, id int) (*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error)
	Delete(ctx context.Context, id int) error
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !validFormat(input.Format) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTournamentFormat, input.Format)
	}
	if input.Seeding == "" {
		input.Seeding = models.SeedingByRanking
	}
	if !validSeeding(input.Seeding) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeedingMethod, input.Seeding)
	}
	if err := validateTeamInputs(input.Teams); err != nil {
		return nil, err
	}
	if err := brackets.ValidateTeamCount(input.Format, len(input.Teams)); err != nil {
		return nil, err
	}

	t := &models.Tournament{
		Name:     input.Name,
		Format:   input.Format,
		Seeding:  input.Seeding,
		Status:   models.StatusDraft,
		Settings: input.Settings,
	}

	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		if err := s.tournamentRepo.Create(ctx, tx, t); err != nil {
			return mapTournamentRepoError(err)
		}
		for i, in := range input.Teams {
			seed := in.Seed
			if seed == 0 {
				seed = i + 1
			}
			team := &models.Team{
				TournamentID: t.ID,
				Name:         in.Name,
				Seed:         seed,
				Color:        in.Color,
			}
			if err := s.teamRepo.Create(ctx, tx, team); err != nil {
				return mapTeamRepoError(err)
			}
			t.Teams = append(t.Teams, team)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID),
		slog.String("format", string(t.Format)),
		slog.Int("teams", len(t.Teams)))
	return t, nil
}

func (s *tournamentService) Start(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != models.StatusDraft && t.Status != models.StatusRegistration {
		return nil, fmt.Errorf("%w: status is %s", ErrTournamentNotStartable, t.Status)
	}
	if err := brackets.ValidateTeamCount(t.Format, len(t.Teams)); err != nil {
		return nil, err
	}

	ordered, err := brackets.SeedOrder(t.Teams, t.Seeding, nil)
	if err != nil {
		return nil, err
	}

	generator, err := brackets.ForFormat(t.Format)
	if err != nil {
		return nil, err
	}
	result, err := generator.Generate(ctx, brackets.GenerateParams{
		Tournament: t,
		Teams:      ordered,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate bracket for tournament %d: %w", id, err)
	}

	err = s.withTransaction(ctx, func(tx *sql.Tx) error {
		// Final seed order becomes the persisted seeds, so a later rebuild
		// reproduces the same bracket positions.
		for i, team := range ordered {
			if team.Seed != i+1 {
				team.Seed = i + 1
				if err := s.teamRepo.UpdateSeed(ctx, tx, team.ID, team.Seed); err != nil {
					return err
				}
			}
		}
		if err := s.matchRepo.DeleteByTournament(ctx, tx, id); err != nil {
			return err
		}
		for _, match := range result.Matches {
			match.TournamentID = id
			if err := s.matchRepo.Create(ctx, tx, match); err != nil {
				return err
			}
		}
		return s.tournamentRepo.UpdateStatus(ctx, tx, id, models.StatusActive)
	})
	if err != nil {
		return nil, err
	}

	t.Teams = ordered
	t.Matches = result.Matches
	t.Bracket = result.Bracket
	t.Status = models.StatusActive

	s.logger.Info("tournament started",
		slog.Int("tournament_id", id),
		slog.Int("matches", len(result.Matches)))
	return t, nil
}

func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gCtx, id)
		if err != nil {
			return err
		}
		t.Teams = teams
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id)
		if err != nil {
			return err
		}
		t.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}

	if len(t.Matches) > 0 {
		t.Bracket = brackets.RebuildRounds(t.Format, t.Matches)
	}
	s.populateLogoURLs(t.Teams)
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx, status)
}

var allowedStatusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusDraft:        {models.StatusRegistration, models.StatusCanceled},
	models.StatusRegistration: {models.StatusDraft, models.StatusCanceled},
	models.StatusActive:       {models.StatusCompleted, models.StatusCanceled},
}

func (s *tournamentService) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if !transitionAllowed(t.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, status)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, id, status); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	t.Status = status
	return t, nil
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return mapTournamentRepoError(err)
	}
	return nil
}

func (s *tournamentService) populateLogoURLs(teams []*models.Team) {
	if s.uploader == nil {
		return
	}
	for _, team := range teams {
		if team.LogoKey != nil {
			if url := s.uploader.GetPublicURL(*team.LogoKey); url != "" {
				team.LogoURL = &url
			}
		}
	}
}

func (s *tournamentService) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func validFormat(f models.TournamentFormat) bool {
	switch f {
	case models.FormatSingleElimination, models.FormatDoubleElimination,
		models.FormatRoundRobin, models.FormatPoolPlay:
		return true
	}
	return false
}

func validSeeding(m models.SeedingMethod) bool {
	switch m {
	case models.SeedingByRanking, models.SeedingManual, models.SeedingRandom:
		return true
	}
	return false
}

func validateTeamInputs(teams []TeamInput) error {
	seen := make(map[string]bool, len(teams))
	for _, in := range teams {
		if in.Name == "" {
			return ErrTeamNameRequired
		}
		if seen[in.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateTeamName, in.Name)
		}
		seen[in.Name] = true
	}
	return nil
}

func transitionAllowed(from, to models.TournamentStatus) bool {
	for _, allowed := range allowedStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func mapTournamentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	default:
		return err
	}
}

func mapTeamRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameConflict
	default:
		return err
	}
}
