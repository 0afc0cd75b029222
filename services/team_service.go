package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/courtsidehq/tournament-service/models"
	"github.com/courtsidehq/tournament-service/repositories"
	"github.com/courtsidehq/tournament-service/storage"
)

var logoExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type TeamService interface {
	Get(ctx context.Context, id int) (*models.Team, error)
	UploadLogo(ctx context.Context, teamID int, contentType string, file io.Reader) (*models.Team, error)
	RemoveLogo(ctx context.Context, teamID int) (*models.Team, error)
}

type teamService struct {
	teamRepo repositories.TeamRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewTeamService(teamRepo repositories.TeamRepository, uploader storage.FileUploader, logger *slog.Logger) TeamService {
	return &teamService{teamRepo: teamRepo, uploader: uploader, logger: logger}
}

func (s *teamService) Get(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTeamRepoError(err)
	}
	s.attachLogoURL(team)
	return team, nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID int, contentType string, file io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, ok := logoExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, mapTeamRepoError(err)
	}

	key := fmt.Sprintf("team-logos/%d/logo%s", teamID, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo for team %d: %w", teamID, err)
	}

	oldKey := team.LogoKey
	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &result.Key); err != nil {
		return nil, mapTeamRepoError(err)
	}
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous logo",
				slog.Int("team_id", teamID), slog.Any("error", err))
		}
	}

	team.LogoKey = &result.Key
	team.LogoURL = &result.Location
	s.logger.Info("team logo uploaded", slog.Int("team_id", teamID), slog.String("key", result.Key))
	return team, nil
}

func (s *teamService) RemoveLogo(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, mapTeamRepoError(err)
	}
	if team.LogoKey == nil {
		return team, nil
	}

	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, nil); err != nil {
		return nil, mapTeamRepoError(err)
	}
	if s.uploader != nil {
		if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
			s.logger.Warn("failed to delete logo object",
				slog.Int("team_id", teamID), slog.Any("error", err))
		}
	}
	team.LogoKey = nil
	team.LogoURL = nil
	return team, nil
}

func (s *teamService) attachLogoURL(team *models.Team) {
	if s.uploader == nil || team.LogoKey == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*team.LogoKey); url != "" {
		team.LogoURL = &url
	}
}
