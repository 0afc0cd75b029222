package services

import "errors"

// Sentinel errors shared across services and mapped onto HTTP statuses by
// the handlers layer.
var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrTeamNameConflict       = errors.New("team name is already in use in this tournament")
	ErrUserEmailConflict      = errors.New("email address is already in use")

	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTeamNameRequired                  = errors.New("team name is required")
	ErrDuplicateTeamName                 = errors.New("duplicate team name in tournament")
	ErrInvalidTournamentFormat           = errors.New("invalid tournament format")
	ErrInvalidSeedingMethod              = errors.New("invalid seeding method")
	ErrTournamentNotEditable             = errors.New("tournament can no longer be edited")
	ErrTournamentNotStartable            = errors.New("tournament cannot be started from its current status")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	ErrUploadsDisabled        = errors.New("file uploads are not configured")
	ErrUnsupportedContentType = errors.New("unsupported file content type")
)
