package engine

import "errors"

// Reducer errors. Validation and integrity failures abort the attempted
// mutation entirely: the tournament value is never left half-written.
var (
	ErrMatchNotFound      = errors.New("match not found in tournament")
	ErrMatchNotPending    = errors.New("match has already been started")
	ErrMatchNotInProgress = errors.New("match is not in progress")
	ErrMatchNotCompleted  = errors.New("match is not completed with a winner")
	ErrSlotsNotPopulated  = errors.New("match slots are not yet populated")
	ErrScoreMissing       = errors.New("match has no recorded score")
	ErrScoreMismatch      = errors.New("submitted score does not match the recorded score")
	ErrNegativeScore      = errors.New("score cannot be negative")
	ErrTieNotAllowed      = errors.New("tied score at end of match: ties are not permitted")
	ErrWinnerNotInMatch   = errors.New("team is not a participant of the match")
	ErrVersionConflict    = errors.New("stale match version: a concurrent update was applied first")
	ErrBracketIntegrity   = errors.New("bracket integrity violation")
)
