package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtsidehq/tournament-service/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// Every mutation carries the match version the client last saw; the service
// rejects stale versions with 409 so concurrent scorekeepers cannot
// overwrite each other.

func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	tournamentID, uid, err := matchParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Version int `json:"version"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.StartMatch(r.Context(), tournamentID, uid, input.Version)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	tournamentID, uid, err := matchParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Version    int `json:"version"`
		Team1Score int `json:"team1_score"`
		Team2Score int `json:"team2_score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateScore(r.Context(), tournamentID, uid, input.Version, input.Team1Score, input.Team2Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) End(w http.ResponseWriter, r *http.Request) {
	tournamentID, uid, err := matchParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Version    int `json:"version"`
		Team1Score int `json:"team1_score"`
		Team2Score int `json:"team2_score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.EndMatch(r.Context(), tournamentID, uid, input.Version, input.Team1Score, input.Team2Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Advance(w http.ResponseWriter, r *http.Request) {
	tournamentID, uid, err := matchParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Version  int `json:"version"`
		WinnerID int `json:"winner_id"`
		LoserID  int `json:"loser_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.AdvanceTeam(r.Context(), tournamentID, uid, input.Version, input.WinnerID, input.LoserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func matchParams(r *http.Request) (int, string, error) {
	tournamentID, err := tournamentIDParam(r)
	if err != nil {
		return 0, "", err
	}
	uid := chi.URLParam(r, "matchUID")
	if uid == "" {
		return 0, "", fmt.Errorf("invalid match uid")
	}
	return tournamentID, uid, nil
}
