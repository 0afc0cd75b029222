package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/courtsidehq/tournament-service/services"
)

const maxLogoSize = 5 << 20 // 5MB

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(teamService services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := teamIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadLogo accepts a multipart form with a "logo" file field.
func (h *TeamHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := teamIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("logo file field is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	team, err := h.teamService.UploadLogo(r.Context(), id, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) RemoveLogo(w http.ResponseWriter, r *http.Request) {
	id, err := teamIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.RemoveLogo(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func teamIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "teamID"))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid team id")
	}
	return id, nil
}
