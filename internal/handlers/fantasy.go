package handlers

import (
	"net/http"

	"github.com/matchpulse/predict-api/internal/models"
)

// FantasyPlayers ranks fantasy players
// @Summary Fantasy Player Predictions
// @Description Forecast fantasy points per player, ranked, optionally filtered by position
// @Tags Fantasy
// @Produce json
// @Param position query string false "Position filter (GKP, DEF, MID, FWD)"
// @Param limit query int false "Max players (default 20, cap 100)"
// @Success 200 {array} models.FantasyPrediction "Predictions"
// @Failure 400 {object} models.ErrorPayload "Unknown position"
// @Router /fantasy/players [get]
func (h *Handler) FantasyPlayers(w http.ResponseWriter, r *http.Request) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		h.validationError(w, "limit must be an integer")
		return
	}

	preds, err := h.fantasy.PlayerPredictions(r.Context(), r.URL.Query().Get("position"), limit)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, preds)
}

// FantasyTransfers suggests squad upgrades
// @Summary Fantasy Transfer Suggestions
// @Description Suggest same-position upgrades for a squad within the budget headroom
// @Tags Fantasy
// @Accept json
// @Produce json
// @Param body body models.TransferRequest true "Current squad and budget"
// @Success 200 {array} models.TransferSuggestion "Suggestions"
// @Failure 400 {object} models.ErrorPayload "Bad Request"
// @Failure 404 {object} models.ErrorPayload "Unknown player in squad"
// @Router /fantasy/transfers [post]
func (h *Handler) FantasyTransfers(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	suggestions, err := h.fantasy.TransferSuggestions(r.Context(), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, suggestions)
}

// FantasyDifferentials screens for low-ownership picks
// @Summary Fantasy Differential Picks
// @Description List low-ownership players whose forecast clears the chosen risk profile
// @Tags Fantasy
// @Produce json
// @Param risk_tolerance query string false "low, medium or high (default medium)"
// @Success 200 {array} models.DifferentialPick "Differentials"
// @Failure 400 {object} models.ErrorPayload "Unknown risk tolerance"
// @Router /fantasy/differentials [get]
func (h *Handler) FantasyDifferentials(w http.ResponseWriter, r *http.Request) {
	tolerance := r.URL.Query().Get("risk_tolerance")
	if tolerance == "" {
		tolerance = "medium"
	}

	picks, err := h.fantasy.DifferentialPicks(r.Context(), tolerance)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, picks)
}
