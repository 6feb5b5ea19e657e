package handlers

import (
	"net/http"

	"github.com/matchpulse/predict-api/internal/models"
)

// defaultAnalyzeDays bounds an unfiltered analysis to the recent window.
const defaultAnalyzeDays = 30

// Analyze evaluates past predictions
// @Summary Analyze Prediction Errors
// @Description Compare stored predictions against actual results over a window
// @Tags Analysis
// @Produce json
// @Param days_back query int false "Look back N days (default 30 when no other filter set)"
// @Param season query int false "Restrict to one season"
// @Param matchday query int false "Restrict to one matchday"
// @Success 200 {object} models.AnalysisResult "Analysis"
// @Failure 400 {object} models.ErrorPayload "Bad Request"
// @Router /analyze [get]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var filter models.AnalysisFilter
	for name, dst := range map[string]*int{
		"days_back": &filter.DaysBack,
		"season":    &filter.Season,
		"matchday":  &filter.Matchday,
	} {
		v, found, err := queryInt(r, name)
		if err != nil {
			h.validationError(w, name+" must be an integer")
			return
		}
		if found {
			*dst = v
		}
	}
	if err := h.validator.Struct(&filter); err != nil {
		h.validationError(w, err.Error())
		return
	}
	if filter.DaysBack == 0 && filter.Season == 0 && filter.Matchday == 0 {
		filter.DaysBack = defaultAnalyzeDays
	}

	result, err := h.analysis.Analyze(r.Context(), filter)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, result)
}

// Retrain trains a candidate model
// @Summary Retrain Model
// @Description Train a new model, optionally weighting past mistakes, and promote it if it holds up on validation
// @Tags Analysis
// @Accept json
// @Produce json
// @Param body body models.RetrainRequest true "Retrain options"
// @Success 200 {object} models.RetrainResult "Retrain outcome"
// @Failure 400 {object} models.ErrorPayload "Bad Request"
// @Failure 422 {object} models.ErrorPayload "Insufficient training data"
// @Router /retrain [post]
func (h *Handler) Retrain(w http.ResponseWriter, r *http.Request) {
	var req models.RetrainRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.analysis.Retrain(r.Context(), req)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.logger.Infow("retrain finished",
		"algorithm", result.Algorithm,
		"new_version", result.NewVersion,
		"promoted", result.Promoted)
	h.jsonResponse(w, http.StatusOK, result)
}
