package handlers

import (
	"net/http"
	"strconv"
)

// BatchPredictRequest is the predict-batch endpoint payload.
type BatchPredictRequest struct {
	MatchIDs []int64 `json:"match_ids" validate:"required,min=1,max=50,dive,min=1"`
}

// Predict forecasts one match
// @Summary Predict Match Outcome
// @Description Return the three-way outcome probabilities for an upcoming match
// @Tags Predictions
// @Produce json
// @Param match_id query int true "Match ID"
// @Success 200 {object} models.PredictionResponse "Prediction"
// @Failure 404 {object} models.ErrorPayload "Unknown match"
// @Failure 503 {object} models.ErrorPayload "No trained model"
// @Router /predict [get]
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchIDParam(w, r)
	if !ok {
		return
	}

	pred, err := h.prediction.Predict(r.Context(), matchID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, pred)
}

// PredictBatch forecasts up to 50 matches in one call
// @Summary Predict Batch
// @Description Predict multiple matches; failures are reported per item
// @Tags Predictions
// @Accept json
// @Produce json
// @Param body body BatchPredictRequest true "Match IDs"
// @Success 200 {array} models.BatchPredictionItem "Predictions"
// @Failure 400 {object} models.ErrorPayload "Bad Request"
// @Router /predict/batch [post]
func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchPredictRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	items, err := h.prediction.PredictBatch(r.Context(), req.MatchIDs)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, items)
}

// GetFeatures exposes the feature vector behind a prediction
// @Summary Get Match Features
// @Description Debug view of the engineered feature vector for a match
// @Tags Predictions
// @Produce json
// @Param match_id query int true "Match ID"
// @Success 200 {object} models.FeaturesResponse "Features"
// @Failure 404 {object} models.ErrorPayload "Unknown match"
// @Router /features [get]
func (h *Handler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchIDParam(w, r)
	if !ok {
		return
	}

	features, err := h.prediction.Features(r.Context(), matchID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, features)
}

func (h *Handler) matchIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("match_id")
	if raw == "" {
		h.validationError(w, "match_id is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		h.validationError(w, "match_id must be a positive integer")
		return 0, false
	}
	return id, true
}
