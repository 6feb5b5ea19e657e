package handlers

import (
	"net/http"
)

// SyncData triggers a provider sync
// @Summary Sync Provider Data
// @Description Pull teams, fixtures and standings for the configured seasons; changed matches queue feature rebuilds
// @Tags Ingestion
// @Produce json
// @Param season query int false "Sync a single season instead of all configured ones"
// @Success 200 {array} ingest.Result "Per-season sync results"
// @Failure 409 {object} models.ErrorPayload "Sync already running"
// @Failure 502 {object} models.ErrorPayload "Provider unavailable"
// @Router /ingest/sync [post]
func (h *Handler) SyncData(w http.ResponseWriter, r *http.Request) {
	seasons := h.seasons
	if season, found, err := queryInt(r, "season"); err != nil {
		h.validationError(w, "season must be an integer")
		return
	} else if found {
		seasons = []int{season}
	}

	results, err := h.sync.SyncAll(r.Context(), h.competition, seasons)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, results)
}
